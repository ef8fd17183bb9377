package filters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiffSources(t *testing.T) {
	local := []Source{
		testSource("status", "o"),
		testSource("assignee", "=", "/api/v3/users/2"),
		testSource("type", "=", "1"),
	}
	remote := []Source{
		testSource("assignee", "=", "/api/v3/users/1"),
		testSource("status", "o"),
		testSource("version", "=", "4"),
	}

	delta := DiffSources(local, remote)
	if diff := cmp.Diff([]Source{local[2]}, delta.Added); diff != "" {
		t.Fatalf("added mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]Source{remote[2]}, delta.Removed); diff != "" {
		t.Fatalf("removed mismatch:\n%s", diff)
	}
	if len(delta.Changed) != 1 || delta.Changed[0].Href != testFilterPrefix+"assignee" {
		t.Fatalf("expected assignee to be changed, got %+v", delta.Changed)
	}
	if delta.Changed[0].Detail == "" {
		t.Fatalf("changed entries should carry a diff")
	}
	if !delta.Reordered {
		t.Fatalf("status and assignee swapped places")
	}
	if delta.Empty() {
		t.Fatalf("delta should not be empty")
	}
}

func TestDiffSourcesEqualLists(t *testing.T) {
	list := []Source{testSource("status", "o"), testSource("type", "=", "1")}
	if delta := DiffSources(list, list); !delta.Empty() {
		t.Fatalf("expected empty delta, got %+v", delta)
	}
	if delta := DiffSources(nil, []Source{}); !delta.Empty() {
		t.Fatalf("nil and empty should not differ, got %+v", delta)
	}
}

func TestDeltaJSONRoundTrip(t *testing.T) {
	delta := DiffSources([]Source{testSource("status", "o")}, nil)
	payload, err := delta.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := DeltaFromJSON(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(delta, decoded); diff != "" {
		t.Fatalf("delta round trip mismatch:\n%s", diff)
	}
}

func TestSourcesEqualIsSymmetric(t *testing.T) {
	a := []Source{testSource("status", "o")}
	b := []Source{{Filter: testRef("status"), Operator: "o", Values: []string{}, Schema: "status"}}
	if !SourcesEqual(a, b) || !SourcesEqual(b, a) {
		t.Fatalf("nil and empty values should be equal both ways")
	}
	c := []Source{testSource("status", "c")}
	if SourcesEqual(a, c) || SourcesEqual(c, a) {
		t.Fatalf("operator change should be detected both ways")
	}
}
