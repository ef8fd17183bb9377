package activity

import (
	"context"
	"testing"
)

func TestBuildFilterAddedEventMetadata(t *testing.T) {
	meta := map[string]any{"source": "picker"}
	event := BuildFilterAddedEvent(FilterEventInput{
		ActorID:    " actor ",
		QueryID:    "query-7",
		Revision:   "rev-1",
		FilterID:   "status",
		FilterHref: "/api/v3/queries/filters/status",
		Count:      2,
		Complete:   true,
		Metadata:   meta,
	})

	if event.Verb != VerbFilterAdded || event.ObjectType != ObjectTypeFilters {
		t.Fatalf("unexpected verb/object type: %+v", event)
	}
	if event.ObjectID != "query-7" {
		t.Fatalf("expected query id as object id, got %q", event.ObjectID)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	want := map[string]any{
		"source":      "picker",
		"count":       2,
		"complete":    true,
		"filter_id":   "status",
		"filter_href": "/api/v3/queries/filters/status",
		"query_id":    "query-7",
		"revision":    "rev-1",
	}
	for key, value := range want {
		if event.Metadata[key] != value {
			t.Fatalf("metadata[%q] = %v, want %v", key, event.Metadata[key], value)
		}
	}
	if _, ok := meta["count"]; ok {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildFilterEventObjectIDFallbacks(t *testing.T) {
	if got := BuildFilterRemovedEvent(FilterEventInput{FilterHref: "/filters/type"}).ObjectID; got != "/filters/type" {
		t.Fatalf("expected filter href fallback, got %q", got)
	}
	if got := BuildFiltersReplacedEvent(FilterEventInput{Revision: "rev"}).ObjectID; got != "rev" {
		t.Fatalf("expected revision fallback, got %q", got)
	}
	if got := BuildFiltersAppliedEvent(FilterEventInput{}).ObjectID; got != ObjectTypeFilters {
		t.Fatalf("expected object type fallback, got %q", got)
	}
}

func TestBuildFilterEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	event := BuildFiltersInitializedEvent(FilterEventInput{QueryID: "q", Count: 3})
	if err := (Hooks{capture}).Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	verbs := capture.Verbs()
	if len(verbs) != 1 || verbs[0] != VerbFiltersInitialized {
		t.Fatalf("expected initialized verb captured, got %v", verbs)
	}
}
