package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type filterEntry struct {
	Filter   string   `json:"filter"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
	Tags     []string `json:"tags"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		ctx       Context
		input     map[string]any
		options   []DecoderOption[filterEntry]
		expect    filterEntry
		expectErr string
	}{
		{
			name:   "plain",
			ctx:    Context{Resource: "query/1/filters[0]"},
			input:  map[string]any{"filter": "status", "operator": "o"},
			expect: filterEntry{Filter: "status", Operator: "o"},
		},
		{
			name:  "pre hook splits expression",
			ctx:   Context{Resource: "query/1/filters[0]"},
			input: map[string]any{"expression": "type = 1,2"},
			options: []DecoderOption[filterEntry]{
				WithPreHook[filterEntry](expressionPreHook),
			},
			expect: filterEntry{Filter: "type", Operator: "=", Values: []string{"1", "2"}},
		},
		{
			name:  "pre hook failure",
			ctx:   Context{Resource: "query/1/filters[3]"},
			input: map[string]any{"expression": "type"},
			options: []DecoderOption[filterEntry]{
				WithPreHook[filterEntry](expressionPreHook),
			},
			expectErr: `resource "query/1/filters[3]": pre-hook failed`,
		},
		{
			name:  "post hook tags with query context",
			ctx:   Context{Resource: "query/7/filters[0]", QueryContext: "7"},
			input: map[string]any{"filter": "status", "operator": "c"},
			options: []DecoderOption[filterEntry]{
				WithPostHook[filterEntry](tagPostHook),
			},
			expect: filterEntry{Filter: "status", Operator: "c", Tags: []string{"query:7"}},
		},
		{
			name:  "disallow unknown",
			ctx:   Context{Resource: "query/1/filters[0]"},
			input: map[string]any{"filter": "status", "extra": true},
			options: []DecoderOption[filterEntry]{
				WithDisallowUnknownFields[filterEntry](),
			},
			expectErr: "unknown field",
		},
		{
			name:  "custom decoder",
			ctx:   Context{Resource: "query/1/filters[0]"},
			input: map[string]any{"raw": "assignee !*"},
			options: []DecoderOption[filterEntry]{
				WithCustomDecoder[filterEntry](rawDecoder),
			},
			expect: filterEntry{Filter: "assignee", Operator: "!*"},
		},
		{
			name:      "nil payload",
			ctx:       Context{Resource: "query/1/filters[0]"},
			input:     nil,
			expectErr: "payload is nil",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder[filterEntry](tc.options...)
			result, err := decoder.Decode(tc.ctx, tc.input)

			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutatePayload(t *testing.T) {
	payload := map[string]any{"expression": "type = 1"}
	decoder := NewDecoder[filterEntry](WithPreHook[filterEntry](expressionPreHook))
	if _, err := decoder.Decode(Context{Resource: "query"}, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload) != 1 || payload["expression"] != "type = 1" {
		t.Fatalf("caller payload was modified: %#v", payload)
	}
}

func TestDecodeEach(t *testing.T) {
	decoder := NewDecoder[filterEntry]()
	elements := []any{
		map[string]any{"filter": "status", "operator": "o"},
		map[string]any{"filter": "type", "operator": "=", "values": []any{"1"}},
	}
	out, err := decoder.DecodeEach(Context{Resource: "query/1/filters"}, elements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []filterEntry{
		{Filter: "status", Operator: "o"},
		{Filter: "type", Operator: "=", Values: []string{"1"}},
	}
	if !reflect.DeepEqual(want, out) {
		t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", want, out)
	}

	_, err = decoder.DecodeEach(Context{Resource: "query/1/filters"}, []any{elements[0], "status"})
	if err == nil || !strings.Contains(err.Error(), `"query/1/filters[1]"`) {
		t.Fatalf("expected indexed resource in error, got %v", err)
	}

	empty, err := decoder.DecodeEach(Context{Resource: "query/1/filters"}, nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non nil slice, got %#v err=%v", empty, err)
	}
}

func TestDecodeExposesLinksToHooks(t *testing.T) {
	payload := map[string]any{
		"_type": "StatusQueryFilter",
		"_links": map[string]any{
			"filter":   map[string]any{"href": "/api/v3/queries/filters/status", "title": "Status"},
			"operator": map[string]any{"href": "/api/v3/queries/operators/%3D"},
			"values": []any{
				map[string]any{"href": "/api/v3/statuses/1", "title": "New"},
				map[string]any{"href": "/api/v3/statuses/7"},
			},
		},
	}
	linkHook := func(ctx Context, _ map[string]any) (map[string]any, error) {
		if !ctx.HasLinks() {
			return nil, errors.New("links not parsed")
		}
		filter, _ := ctx.Link("filter")
		op, _ := ctx.Link("operator")
		values, _ := ctx.LinkList("values")
		out := map[string]any{"filter": filter.ID(), "operator": op.ID()}
		var hrefs []any
		for _, link := range values {
			hrefs = append(hrefs, link.Href)
		}
		out["values"] = hrefs
		return out, nil
	}

	decoder := NewDecoder[filterEntry](
		WithPreHook[filterEntry](linkHook),
		WithDisallowUnknownFields[filterEntry](),
	)
	got, err := decoder.Decode(Context{Resource: "query/2/filters[0]"}, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filterEntry{Filter: "status", Operator: "=", Values: []string{"/api/v3/statuses/1", "/api/v3/statuses/7"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestDisallowUnknownFieldsIgnoresHALKeys(t *testing.T) {
	decoder := NewDecoder[filterEntry](WithDisallowUnknownFields[filterEntry]())
	payload := map[string]any{
		"_type":    "QueryFilter",
		"_links":   map[string]any{"self": map[string]any{"href": "/api/v3/queries/filters/status"}},
		"filter":   "status",
		"operator": "o",
	}
	got, err := decoder.Decode(Context{Resource: "filter"}, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Filter != "status" || got.Operator != "o" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestDecodeCollection(t *testing.T) {
	decoder := NewDecoder[filterEntry]()
	element := map[string]any{"filter": "status", "operator": "o"}

	hal := map[string]any{"_embedded": map[string]any{"filters": []any{element}}}
	plain := map[string]any{"filters": []any{element}}
	for name, payload := range map[string]map[string]any{"embedded": hal, "plain": plain} {
		out, err := decoder.DecodeCollection(Context{Resource: "query/1/filters"}, payload, "filters")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(out) != 1 || out[0].Filter != "status" {
			t.Fatalf("%s: unexpected result %#v", name, out)
		}
	}
	if _, err := decoder.DecodeCollection(Context{Resource: "query/1/filters"}, nil, "filters"); err == nil {
		t.Fatalf("nil collection payload should fail")
	}
}

func TestParseLinksAndSegments(t *testing.T) {
	if ParseLinks(map[string]any{"filter": "status"}) != nil {
		t.Fatalf("payload without _links should yield nil")
	}
	links := ParseLinks(map[string]any{"_links": map[string]any{
		"self":   map[string]any{"href": "/api/v3/queries/9", "title": "Bugs"},
		"values": []any{},
	}})
	if self := links["self"]; len(self) != 1 || self[0] != (Link{Href: "/api/v3/queries/9", Title: "Bugs"}) {
		t.Fatalf("unexpected self link %#v", links["self"])
	}
	if values, ok := links["values"]; !ok || values == nil || len(values) != 0 {
		t.Fatalf("empty link array should stay present and empty, got %#v", values)
	}

	cases := map[string]string{
		"/api/v3/queries/operators/%3D":   "=",
		"/api/v3/queries/operators/**":    "**",
		"/api/v3/queries/filters/status/": "status",
		"":                                "",
	}
	for href, want := range cases {
		if got := SegmentID(href); got != want {
			t.Fatalf("SegmentID(%q)=%q want %q", href, got, want)
		}
	}
	if String(float64(7)) != "7" || String(nil) != "" {
		t.Fatalf("unexpected scalar rendering")
	}
}

func expressionPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	value, ok := payload["expression"].(string)
	if !ok || value == "" {
		return payload, nil
	}
	parts := strings.SplitN(value, " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid filter expression %q", value)
	}
	out := map[string]any{"filter": parts[0], "operator": parts[1]}
	if len(parts) == 3 {
		var values []any
		for _, v := range strings.Split(parts[2], ",") {
			values = append(values, v)
		}
		out["values"] = values
	}
	return out, nil
}

func tagPostHook(ctx Context, entry *filterEntry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if len(entry.Tags) > 0 {
		return nil
	}
	entry.Tags = []string{"query:" + ctx.QueryContext}
	return nil
}

func rawDecoder(ctx Context, payload map[string]any) (filterEntry, error) {
	raw, ok := payload["raw"].(string)
	if !ok || raw == "" {
		return filterEntry{}, fmt.Errorf("missing raw filter for resource %q", ctx.Resource)
	}
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return filterEntry{}, fmt.Errorf("invalid raw filter %q", raw)
	}
	out := filterEntry{Filter: parts[0], Operator: parts[1]}
	if len(parts) > 2 {
		out.Values = parts[2:]
	}
	return out, nil
}
