package filters

import (
	"context"
	"sync"
)

const (
	testFilterPrefix = "/api/v3/queries/filters/"
	testSchemaPrefix = "/api/v3/queries/filter_instance_schemas/"
)

func testRef(id string) FilterResourceRef {
	return FilterResourceRef{ID: id, Href: testFilterPrefix + id, Title: id}
}

func testSchema(id string, operators ...string) FilterSchema {
	ops := make([]Operator, 0, len(operators))
	for _, op := range operators {
		ops = append(ops, Operator{ID: op})
	}
	return FilterSchema{
		ID:            id,
		Href:          testSchemaPrefix + id,
		AllowedValues: []FilterResourceRef{testRef(id)},
		Operators:     ops,
	}
}

// testSchemas is the catalogue most tests run against. id and parent are
// system fields, search is display only, subjectOrId is hidden.
func testSchemas() []FilterSchema {
	return []FilterSchema{
		testSchema("status", "o", "c", "="),
		testSchema("assignee", "=", "!*"),
		testSchema("search", "**"),
		testSchema("parent", "="),
		testSchema("id", "="),
		testSchema("subjectOrId", "**"),
		testSchema("type", "="),
	}
}

func testInstance(id, operator string, values ...string) *FilterInstance {
	return &FilterInstance{
		ID:       id,
		Name:     id,
		Filter:   testRef(id),
		SchemaID: id,
		Operator: operator,
		Values:   values,
	}
}

func testSource(id, operator string, values ...string) Source {
	return testInstance(id, operator, values...).Source()
}

type recordingLogger struct {
	mu     sync.Mutex
	events []LogEvent
}

func (l *recordingLogger) Log(event LogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLogger) byOp(op Op) []LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEvent
	for _, event := range l.events {
		if event.Op == op {
			out = append(out, event)
		}
	}
	return out
}

type countingResolver struct {
	mu      sync.Mutex
	schemas map[string]FilterSchema
	err     error
	calls   []string
}

func (r *countingResolver) ResolveSchema(_ context.Context, id string) (FilterSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	if r.err != nil {
		return FilterSchema{}, r.err
	}
	schema, ok := r.schemas[id]
	if !ok {
		return FilterSchema{}, ErrSchemaNotFound
	}
	return schema, nil
}
