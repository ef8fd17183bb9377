package filters

import (
	"strings"

	"github.com/goliatone/go-filters/internal/clone"
)

// Arity describes how many value slots an operator expects.
type Arity string

const (
	// ArityNone operators (open, closed, none, all, today) take no values.
	ArityNone Arity = "none"
	// AritySingle operators take exactly one value.
	AritySingle Arity = "single"
	// ArityMulti operators take one or more values.
	ArityMulti Arity = "multi"
)

// FilterResourceRef identifies a filterable field. ID is the business key
// ("status", "assignee"); Href is the token used to compare against remote
// state. Title is display data only.
type FilterResourceRef struct {
	ID    string `json:"id"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// IsZero reports whether the ref carries neither id nor href.
func (r FilterResourceRef) IsZero() bool {
	return r.ID == "" && r.Href == ""
}

// Operator is one operator a schema permits.
type Operator struct {
	ID    string `json:"id"`
	Href  string `json:"href,omitempty"`
	Arity Arity  `json:"arity,omitempty"`
}

// FilterSchema is the server declared description of a filterable field.
// The first entry of AllowedValues is the schema's identity token. Rule is an
// optional boolean expression that must hold for an instance to be complete.
type FilterSchema struct {
	ID            string              `json:"id"`
	Href          string              `json:"href,omitempty"`
	AllowedValues []FilterResourceRef `json:"allowedValues"`
	Operators     []Operator          `json:"operators,omitempty"`
	Rule          string              `json:"rule,omitempty"`
}

// Filter returns the schema's identity token.
func (s FilterSchema) Filter() (FilterResourceRef, bool) {
	if len(s.AllowedValues) == 0 {
		return FilterResourceRef{}, false
	}
	return s.AllowedValues[0], true
}

// Operator looks up an operator by id.
func (s FilterSchema) Operator(id string) (Operator, bool) {
	for _, op := range s.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return Operator{}, false
}

// MakeFilter instantiates a new, possibly incomplete, filter for the schema.
// The first declared operator becomes the default.
func (s FilterSchema) MakeFilter() *FilterInstance {
	ref, _ := s.Filter()
	inst := &FilterInstance{
		ID:       ref.ID,
		Name:     ref.Title,
		Filter:   ref,
		SchemaID: s.ID,
	}
	if len(s.Operators) > 0 {
		inst.Operator = s.Operators[0].ID
	}
	return inst
}

// FilterInstance is a concrete application of a schema to the current view.
// SchemaID is a lookup key into the active Catalogue, never an owning
// reference, so a catalogue refresh turns it into a lookup miss.
type FilterInstance struct {
	ID       string
	Name     string
	Filter   FilterResourceRef
	SchemaID string
	Operator string
	Values   []string
}

// NewInstance builds a live instance from its persisted projection.
func NewInstance(src Source) *FilterInstance {
	src = clone.Clone(src)
	return &FilterInstance{
		ID:       src.Filter.ID,
		Name:     src.Filter.Title,
		Filter:   src.Filter,
		SchemaID: src.Schema,
		Operator: src.Operator,
		Values:   src.Values,
	}
}

// Source returns the persisted projection used for change detection.
func (f *FilterInstance) Source() Source {
	if f == nil {
		return Source{}
	}
	return Source{
		Filter:   f.Filter,
		Operator: f.Operator,
		Values:   append([]string(nil), f.Values...),
		Schema:   f.SchemaID,
	}
}

// Clone returns an independent copy of the instance.
func (f *FilterInstance) Clone() *FilterInstance {
	if f == nil {
		return nil
	}
	out := *f
	out.Values = append([]string(nil), f.Values...)
	return &out
}

// WithOperator returns a copy using operator op.
func (f *FilterInstance) WithOperator(op string) *FilterInstance {
	out := f.Clone()
	out.Operator = op
	return out
}

// WithValues returns a copy carrying values.
func (f *FilterInstance) WithValues(values ...string) *FilterInstance {
	out := f.Clone()
	out.Values = append([]string(nil), values...)
	return out
}

func (f *FilterInstance) String() string {
	if f == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(f.Filter.ID)
	b.WriteByte(' ')
	b.WriteString(f.Operator)
	if len(f.Values) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(f.Values, ","))
	}
	return b.String()
}

// Source is the persisted projection of a filter instance: what the remote
// query stores and what change detection compares.
type Source struct {
	Filter   FilterResourceRef `json:"filter"`
	Operator string            `json:"operator,omitempty"`
	Values   []string          `json:"values,omitempty"`
	Schema   string            `json:"schema,omitempty"`
}

// Query is the remote query representation the filter set is loaded from and
// applied to.
type Query struct {
	ID      string   `json:"id,omitempty"`
	Filters []Source `json:"filters"`
}

// SetFilters implements QueryTarget.
func (q *Query) SetFilters(filters []Source) {
	q.Filters = filters
}

// QueryTarget receives the current filter list on ApplyTo.
type QueryTarget interface {
	SetFilters(filters []Source)
}

// Sources projects instances into their persisted form.
func Sources(instances []*FilterInstance) []Source {
	out := make([]Source, 0, len(instances))
	for _, inst := range instances {
		if inst == nil {
			continue
		}
		out = append(out, inst.Source())
	}
	return out
}
