// Package picker exports the document a filter selection UI renders: the
// fields that can still be added and the active filters on display.
package picker

import (
	"encoding/json"

	filters "github.com/goliatone/go-filters"
)

// Source is the read side of a filters.Service.
type Source interface {
	Catalogue() *filters.Catalogue
	Classifier() filters.Classifier
	RemainingFilters() []filters.FilterResourceRef
	RemainingVisibleFilters() []filters.FilterResourceRef
	CurrentlyVisibleFilters() []*filters.FilterInstance
	IsComplete() bool
}

// Entry is one field that can be added.
type Entry struct {
	ID         string             `json:"id"`
	Href       string             `json:"href"`
	Title      string             `json:"title,omitempty"`
	Schema     string             `json:"schema,omitempty"`
	Visibility string             `json:"visibility"`
	Operators  []filters.Operator `json:"operators,omitempty"`
}

// Active is one displayed active filter.
type Active struct {
	ID       string   `json:"id"`
	Href     string   `json:"href"`
	Name     string   `json:"name,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// Document is the picker payload. Visible holds the selectable fields;
// Offered adds hidden and display-only fields when requested.
type Document struct {
	Visible  []Entry  `json:"visible"`
	Offered  []Entry  `json:"offered,omitempty"`
	Active   []Active `json:"active"`
	Complete bool     `json:"complete"`
}

// ToJSON serialises the document.
func (d Document) ToJSON() ([]byte, error) {
	type alias Document
	return json.Marshal(alias(d))
}

// Option configures Export.
type Option func(*exportConfig)

type exportConfig struct {
	offered bool
}

// WithOffered includes every non system field without an active filter in
// Document.Offered.
func WithOffered() Option {
	return func(cfg *exportConfig) {
		cfg.offered = true
	}
}

// Export builds the picker document for src. System fields never appear.
func Export(src Source, opts ...Option) Document {
	cfg := exportConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cat := src.Catalogue()
	cls := src.Classifier()

	doc := Document{
		Visible:  entries(cat, cls, src.RemainingVisibleFilters()),
		Active:   []Active{},
		Complete: src.IsComplete(),
	}
	if cfg.offered {
		doc.Offered = entries(cat, cls, src.RemainingFilters())
	}
	for _, inst := range src.CurrentlyVisibleFilters() {
		doc.Active = append(doc.Active, Active{
			ID:       inst.ID,
			Href:     inst.Filter.Href,
			Name:     inst.Name,
			Operator: inst.Operator,
			Values:   append([]string(nil), inst.Values...),
		})
	}
	return doc
}

func entries(cat *filters.Catalogue, cls filters.Classifier, refs []filters.FilterResourceRef) []Entry {
	out := make([]Entry, 0, len(refs))
	for _, ref := range refs {
		entry := Entry{
			ID:         ref.ID,
			Href:       ref.Href,
			Title:      ref.Title,
			Visibility: cls.Classify(ref.ID).String(),
		}
		if schema, ok := cat.ByHref(ref.Href); ok {
			entry.Schema = schema.ID
			entry.Operators = schema.Operators
		}
		out = append(out, entry)
	}
	return out
}
