package filters

import (
	"context"

	"github.com/goliatone/go-filters/internal/clone"
)

// Catalogue is a read-only snapshot of the filter schemas the server permits
// for one query context. Accessors return copies; nothing a caller does with
// them reaches the snapshot.
type Catalogue struct {
	available []FilterSchema
	byID      map[string]FilterSchema
	byHref    map[string]int
}

// CatalogueOption configures catalogue construction.
type CatalogueOption func(*catalogueConfig)

type catalogueConfig struct {
	resolved []FilterSchema
}

// WithResolved registers schemas that are reachable by id (for example the
// schema of an active hidden filter) without offering them in the available
// list.
func WithResolved(schemas ...FilterSchema) CatalogueOption {
	return func(cfg *catalogueConfig) {
		cfg.resolved = append(cfg.resolved, schemas...)
	}
}

// NewCatalogue deep copies schemas and indexes them by id and identity href.
// When two schemas share an identity href the first one wins.
func NewCatalogue(schemas []FilterSchema, opts ...CatalogueOption) *Catalogue {
	cfg := catalogueConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	c := &Catalogue{
		available: clone.Slice(schemas),
		byID:      make(map[string]FilterSchema, len(schemas)+len(cfg.resolved)),
		byHref:    make(map[string]int, len(schemas)),
	}
	if c.available == nil {
		c.available = []FilterSchema{}
	}
	for i, schema := range c.available {
		if schema.ID != "" {
			if _, exists := c.byID[schema.ID]; !exists {
				c.byID[schema.ID] = schema
			}
		}
		ref, ok := schema.Filter()
		if !ok || ref.Href == "" {
			continue
		}
		if _, exists := c.byHref[ref.Href]; !exists {
			c.byHref[ref.Href] = i
		}
	}
	for _, schema := range clone.Slice(cfg.resolved) {
		if schema.ID == "" {
			continue
		}
		if _, exists := c.byID[schema.ID]; !exists {
			c.byID[schema.ID] = schema
		}
	}
	return c
}

// Len returns the number of available schemas.
func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.available)
}

// Schemas returns the available schemas in catalogue order.
func (c *Catalogue) Schemas() []FilterSchema {
	if c == nil {
		return []FilterSchema{}
	}
	return clone.Slice(c.available)
}

// Filters returns the identity token of every available schema in catalogue
// order. Schemas without allowed values are skipped.
func (c *Catalogue) Filters() []FilterResourceRef {
	if c == nil {
		return []FilterResourceRef{}
	}
	out := make([]FilterResourceRef, 0, len(c.available))
	for _, schema := range c.available {
		if ref, ok := schema.Filter(); ok {
			out = append(out, ref)
		}
	}
	return out
}

// ByHref finds the available schema whose identity token has href.
func (c *Catalogue) ByHref(href string) (FilterSchema, bool) {
	if c == nil || href == "" {
		return FilterSchema{}, false
	}
	idx, ok := c.byHref[href]
	if !ok {
		return FilterSchema{}, false
	}
	return clone.Clone(c.available[idx]), true
}

// ByID resolves a schema id, returning ErrStaleSchemaReference on a miss.
func (c *Catalogue) ByID(id string) (FilterSchema, error) {
	if c == nil || id == "" {
		return FilterSchema{}, ErrStaleSchemaReference
	}
	schema, ok := c.byID[id]
	if !ok {
		return FilterSchema{}, ErrStaleSchemaReference
	}
	return clone.Clone(schema), nil
}

// Has reports whether id resolves.
func (c *Catalogue) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

// CatalogueSource loads the schemas permitted for a query context.
type CatalogueSource interface {
	LoadCatalogue(ctx context.Context, queryContext string) ([]FilterSchema, error)
}

// CatalogueSourceFunc adapts a function to CatalogueSource.
type CatalogueSourceFunc func(ctx context.Context, queryContext string) ([]FilterSchema, error)

// LoadCatalogue implements CatalogueSource.
func (fn CatalogueSourceFunc) LoadCatalogue(ctx context.Context, queryContext string) ([]FilterSchema, error) {
	return fn(ctx, queryContext)
}

// SchemaResolver fetches a single schema by id, used for filters whose schema
// is not part of the available catalogue.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, schemaID string) (FilterSchema, error)
}

// SchemaResolverFunc adapts a function to SchemaResolver.
type SchemaResolverFunc func(ctx context.Context, schemaID string) (FilterSchema, error)

// ResolveSchema implements SchemaResolver.
func (fn SchemaResolverFunc) ResolveSchema(ctx context.Context, schemaID string) (FilterSchema, error) {
	return fn(ctx, schemaID)
}

// LoadCatalogue fetches schemas from src and builds a Catalogue. Any failure,
// including a nil source, is reported as *CatalogueUnavailableError.
func LoadCatalogue(ctx context.Context, src CatalogueSource, queryContext string) (*Catalogue, error) {
	if src == nil {
		return nil, &CatalogueUnavailableError{Context: queryContext, Err: errNilSource}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	schemas, err := src.LoadCatalogue(ctx, queryContext)
	if err != nil {
		return nil, &CatalogueUnavailableError{Context: queryContext, Err: err}
	}
	return NewCatalogue(schemas), nil
}
