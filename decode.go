package filters

import (
	"fmt"

	"github.com/goliatone/go-filters/internal/hydrate"
)

// Payloads follow the HAL layout of the query API: links live under _links,
// embedded collections under _embedded. Payloads without _links are decoded
// as the package's own JSON shapes.

var (
	sourceDecoder = hydrate.NewDecoder[Source](
		hydrate.WithPreHook[Source](halSourceHook),
		hydrate.WithPostHook[Source](requireFilterHref),
	)
	schemaDecoder = hydrate.NewDecoder[FilterSchema](
		hydrate.WithPreHook[FilterSchema](halSchemaHook),
		hydrate.WithPostHook[FilterSchema](fillOperatorArity),
	)
)

// DecodeQuery hydrates a query payload. Filters are read from
// _embedded.filters or filters.
func DecodeQuery(payload map[string]any) (Query, error) {
	if payload == nil {
		return Query{}, fmt.Errorf("filters: query payload is nil")
	}
	q := Query{ID: hydrate.String(payload["id"]), Filters: []Source{}}
	if q.ID == "" {
		if self, ok := firstLink(hydrate.ParseLinks(payload), "self"); ok {
			q.ID = self.ID()
		}
	}
	ctx := hydrate.Context{Resource: "query/" + q.ID + "/filters", QueryContext: q.ID}
	sources, err := sourceDecoder.DecodeCollection(ctx, payload, "filters")
	if err != nil {
		return Query{}, fmt.Errorf("filters: decode query %q: %w", q.ID, err)
	}
	q.Filters = append(q.Filters, sources...)
	return q, nil
}

// DecodeSchemas hydrates a filter instance schema collection. Elements are
// read from _embedded.elements or elements.
func DecodeSchemas(payload map[string]any) ([]FilterSchema, error) {
	if payload == nil {
		return nil, fmt.Errorf("filters: schema payload is nil")
	}
	schemas, err := schemaDecoder.DecodeCollection(hydrate.Context{Resource: "filter_instance_schemas"}, payload, "elements")
	if err != nil {
		return nil, fmt.Errorf("filters: decode schemas: %w", err)
	}
	return schemas, nil
}

// DecodeSchema hydrates a single filter instance schema.
func DecodeSchema(payload map[string]any) (FilterSchema, error) {
	schema, err := schemaDecoder.Decode(hydrate.Context{Resource: "filter_instance_schema"}, payload)
	if err != nil {
		return FilterSchema{}, fmt.Errorf("filters: decode schema: %w", err)
	}
	return schema, nil
}

// halSourceHook maps a query filter resource onto Source: the filter, operator
// and schema links name their targets, values come inline or as links.
func halSourceHook(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
	if !ctx.HasLinks() {
		return payload, nil
	}
	filter, ok := ctx.Link("filter")
	if !ok {
		return nil, fmt.Errorf("filter link is missing")
	}
	out := map[string]any{
		"filter": map[string]any{
			"id":    filter.ID(),
			"href":  filter.Href,
			"title": filter.Title,
		},
	}
	if op, ok := ctx.Link("operator"); ok {
		out["operator"] = op.ID()
	}
	if schema, ok := ctx.Link("schema"); ok {
		out["schema"] = schema.ID()
	}

	values := []any{}
	if raw, ok := payload["values"].([]any); ok {
		for _, value := range raw {
			values = append(values, hydrate.String(value))
		}
	} else if linked, ok := ctx.LinkList("values"); ok {
		for _, link := range linked {
			values = append(values, link.Href)
		}
	}
	out["values"] = values
	return out, nil
}

// halSchemaHook maps a filter instance schema resource onto FilterSchema. The
// filter's allowed values may be embedded resources or links; operators are
// always links.
func halSchemaHook(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
	if !ctx.HasLinks() {
		return payload, nil
	}
	self, _ := ctx.Link("self")
	out := map[string]any{
		"id":   self.ID(),
		"href": self.Href,
	}

	allowed := []any{}
	if filter, ok := payload["filter"].(map[string]any); ok {
		entries, _ := filter["allowedValues"].([]any)
		if len(entries) > 0 {
			for _, entry := range entries {
				if ref, ok := resourceRef(entry); ok {
					allowed = append(allowed, ref)
				}
			}
		} else {
			for _, link := range hydrate.ParseLinks(filter)["allowedValues"] {
				allowed = append(allowed, map[string]any{"id": link.ID(), "href": link.Href, "title": link.Title})
			}
		}
	}
	out["allowedValues"] = allowed

	operators := []any{}
	if operator, ok := payload["operator"].(map[string]any); ok {
		for _, link := range hydrate.ParseLinks(operator)["allowedValues"] {
			operators = append(operators, map[string]any{
				"id":   link.ID(),
				"href": link.Href,
			})
		}
	}
	out["operators"] = operators
	if rule, ok := payload["rule"].(string); ok {
		out["rule"] = rule
	}
	return out, nil
}

func requireFilterHref(_ hydrate.Context, src *Source) error {
	if src.Filter.Href == "" {
		return fmt.Errorf("filter href is empty")
	}
	if src.Filter.ID == "" {
		src.Filter.ID = hydrate.SegmentID(src.Filter.Href)
	}
	return nil
}

func fillOperatorArity(_ hydrate.Context, schema *FilterSchema) error {
	for i := range schema.Operators {
		if schema.Operators[i].Arity == "" {
			schema.Operators[i].Arity = ArityFor(schema.Operators[i].ID)
		}
	}
	return nil
}

// resourceRef reads an embedded resource ({id, name, _links.self}) or a bare
// link ({href, title}).
func resourceRef(entry any) (map[string]any, bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return nil, false
	}
	href := hydrate.String(m["href"])
	title := hydrate.String(m["title"])
	if self, ok := firstLink(hydrate.ParseLinks(m), "self"); ok && self.Href != "" {
		href = self.Href
		if title == "" {
			title = self.Title
		}
	}
	if title == "" {
		title = hydrate.String(m["name"])
	}
	id := hydrate.String(m["id"])
	if id == "" {
		id = hydrate.SegmentID(href)
	}
	if href == "" && id == "" {
		return nil, false
	}
	return map[string]any{"id": id, "href": href, "title": title}, true
}

func firstLink(links map[string][]hydrate.Link, rel string) (hydrate.Link, bool) {
	if len(links[rel]) == 0 {
		return hydrate.Link{}, false
	}
	return links[rel][0], true
}
