// Package hydrate turns HAL resources of the query API into typed values.
// Links under _links are parsed before any hook runs and handed to hooks
// through Context; embedded collections are read from _embedded.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Link is one HAL link object.
type Link struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// ID returns the unescaped last path segment of the href, so
// /api/v3/queries/operators/%3D yields "=".
func (l Link) ID() string {
	return SegmentID(l.Href)
}

// Context identifies the resource being decoded and carries its parsed links.
type Context struct {
	Resource     string
	QueryContext string
	Links        map[string][]Link
}

// Link returns the first link with rel.
func (c Context) Link(rel string) (Link, bool) {
	links := c.Links[rel]
	if len(links) == 0 {
		return Link{}, false
	}
	return links[0], true
}

// LinkList returns every link with rel. A rel that is present but empty
// yields an empty, non nil slice.
func (c Context) LinkList(rel string) ([]Link, bool) {
	links, ok := c.Links[rel]
	return links, ok
}

// HasLinks reports whether the resource carried a _links object.
func (c Context) HasLinks() bool {
	return c.Links != nil
}

func (c Context) errorf(format string, args ...any) error {
	return fmt.Errorf("hydrate: resource %q: "+format, append([]any{c.Resource}, args...)...)
}

// PreHook reshapes the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts HAL resources into T.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	strict bool
	custom CustomDecoder[T]
}

// WithPreHook runs hook before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook runs hook after decoding.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithDisallowUnknownFields rejects payload keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithCustomDecoder replaces JSON decoding with decoder.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts one resource. The payload is copied first; hooks never see
// the caller's map. Links found under _links are exposed through ctx.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, ctx.errorf("payload is nil")
	}
	current, err := clonePayload(payload)
	if err != nil {
		return zero, ctx.errorf("clone payload: %w", err)
	}
	ctx.Links = ParseLinks(current)

	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return zero, ctx.errorf("pre-hook failed: %w", err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		if result, err = d.custom(ctx, current); err != nil {
			return zero, ctx.errorf("custom decoder failed: %w", err)
		}
	} else if err := d.decodeJSON(current, &result); err != nil {
		return zero, ctx.errorf("decode: %w", err)
	}

	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, ctx.errorf("post-hook failed: %w", err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) decodeJSON(payload map[string]any, out *T) error {
	if d.strict {
		// HAL bookkeeping is not part of any decoded type.
		delete(payload, "_links")
		delete(payload, "_embedded")
		delete(payload, "_type")
	}
	buffer, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(buffer))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(out)
}

// DecodeEach decodes every element of a collection. The element index is
// appended to ctx.Resource.
func (d *Decoder[T]) DecodeEach(ctx Context, elements []any) ([]T, error) {
	out := make([]T, 0, len(elements))
	for i, element := range elements {
		item := Context{Resource: fmt.Sprintf("%s[%d]", ctx.Resource, i), QueryContext: ctx.QueryContext}
		payload, ok := element.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("hydrate: element of resource %q is %T, not an object", item.Resource, element)
		}
		value, err := d.Decode(item, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// DecodeCollection decodes the collection embedded in payload under key.
func (d *Decoder[T]) DecodeCollection(ctx Context, payload map[string]any, key string) ([]T, error) {
	if payload == nil {
		return nil, ctx.errorf("collection payload is nil")
	}
	return d.DecodeEach(ctx, Embedded(payload, key))
}

// Embedded returns the collection under _embedded[key], falling back to a
// top level key for payloads that are not HAL encoded.
func Embedded(payload map[string]any, key string) []any {
	if embedded, ok := payload["_embedded"].(map[string]any); ok {
		if items, ok := embedded[key].([]any); ok {
			return items
		}
	}
	items, _ := payload[key].([]any)
	return items
}

// ParseLinks reads the _links object of payload. Each rel holds either a link
// object or an array of them. Nil means the payload has no _links.
func ParseLinks(payload map[string]any) map[string][]Link {
	raw, ok := payload["_links"].(map[string]any)
	if !ok {
		return nil
	}
	links := make(map[string][]Link, len(raw))
	for rel, value := range raw {
		switch v := value.(type) {
		case map[string]any:
			links[rel] = []Link{linkFrom(v)}
		case []any:
			list := make([]Link, 0, len(v))
			for _, entry := range v {
				if m, ok := entry.(map[string]any); ok {
					list = append(list, linkFrom(m))
				}
			}
			links[rel] = list
		}
	}
	return links
}

func linkFrom(m map[string]any) Link {
	return Link{Href: String(m["href"]), Title: String(m["title"])}
}

// SegmentID returns the unescaped final path segment of href.
func SegmentID(href string) string {
	href = strings.TrimRight(href, "/")
	if href == "" {
		return ""
	}
	segment := href[strings.LastIndex(href, "/")+1:]
	if unescaped, err := url.PathUnescape(segment); err == nil {
		return unescaped
	}
	return segment
}

// String renders a scalar JSON value as a string. Numbers keep their integer
// form.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
