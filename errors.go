package filters

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaNotFound matches every *SchemaNotFoundError.
	ErrSchemaNotFound = errors.New("filters: schema not found")
	// ErrCatalogueUnavailable matches every *CatalogueUnavailableError.
	ErrCatalogueUnavailable = errors.New("filters: catalogue unavailable")
	// ErrStaleSchemaReference is returned when a filter's schema id is not part
	// of the active catalogue, typically after a catalogue refresh.
	ErrStaleSchemaReference = errors.New("filters: stale schema reference")
	// ErrFilterActive matches every *DuplicateFilterError.
	ErrFilterActive = errors.New("filters: filter already active")
	// ErrNoEvaluator is returned when a rule needs evaluation and no evaluator
	// could be configured.
	ErrNoEvaluator = errors.New("filters: evaluator not configured")

	errNilSource = errors.New("catalogue source is nil")
)

// SchemaNotFoundError reports an Add for an identity token the catalogue does
// not offer.
type SchemaNotFoundError struct {
	Href string
}

func (e *SchemaNotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("filters: no schema for filter href=%q", e.Href)
}

// Is matches ErrSchemaNotFound.
func (e *SchemaNotFoundError) Is(target error) bool {
	return target == ErrSchemaNotFound
}

// DuplicateFilterError reports an Add for a field that already has an active
// filter.
type DuplicateFilterError struct {
	Href string
}

func (e *DuplicateFilterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("filters: filter href=%q is already active", e.Href)
}

// Is matches ErrFilterActive.
func (e *DuplicateFilterError) Is(target error) bool {
	return target == ErrFilterActive
}

// CatalogueUnavailableError wraps a failed catalogue load or per-filter schema
// fetch. It is not retried.
type CatalogueUnavailableError struct {
	Context  string
	SchemaID string
	Err      error
}

func (e *CatalogueUnavailableError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string
	if e.Context != "" {
		parts = append(parts, fmt.Sprintf("context=%q", e.Context))
	}
	if e.SchemaID != "" {
		parts = append(parts, fmt.Sprintf("schema=%q", e.SchemaID))
	}
	msg := "filters: catalogue unavailable"
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, " ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CatalogueUnavailableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrCatalogueUnavailable.
func (e *CatalogueUnavailableError) Is(target error) bool {
	return target == ErrCatalogueUnavailable
}

// EvaluationError captures rule evaluation metadata alongside the cause.
type EvaluationError struct {
	Engine string
	Expr   string
	Filter string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("filters: %s evaluator %s filter=%s: %v", e.Engine, describeExpression(e.Expr), e.Filter, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

// wrapEvaluationError attaches engine metadata, filling only blank fields when
// err already is an *EvaluationError.
func wrapEvaluationError(engine, expr, filter string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Filter == "" {
			evalErr.Filter = filter
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, Filter: filter, Err: err}
}
