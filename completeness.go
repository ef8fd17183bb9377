package filters

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// RuleContext carries the inputs of a completeness rule.
type RuleContext struct {
	Filter *FilterInstance
	Schema FilterSchema
	Args   map[string]any
}

func (ctx RuleContext) label() string {
	if ctx.Filter != nil && ctx.Filter.ID != "" {
		return ctx.Filter.ID
	}
	if ctx.Schema.ID != "" {
		return ctx.Schema.ID
	}
	return "unknown"
}

// binding exposes the rule variables: operator, values, filter, schema, args.
func (ctx RuleContext) binding() map[string]any {
	values := []any{}
	operator := ""
	filter := map[string]any{}
	if ctx.Filter != nil {
		operator = ctx.Filter.Operator
		for _, value := range ctx.Filter.Values {
			values = append(values, value)
		}
		filter["id"] = ctx.Filter.Filter.ID
		filter["href"] = ctx.Filter.Filter.Href
	}
	args := ctx.Args
	if args == nil {
		args = map[string]any{}
	}
	return map[string]any{
		"operator": operator,
		"values":   values,
		"filter":   filter,
		"schema":   map[string]any{"id": ctx.Schema.ID},
		"args":     args,
	}
}

// Evaluator executes completeness rule expressions.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

var (
	errNoOperator      = errors.New("operator is not set")
	errUnknownOperator = errors.New("operator is not allowed by schema")
	errMissingValues   = errors.New("operator requires values")
	errTooManyValues   = errors.New("operator takes a single value")
	errBlankValue      = errors.New("value is blank")
	errRuleNotBool     = errors.New("rule did not return a boolean")
	errRuleRejected    = errors.New("rule evaluated to false")
)

// IncompleteFilterError explains why an instance is not completely defined.
type IncompleteFilterError struct {
	Filter string
	Reason error
}

func (e *IncompleteFilterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("filters: filter %q is incomplete: %v", e.Filter, e.Reason)
}

func (e *IncompleteFilterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Reason
}

var defaultArities = map[string]Arity{
	"o":   ArityNone,
	"c":   ArityNone,
	"*":   ArityNone,
	"!*":  ArityNone,
	"t":   ArityNone,
	"w":   ArityNone,
	"~":   AritySingle,
	"!~":  AritySingle,
	"**":  AritySingle,
	">t-": AritySingle,
	"<t-": AritySingle,
	"t-":  AritySingle,
	">t+": AritySingle,
	"<t+": AritySingle,
	"t+":  AritySingle,
	"=d":  AritySingle,
	"<>d": ArityMulti,
	"=":   ArityMulti,
	"!":   ArityMulti,
}

// ArityFor returns the value arity of an operator id, defaulting to multi.
func ArityFor(operatorID string) Arity {
	if arity, ok := defaultArities[operatorID]; ok {
		return arity
	}
	return ArityMulti
}

func (o Operator) arity() Arity {
	if o.Arity != "" {
		return o.Arity
	}
	return ArityFor(o.ID)
}

// IsCompletelyDefined applies the structural completeness rule: an operator is
// set and allowed by the schema, and the value slots match its arity. The
// schema's Rule expression is not consulted; see CompletenessChecker.
func IsCompletelyDefined(inst *FilterInstance, schema FilterSchema) bool {
	return structuralCheck(inst, schema) == nil
}

func structuralCheck(inst *FilterInstance, schema FilterSchema) error {
	if inst == nil {
		return errNoOperator
	}
	opID := strings.TrimSpace(inst.Operator)
	if opID == "" {
		return errNoOperator
	}
	op := Operator{ID: opID}
	if len(schema.Operators) > 0 {
		found, ok := schema.Operator(opID)
		if !ok {
			return errUnknownOperator
		}
		op = found
	}

	for _, value := range inst.Values {
		if strings.TrimSpace(value) == "" {
			return errBlankValue
		}
	}
	switch op.arity() {
	case ArityNone:
		return nil
	case AritySingle:
		if len(inst.Values) == 0 {
			return errMissingValues
		}
		if len(inst.Values) > 1 {
			return errTooManyValues
		}
	default:
		if len(inst.Values) == 0 {
			return errMissingValues
		}
	}
	return nil
}

// CompletenessChecker applies the structural rule and then the schema's Rule
// expression, when present.
type CompletenessChecker struct {
	mu        sync.Mutex
	evaluator Evaluator
	logger    Logger
	args      map[string]any
}

// CheckerOption configures a CompletenessChecker.
type CheckerOption func(*CompletenessChecker)

// CheckerWithEvaluator sets the rule evaluator. Nil keeps the default.
func CheckerWithEvaluator(e Evaluator) CheckerOption {
	return func(c *CompletenessChecker) {
		if e != nil {
			c.evaluator = e
		}
	}
}

// CheckerWithLogger sets the logger receiving evaluation events.
func CheckerWithLogger(l Logger) CheckerOption {
	return func(c *CompletenessChecker) {
		if l != nil {
			c.logger = l
		}
	}
}

// CheckerWithArgs exposes args to rule expressions.
func CheckerWithArgs(args map[string]any) CheckerOption {
	return func(c *CompletenessChecker) {
		c.args = copyArgs(args)
	}
}

// NewCompletenessChecker builds a checker. Without an evaluator, rules run on
// a default expr evaluator created on first use.
func NewCompletenessChecker(opts ...CheckerOption) *CompletenessChecker {
	c := &CompletenessChecker{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Check reports whether inst is complete for schema.
func (c *CompletenessChecker) Check(inst *FilterInstance, schema FilterSchema) bool {
	return c.Explain(inst, schema) == nil
}

// Explain returns nil for a complete instance, otherwise an
// *IncompleteFilterError describing the first failed requirement.
func (c *CompletenessChecker) Explain(inst *FilterInstance, schema FilterSchema) error {
	label := schema.ID
	if inst != nil && inst.ID != "" {
		label = inst.ID
	}
	if err := structuralCheck(inst, schema); err != nil {
		return &IncompleteFilterError{Filter: label, Reason: err}
	}
	if strings.TrimSpace(schema.Rule) == "" {
		return nil
	}
	ok, err := c.evaluateRule(RuleContext{Filter: inst, Schema: schema, Args: c.args}, schema.Rule)
	if err != nil {
		return &IncompleteFilterError{Filter: label, Reason: err}
	}
	if !ok {
		return &IncompleteFilterError{Filter: label, Reason: errRuleRejected}
	}
	return nil
}

func (c *CompletenessChecker) evaluateRule(ctx RuleContext, expr string) (bool, error) {
	evaluator := c.resolveEvaluator()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.label(), evalErr)

	var result bool
	if evalErr == nil {
		b, ok := value.(bool)
		if !ok {
			evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.label(), errRuleNotBool)
		}
		result = b
	}
	c.logger.Log(LogEvent{
		Op:       OpEvaluate,
		Filter:   ctx.label(),
		Engine:   evaluatorEngineName(evaluator),
		Expr:     expr,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return false, evalErr
	}
	return result, nil
}

func (c *CompletenessChecker) resolveEvaluator() Evaluator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evaluator == nil {
		c.evaluator = NewExprEvaluator()
	}
	return c.evaluator
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if named, ok := e.(interface{ Engine() string }); ok {
			return named.Engine()
		}
		return "custom"
	}
}

func copyArgs(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = value
	}
	return out
}
