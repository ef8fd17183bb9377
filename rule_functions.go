package filters

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Function is a helper callable from completeness rules.
type Function func(args ...any) (any, error)

// RuleFunctions stores rule helpers keyed by name. Names are case sensitive.
type RuleFunctions struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewRuleFunctions constructs an empty registry.
func NewRuleFunctions() *RuleFunctions {
	return &RuleFunctions{
		functions: make(map[string]Function),
	}
}

// DefaultRuleFunctions returns a registry with present, isDate and isInteger.
func DefaultRuleFunctions() *RuleFunctions {
	r := NewRuleFunctions()
	_ = r.Register("present", rulePresent)
	_ = r.Register("isDate", ruleIsDate)
	_ = r.Register("isInteger", ruleIsInteger)
	return r
}

// Register stores fn under name, rejecting duplicates.
func (r *RuleFunctions) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("filters: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("filters: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("filters: function %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *RuleFunctions) Clone() *RuleFunctions {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &RuleFunctions{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		out.functions[name] = fn
	}
	return out
}

// Call executes the function registered for name.
func (r *RuleFunctions) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("filters: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("filters: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered names sorted alphabetically.
func (r *RuleFunctions) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// present reports whether any argument carries a non blank value. Slices are
// flattened one level.
func rulePresent(args ...any) (any, error) {
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return true, nil
			}
		case []string:
			for _, s := range v {
				if strings.TrimSpace(s) != "" {
					return true, nil
				}
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					return true, nil
				}
			}
		case nil:
		default:
			return true, nil
		}
	}
	return false, nil
}

func ruleIsDate(args ...any) (any, error) {
	s, err := singleString("isDate", args)
	if err != nil {
		return nil, err
	}
	_, parseErr := time.Parse("2006-01-02", s)
	return parseErr == nil, nil
}

func ruleIsInteger(args ...any) (any, error) {
	s, err := singleString("isInteger", args)
	if err != nil {
		return nil, err
	}
	_, parseErr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return parseErr == nil, nil
}

func singleString(name string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("filters: %s expects 1 argument, got %d", name, len(args))
	}
	switch v := args[0].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}
