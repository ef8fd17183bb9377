package filters

import (
	"strings"
	"time"

	"github.com/goliatone/go-filters/pkg/activity"
)

// Option configures a Service.
type Option func(*serviceConfig)

type serviceConfig struct {
	classifier     Classifier
	evaluator      Evaluator
	engine         string
	programCache   ProgramCache
	functions      *RuleFunctions
	ruleArgs       map[string]any
	logger         Logger
	resolver       SchemaResolver
	activityHooks  activity.Hooks
	activityConfig activity.Config
	actor          actorRef
	queryID        string
	now            func() time.Time
}

type actorRef struct {
	ActorID  string
	UserID   string
	TenantID string
}

func applyOptions(opts []Option) serviceConfig {
	cfg := serviceConfig{
		classifier:     DefaultClassifier(),
		engine:         "expr",
		logger:         noopLogger{},
		activityConfig: activity.Config{Enabled: true, Channel: activity.DefaultChannel},
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithClassifier replaces the visibility classifier.
func WithClassifier(c Classifier) Option {
	return func(cfg *serviceConfig) {
		cfg.classifier = c
	}
}

// WithEvaluator sets the completeness rule evaluator, overriding WithRuleEngine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *serviceConfig) {
		cfg.evaluator = e
	}
}

// WithRuleEngine selects the rule evaluator by name: expr, cel or js. The js
// engine requires the js_eval build tag; without it rules fall back to expr.
func WithRuleEngine(name string) Option {
	return func(cfg *serviceConfig) {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			cfg.engine = name
		}
	}
}

// WithProgramCache shares compiled rule programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *serviceConfig) {
		cfg.programCache = cache
	}
}

// WithRuleFunctions replaces the helpers available to rule expressions.
func WithRuleFunctions(registry *RuleFunctions) Option {
	return func(cfg *serviceConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithRuleArgs exposes args to rule expressions.
func WithRuleArgs(args map[string]any) Option {
	return func(cfg *serviceConfig) {
		cfg.ruleArgs = copyArgs(args)
	}
}

// WithLogger attaches a logger. A nil logger disables logging.
func WithLogger(l Logger) Option {
	return func(cfg *serviceConfig) {
		if l == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = l
	}
}

// WithSchemaResolver fetches schemas of filters the supplied catalogue does
// not carry.
func WithSchemaResolver(r SchemaResolver) Option {
	return func(cfg *serviceConfig) {
		cfg.resolver = r
	}
}

// WithActivityHooks attaches activity hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *serviceConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig controls whether and where events are emitted.
func WithActivityConfig(c activity.Config) Option {
	return func(cfg *serviceConfig) {
		cfg.activityConfig = c
	}
}

// WithActor stamps emitted events with actor, user and tenant ids.
func WithActor(actorID, userID, tenantID string) Option {
	return func(cfg *serviceConfig) {
		cfg.actor = actorRef{ActorID: actorID, UserID: userID, TenantID: tenantID}
	}
}

// WithQueryID sets the query id used as event object id until a query is
// loaded through InitializeQuery.
func WithQueryID(id string) Option {
	return func(cfg *serviceConfig) {
		cfg.queryID = id
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(cfg *serviceConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

// buildEvaluator resolves the configured engine. Nil means the checker falls
// back to a lazily built expr evaluator.
func (cfg serviceConfig) buildEvaluator() Evaluator {
	if cfg.evaluator != nil {
		return cfg.evaluator
	}
	functions := cfg.functions
	if functions == nil {
		functions = DefaultRuleFunctions()
	}
	switch cfg.engine {
	case "cel":
		return NewCELEvaluator(CELWithProgramCache(cfg.programCache), CELWithRuleFunctions(functions))
	case "js":
		if jsEvaluatorAvailable() {
			return NewJSEvaluator(JSWithProgramCache(cfg.programCache), JSWithRuleFunctions(functions))
		}
	}
	return NewExprEvaluator(ExprWithProgramCache(cfg.programCache), ExprWithRuleFunctions(functions))
}
