package filters

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-filters/pkg/activity"
)

// Config is the file form of the service options.
//
//	visibility:
//	  assignee: hidden
//	rules:
//	  engine: cel
//	  cache: true
//	activity:
//	  enabled: true
//	  channel: filters
//	log:
//	  path: /var/log/filters.log
//	  level: debug
type Config struct {
	Visibility map[string]string `yaml:"visibility"`
	Rules      RulesConfig       `yaml:"rules"`
	Activity   activity.Config   `yaml:"activity"`
	Log        LogFileConfig     `yaml:"log"`
}

// RulesConfig selects and tunes the completeness rule engine.
type RulesConfig struct {
	Engine string         `yaml:"engine"`
	Cache  bool           `yaml:"cache"`
	Args   map[string]any `yaml:"args"`
}

// DefaultConfig returns the configuration New uses without options.
func DefaultConfig() Config {
	return Config{
		Rules: RulesConfig{
			Engine: "expr",
			Cache:  true,
		},
		Activity: activity.Config{
			Enabled: true,
			Channel: activity.DefaultChannel,
		},
	}
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("filters: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("filters: read config %q: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks engine names and visibility classes.
func (c Config) Validate() error {
	switch engine := strings.ToLower(strings.TrimSpace(c.Rules.Engine)); engine {
	case "", "expr", "cel":
	case "js":
		if !jsEvaluatorAvailable() {
			return fmt.Errorf("filters: rules engine %q requires the js_eval build tag: %w", engine, ErrNoEvaluator)
		}
	default:
		return fmt.Errorf("filters: unknown rules engine %q", c.Rules.Engine)
	}
	for id, class := range c.Visibility {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("filters: visibility entry with empty filter id")
		}
		if _, err := ParseVisibility(class); err != nil {
			return err
		}
	}
	return nil
}

// Classifier layers the visibility overrides on DefaultClassifier.
func (c Config) Classifier() (Classifier, error) {
	overrides := make(map[string]Visibility, len(c.Visibility))
	for id, class := range c.Visibility {
		v, err := ParseVisibility(class)
		if err != nil {
			return Classifier{}, err
		}
		overrides[id] = v
	}
	return NewClassifier(overrides), nil
}

// Options converts the configuration into service options.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cls, err := c.Classifier()
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithClassifier(cls),
		WithRuleEngine(c.Rules.Engine),
		WithActivityConfig(c.Activity),
	}
	if c.Rules.Cache {
		opts = append(opts, WithProgramCache(NewMemoryProgramCache()))
	}
	if len(c.Rules.Args) > 0 {
		opts = append(opts, WithRuleArgs(c.Rules.Args))
	}
	return opts, nil
}

// Logger opens the configured log file. Without a path it returns a nil
// closer and a logger writing through slog.Default.
func (c Config) Logger() (Logger, io.Closer, error) {
	if strings.TrimSpace(c.Log.Path) == "" {
		return SlogLogger(nil), nil, nil
	}
	l, closer, err := NewFileLogger(c.Log)
	if err != nil {
		return nil, nil, err
	}
	return SlogLogger(l), closer, nil
}
