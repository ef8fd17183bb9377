package filters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-filters/internal/clone"
	"github.com/goliatone/go-filters/pkg/activity"
	"github.com/goliatone/go-filters/pkg/state"
)

var errNoResolver = errors.New("schema is not in the catalogue and no resolver is configured")

// Service owns the filter set of one query-backed view: the ordered list of
// active filters, the schema catalogue they resolve against and the derived
// views computed from both.
type Service struct {
	filters *state.Input[[]*FilterInstance]

	mu        sync.RWMutex
	catalogue *Catalogue
	queryID   string
	revision  string

	cfg     serviceConfig
	checker *CompletenessChecker
	emitter *activity.Emitter
}

// New builds a Service over cat. A nil catalogue is treated as empty until
// Initialize installs one.
func New(cat *Catalogue, opts ...Option) *Service {
	cfg := applyOptions(opts)
	if cat == nil {
		cat = NewCatalogue(nil)
	}
	return &Service{
		filters:   state.NewInput[[]*FilterInstance](),
		catalogue: cat,
		queryID:   cfg.queryID,
		cfg:       cfg,
		checker: NewCompletenessChecker(
			CheckerWithEvaluator(cfg.buildEvaluator()),
			CheckerWithLogger(cfg.logger),
			CheckerWithArgs(cfg.ruleArgs),
		),
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
	}
}

// Current returns the latest filter list, or an empty slice before the first
// write. The slice is a copy; the instances are shared.
func (s *Service) Current() []*FilterInstance {
	list, _ := s.filters.Value()
	out := make([]*FilterInstance, len(list))
	copy(out, list)
	return out
}

// Initialized reports whether the filter set has been written at least once.
func (s *Service) Initialized() bool {
	_, ok := s.filters.Value()
	return ok
}

// Replace overwrites the filter set and notifies subscribers.
func (s *Service) Replace(list []*FilterInstance) {
	next := compact(list)
	rev, _ := s.write(func([]*FilterInstance) ([]*FilterInstance, bool) {
		return next, true
	})
	s.cfg.logger.Log(LogEvent{Op: OpReplace, Count: len(next)})
	s.emit(activity.BuildFiltersReplacedEvent, s.eventInput(rev, nil, len(next)))
}

// ReplaceIfComplete overwrites the filter set only when every entry is
// complete and reports whether the write happened.
func (s *Service) ReplaceIfComplete(list []*FilterInstance) bool {
	if !IsComplete(list, s.Catalogue(), s.checker.Check) {
		return false
	}
	s.Replace(list)
	return true
}

// IsComplete reports whether every active filter is completely defined.
func (s *Service) IsComplete() bool {
	return IsComplete(s.Current(), s.Catalogue(), s.checker.Check)
}

// Explain returns why inst is incomplete, or nil.
func (s *Service) Explain(inst *FilterInstance) error {
	if inst == nil {
		return &IncompleteFilterError{Filter: "unknown", Reason: errNoOperator}
	}
	schema, err := s.Catalogue().ByID(inst.SchemaID)
	if err != nil {
		return &IncompleteFilterError{Filter: inst.ID, Reason: err}
	}
	return s.checker.Explain(inst, schema)
}

// Add instantiates a filter for the catalogue schema whose identity token has
// ref.Href and appends it to the set. The set is left untouched on error.
func (s *Service) Add(ref FilterResourceRef) (*FilterInstance, error) {
	schema, ok := s.Catalogue().ByHref(ref.Href)
	if !ok {
		err := &SchemaNotFoundError{Href: ref.Href}
		s.cfg.logger.Log(LogEvent{Op: OpAdd, Filter: ref.Href, Err: err})
		return nil, err
	}

	inst := schema.MakeFilter()
	var dupErr error
	var count int
	rev, written := s.write(func(current []*FilterInstance) ([]*FilterInstance, bool) {
		if _, active := ActiveHrefs(current)[inst.Filter.Href]; active {
			dupErr = &DuplicateFilterError{Href: inst.Filter.Href}
			return nil, false
		}
		next := make([]*FilterInstance, 0, len(current)+1)
		next = append(next, current...)
		next = append(next, inst)
		count = len(next)
		return next, true
	})
	if !written {
		s.cfg.logger.Log(LogEvent{Op: OpAdd, Filter: ref.Href, Err: dupErr})
		return nil, dupErr
	}

	s.cfg.logger.Log(LogEvent{Op: OpAdd, Filter: inst.Filter.Href, Count: count})
	s.emit(activity.BuildFilterAddedEvent, s.eventInput(rev, inst, count))
	return inst, nil
}

// Remove drops inst, matched by pointer identity, and reports whether it was
// present. The order of the remaining filters is preserved.
func (s *Service) Remove(inst *FilterInstance) bool {
	if inst == nil {
		return false
	}
	var count int
	rev, written := s.write(func(current []*FilterInstance) ([]*FilterInstance, bool) {
		idx := indexOf(current, inst)
		if idx < 0 {
			return nil, false
		}
		next := make([]*FilterInstance, 0, len(current)-1)
		next = append(next, current[:idx]...)
		next = append(next, current[idx+1:]...)
		count = len(next)
		return next, true
	})
	if !written {
		return false
	}
	s.cfg.logger.Log(LogEvent{Op: OpRemove, Filter: inst.Filter.Href, Count: count})
	s.emit(activity.BuildFilterRemovedEvent, s.eventInput(rev, inst, count))
	return true
}

// Update swaps target, matched by pointer identity, for replacement in place.
// Instances are values in the set, so edits go through Update rather than
// field mutation.
func (s *Service) Update(target, replacement *FilterInstance) bool {
	if target == nil || replacement == nil {
		return false
	}
	var count int
	rev, written := s.write(func(current []*FilterInstance) ([]*FilterInstance, bool) {
		idx := indexOf(current, target)
		if idx < 0 {
			return nil, false
		}
		for i, other := range current {
			if i != idx && other.Filter.Href == replacement.Filter.Href {
				return nil, false
			}
		}
		next := make([]*FilterInstance, len(current))
		copy(next, current)
		next[idx] = replacement
		count = len(next)
		return next, true
	})
	if !written {
		return false
	}
	s.cfg.logger.Log(LogEvent{Op: OpReplace, Filter: replacement.Filter.Href, Count: count})
	s.emit(activity.BuildFiltersReplacedEvent, s.eventInput(rev, replacement, count))
	return true
}

// Find returns the active filter with id.
func (s *Service) Find(id string) (*FilterInstance, bool) {
	for _, inst := range s.Current() {
		if inst.ID == id {
			return inst, true
		}
	}
	return nil, false
}

// Initialize loads the filter set from its remote projection. Filters and
// schemas are deep copied. Each filter's schema comes from catalogue when it
// is listed there and from the configured SchemaResolver otherwise; resolver
// calls run concurrently. A filter without a schema reference is kept and
// counts as incomplete. When any resolution fails the error is a
// *CatalogueUnavailableError and neither the catalogue nor the set changes.
// On success the catalogue is swapped first, then the set is replaced.
func (s *Service) Initialize(ctx context.Context, remote []Source, catalogue []FilterSchema) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	sources := clone.Slice(remote)
	base := NewCatalogue(catalogue)

	missing := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if src.Schema == "" || base.Has(src.Schema) {
			continue
		}
		if _, dup := seen[src.Schema]; dup {
			continue
		}
		seen[src.Schema] = struct{}{}
		missing = append(missing, src.Schema)
	}

	resolved, err := s.resolveSchemas(ctx, missing)
	if err != nil {
		s.cfg.logger.Log(LogEvent{Op: OpInitialize, Count: len(sources), Duration: time.Since(start), Err: err})
		return err
	}

	list := make([]*FilterInstance, 0, len(sources))
	active := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if _, dup := active[src.Filter.Href]; dup {
			s.cfg.logger.Log(LogEvent{Op: OpInitialize, Filter: src.Filter.Href, Err: &DuplicateFilterError{Href: src.Filter.Href}})
			continue
		}
		active[src.Filter.Href] = struct{}{}
		list = append(list, NewInstance(src))
	}

	next := NewCatalogue(catalogue, WithResolved(resolved...))
	s.mu.Lock()
	s.catalogue = next
	s.mu.Unlock()

	rev, _ := s.write(func([]*FilterInstance) ([]*FilterInstance, bool) {
		return list, true
	})
	s.cfg.logger.Log(LogEvent{Op: OpInitialize, Count: len(list), Duration: time.Since(start)})
	s.emit(activity.BuildFiltersInitializedEvent, s.eventInput(rev, nil, len(list)))
	return nil
}

// InitializeQuery loads the catalogue for q through src and initializes the
// set from q's filters. q.ID becomes the query context and event object id.
func (s *Service) InitializeQuery(ctx context.Context, q Query, src CatalogueSource) error {
	cat, err := LoadCatalogue(ctx, src, q.ID)
	if err != nil {
		s.cfg.logger.Log(LogEvent{Op: OpInitialize, Err: err})
		return err
	}
	if err := s.Initialize(ctx, q.Filters, cat.Schemas()); err != nil {
		var unavailable *CatalogueUnavailableError
		if errors.As(err, &unavailable) && unavailable.Context == "" {
			unavailable.Context = q.ID
		}
		return err
	}
	if q.ID != "" {
		s.mu.Lock()
		s.queryID = q.ID
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) resolveSchemas(ctx context.Context, ids []string) ([]FilterSchema, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if s.cfg.resolver == nil {
		return nil, &CatalogueUnavailableError{SchemaID: ids[0], Err: errNoResolver}
	}
	out := make([]FilterSchema, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			start := time.Now()
			schema, err := s.cfg.resolver.ResolveSchema(gctx, id)
			if err == nil && schema.ID == "" {
				schema.ID = id
			}
			if err == nil && schema.ID != id {
				err = fmt.Errorf("resolver returned schema %q", schema.ID)
			}
			s.cfg.logger.Log(LogEvent{Op: OpResolve, Filter: id, Duration: time.Since(start), Err: err})
			if err != nil {
				return &CatalogueUnavailableError{SchemaID: id, Err: err}
			}
			out[i] = clone.Clone(schema)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasChanged reports whether remote differs from the current set's source
// projection. Nil and empty value lists compare equal.
func (s *Service) HasChanged(remote []Source) bool {
	return !SourcesEqual(remote, Sources(s.Current()))
}

// Diff compares the current set (local) with remote, keyed by filter href.
func (s *Service) Diff(remote []Source) Delta {
	return DiffSources(Sources(s.Current()), remote)
}

// Sources returns the source projection of the current set.
func (s *Service) Sources() []Source {
	return Sources(s.Current())
}

// ApplyTo writes the current set's sources into target. It returns false only
// for a nil target.
func (s *Service) ApplyTo(target QueryTarget) bool {
	if target == nil {
		return false
	}
	sources := s.Sources()
	target.SetFilters(sources)
	s.mu.RLock()
	rev := s.revision
	s.mu.RUnlock()
	s.cfg.logger.Log(LogEvent{Op: OpApply, Count: len(sources)})
	s.emit(activity.BuildFiltersAppliedEvent, s.eventInput(rev, nil, len(sources)))
	return true
}

// Catalogue returns the active catalogue snapshot.
func (s *Service) Catalogue() *Catalogue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalogue
}

// Schema resolves inst's schema reference against the active catalogue.
func (s *Service) Schema(inst *FilterInstance) (FilterSchema, error) {
	if inst == nil {
		return FilterSchema{}, ErrStaleSchemaReference
	}
	return s.Catalogue().ByID(inst.SchemaID)
}

// Classifier returns the visibility classifier in use.
func (s *Service) Classifier() Classifier {
	return s.cfg.classifier
}

// RemainingFilters lists catalogue fields without an active filter, system
// fields excluded.
func (s *Service) RemainingFilters() []FilterResourceRef {
	return RemainingFilters(s.Catalogue(), s.Current(), s.cfg.classifier)
}

// RemainingVisibleFilters lists the remaining fields offered in the picker.
func (s *Service) RemainingVisibleFilters() []FilterResourceRef {
	return RemainingVisibleFilters(s.Catalogue(), s.Current(), s.cfg.classifier)
}

// CurrentlyVisibleFilters lists the active filters that are displayed.
func (s *Service) CurrentlyVisibleFilters() []*FilterInstance {
	return CurrentlyVisibleFilters(s.Current(), s.cfg.classifier)
}

// Revision returns the id of the latest write, empty before the first one.
func (s *Service) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribe delivers every write of the filter set to fn, in write order,
// until ctx is cancelled, the subscription is released or Close is called.
// fn receives its own copy of the list.
func (s *Service) Subscribe(ctx context.Context, fn func([]*FilterInstance)) *state.Subscription {
	if fn == nil {
		return s.filters.Subscribe(ctx, nil)
	}
	return s.filters.Subscribe(ctx, func(list []*FilterInstance) {
		out := make([]*FilterInstance, len(list))
		copy(out, list)
		fn(out)
	})
}

// Close releases every subscriber.
func (s *Service) Close() {
	s.filters.Close()
}

// write applies fn to the latest list. The revision of an accepted write is
// stored before subscribers are notified.
func (s *Service) write(fn func(current []*FilterInstance) ([]*FilterInstance, bool)) (string, bool) {
	rev := uuid.NewString()
	written := s.filters.Modify(func(current []*FilterInstance, _ bool) ([]*FilterInstance, bool) {
		next, ok := fn(current)
		if !ok {
			return nil, false
		}
		s.mu.Lock()
		s.revision = rev
		s.mu.Unlock()
		return next, true
	})
	return rev, written
}

func compact(list []*FilterInstance) []*FilterInstance {
	out := make([]*FilterInstance, 0, len(list))
	for _, inst := range list {
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

func indexOf(list []*FilterInstance, target *FilterInstance) int {
	for i, inst := range list {
		if inst == target {
			return i
		}
	}
	return -1
}
