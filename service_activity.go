package filters

import (
	"context"

	"github.com/goliatone/go-filters/pkg/activity"
)

// ActivityEnabled reports whether writes emit activity events.
func (s *Service) ActivityEnabled() bool {
	return s.emitter.Enabled()
}

func (s *Service) eventInput(revision string, inst *FilterInstance, count int) activity.FilterEventInput {
	s.mu.RLock()
	queryID := s.queryID
	s.mu.RUnlock()
	input := activity.FilterEventInput{
		ActorID:    s.cfg.actor.ActorID,
		UserID:     s.cfg.actor.UserID,
		TenantID:   s.cfg.actor.TenantID,
		QueryID:    queryID,
		Revision:   revision,
		Count:      count,
		OccurredAt: s.cfg.now(),
	}
	if inst != nil {
		input.FilterID = inst.ID
		input.FilterHref = inst.Filter.Href
	}
	return input
}

// emit builds and forwards an event. Hook failures are logged and never
// reach the caller of the write.
func (s *Service) emit(build func(activity.FilterEventInput) activity.Event, input activity.FilterEventInput) {
	if !s.emitter.Enabled() {
		return
	}
	input.Complete = s.IsComplete()
	event := build(input)
	if err := s.emitter.Emit(context.Background(), event); err != nil {
		s.cfg.logger.Log(LogEvent{Op: OpActivity, Filter: input.FilterHref, Err: err})
	}
}
