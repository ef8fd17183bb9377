package activity

import (
	"strings"
	"time"
)

// Verbs emitted for filter set changes.
const (
	VerbFilterAdded        = "filters.added"
	VerbFilterRemoved      = "filters.removed"
	VerbFiltersReplaced    = "filters.replaced"
	VerbFiltersInitialized = "filters.initialized"
	VerbFiltersApplied     = "filters.applied"
)

// ObjectTypeFilters is the object type of every filter event.
const ObjectTypeFilters = "filters"

// FilterEventInput carries the data shared by filter set events.
type FilterEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	QueryID    string
	Revision   string
	FilterID   string
	FilterHref string
	Count      int
	Complete   bool
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFilterAddedEvent describes a filter appended to the set.
func BuildFilterAddedEvent(input FilterEventInput) Event {
	return buildFilterEvent(VerbFilterAdded, input)
}

// BuildFilterRemovedEvent describes a filter removed from the set.
func BuildFilterRemovedEvent(input FilterEventInput) Event {
	return buildFilterEvent(VerbFilterRemoved, input)
}

// BuildFiltersReplacedEvent describes a wholesale overwrite of the set.
func BuildFiltersReplacedEvent(input FilterEventInput) Event {
	return buildFilterEvent(VerbFiltersReplaced, input)
}

// BuildFiltersInitializedEvent describes the set loaded from a remote query.
func BuildFiltersInitializedEvent(input FilterEventInput) Event {
	return buildFilterEvent(VerbFiltersInitialized, input)
}

// BuildFiltersAppliedEvent describes the set written back into a query.
func BuildFiltersAppliedEvent(input FilterEventInput) Event {
	return buildFilterEvent(VerbFiltersApplied, input)
}

func buildFilterEvent(verb string, input FilterEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["count"] = input.Count
	metadata["complete"] = input.Complete
	if input.FilterID != "" {
		metadata["filter_id"] = input.FilterID
	}
	if input.FilterHref != "" {
		metadata["filter_href"] = input.FilterHref
	}
	if input.QueryID != "" {
		metadata["query_id"] = input.QueryID
	}
	if input.Revision != "" {
		metadata["revision"] = input.Revision
	}

	objectID := firstNonBlank(input.QueryID, input.FilterHref, input.Revision, ObjectTypeFilters)

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeFilters,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
