package filters

// ActiveHrefs returns the set of filter hrefs present in current.
func ActiveHrefs(current []*FilterInstance) map[string]struct{} {
	active := make(map[string]struct{}, len(current))
	for _, inst := range current {
		if inst == nil {
			continue
		}
		active[inst.Filter.Href] = struct{}{}
	}
	return active
}

// RemainingFilters returns the identity tokens of catalogue schemas without an
// active filter, in catalogue order. System fields are never included. The
// catalogue is not modified.
func RemainingFilters(cat *Catalogue, current []*FilterInstance, cls Classifier) []FilterResourceRef {
	return remaining(cat, current, cls, Visibility.Offered)
}

// RemainingVisibleFilters narrows RemainingFilters to picker selectable fields.
func RemainingVisibleFilters(cat *Catalogue, current []*FilterInstance, cls Classifier) []FilterResourceRef {
	return remaining(cat, current, cls, Visibility.Selectable)
}

func remaining(cat *Catalogue, current []*FilterInstance, cls Classifier, keep func(Visibility) bool) []FilterResourceRef {
	active := ActiveHrefs(current)
	refs := cat.Filters()
	out := make([]FilterResourceRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := active[ref.Href]; ok {
			continue
		}
		if !keep(cls.Classify(ref.ID)) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// CurrentlyVisibleFilters returns the active filters that are displayed, in
// set order.
func CurrentlyVisibleFilters(current []*FilterInstance, cls Classifier) []*FilterInstance {
	out := make([]*FilterInstance, 0, len(current))
	for _, inst := range current {
		if inst == nil {
			continue
		}
		if cls.Classify(inst.Filter.ID).Displayed() {
			out = append(out, inst)
		}
	}
	return out
}

// SchemaLookup resolves a filter's schema reference.
type SchemaLookup interface {
	ByID(id string) (FilterSchema, error)
}

// CompletenessCheck decides whether one instance is complete for its schema.
type CompletenessCheck func(inst *FilterInstance, schema FilterSchema) bool

// IsComplete reports whether every instance satisfies its own schema's
// completeness rule. An empty list is complete. An instance whose schema does
// not resolve counts as incomplete. A nil check falls back to
// IsCompletelyDefined.
func IsComplete(list []*FilterInstance, schemas SchemaLookup, check CompletenessCheck) bool {
	if check == nil {
		check = IsCompletelyDefined
	}
	for _, inst := range list {
		if inst == nil {
			return false
		}
		if schemas == nil {
			return false
		}
		schema, err := schemas.ByID(inst.SchemaID)
		if err != nil {
			return false
		}
		if !check(inst, schema) {
			return false
		}
	}
	return true
}
