package filters

import (
	"fmt"
	"sort"
	"strings"
)

// Visibility classifies a filter field for the derived views.
type Visibility int

const (
	// VisibilityVisible fields are offered in the picker and shown when active.
	VisibilityVisible Visibility = iota
	// VisibilityHidden fields are neither offered nor shown, though they may be
	// active when applied programmatically.
	VisibilityHidden
	// VisibilitySystem fields are never user selectable, not even in the
	// unfiltered remaining list.
	VisibilitySystem
	// VisibilityDisplayOnly fields are not offered in the picker but are shown
	// while active.
	VisibilityDisplayOnly
)

func (v Visibility) String() string {
	switch v {
	case VisibilityVisible:
		return "visible"
	case VisibilityHidden:
		return "hidden"
	case VisibilitySystem:
		return "system"
	case VisibilityDisplayOnly:
		return "displayOnly"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// ParseVisibility converts a configuration string into a Visibility.
func ParseVisibility(value string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "visible":
		return VisibilityVisible, nil
	case "hidden":
		return VisibilityHidden, nil
	case "system":
		return VisibilitySystem, nil
	case "displayonly", "display_only", "display-only":
		return VisibilityDisplayOnly, nil
	default:
		return VisibilityVisible, fmt.Errorf("filters: unknown visibility %q", value)
	}
}

// Offered reports whether the field may appear in the remaining list.
func (v Visibility) Offered() bool {
	return v != VisibilitySystem
}

// Selectable reports whether the field may appear in the picker.
func (v Visibility) Selectable() bool {
	return v == VisibilityVisible
}

// Displayed reports whether an active filter on the field is shown.
func (v Visibility) Displayed() bool {
	return v == VisibilityVisible || v == VisibilityDisplayOnly
}

var hiddenFilterSet = []string{
	"id",
	"parent",
	"datesInterval",
	"precedes",
	"follows",
	"relates",
	"duplicates",
	"duplicated",
	"blocks",
	"blocked",
	"partof",
	"includes",
	"requires",
	"required",
	"search",
	"subjectOrId",
}

// HiddenFilterSet returns the ids excluded from direct user selection.
func HiddenFilterSet() []string {
	return append([]string(nil), hiddenFilterSet...)
}

// Classifier maps filter ids to a Visibility. The zero value classifies every
// field as visible; DefaultClassifier carries the stock table.
type Classifier struct {
	classes map[string]Visibility
}

// DefaultClassifier classifies id and parent as system fields, search as
// display only and the rest of HiddenFilterSet as hidden.
func DefaultClassifier() Classifier {
	classes := make(map[string]Visibility, len(hiddenFilterSet))
	for _, id := range hiddenFilterSet {
		classes[id] = VisibilityHidden
	}
	classes["id"] = VisibilitySystem
	classes["parent"] = VisibilitySystem
	classes["search"] = VisibilityDisplayOnly
	return Classifier{classes: classes}
}

// NewClassifier layers overrides on top of DefaultClassifier.
func NewClassifier(overrides map[string]Visibility) Classifier {
	c := DefaultClassifier()
	for id, v := range overrides {
		c.classes[id] = v
	}
	return c
}

// With returns a copy of c with id classified as v.
func (c Classifier) With(id string, v Visibility) Classifier {
	classes := make(map[string]Visibility, len(c.classes)+1)
	for key, value := range c.classes {
		classes[key] = value
	}
	classes[id] = v
	return Classifier{classes: classes}
}

// Classify returns the visibility of filter id.
func (c Classifier) Classify(id string) Visibility {
	if v, ok := c.classes[id]; ok {
		return v
	}
	return VisibilityVisible
}

// IDs returns the ids classified as v, sorted.
func (c Classifier) IDs(v Visibility) []string {
	var out []string
	for id, class := range c.classes {
		if class == v {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
