package filters

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var sourceEquality = []cmp.Option{cmpopts.EquateEmpty()}

// SourcesEqual compares two source projections in order. Nil and empty value
// lists are equal.
func SourcesEqual(a, b []Source) bool {
	return cmp.Equal(a, b, sourceEquality...)
}

// Change pairs the local and remote projection of one filter.
type Change struct {
	Href   string `json:"href"`
	Local  Source `json:"local"`
	Remote Source `json:"remote"`
	Detail string `json:"detail,omitempty"`
}

// Delta is the structural difference between the local filter set and a
// remote projection, keyed by filter href.
type Delta struct {
	Added     []Source `json:"added,omitempty"`
	Removed   []Source `json:"removed,omitempty"`
	Changed   []Change `json:"changed,omitempty"`
	Reordered bool     `json:"reordered,omitempty"`
}

// Empty reports whether the two sides match, ordering included.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 && !d.Reordered
}

// ToJSON serialises the delta for logging or transport.
func (d Delta) ToJSON() ([]byte, error) {
	type alias Delta
	return json.Marshal(alias(d))
}

// DeltaFromJSON decodes a payload produced by ToJSON.
func DeltaFromJSON(payload []byte) (Delta, error) {
	type alias Delta
	var delta alias
	if err := json.Unmarshal(payload, &delta); err != nil {
		return Delta{}, err
	}
	return Delta(delta), nil
}

// DiffSources computes the delta from remote to local. Added entries exist
// only locally, Removed only remotely. Reordered is set when the shared hrefs
// appear in a different order.
func DiffSources(local, remote []Source) Delta {
	var delta Delta
	remoteByHref := make(map[string]Source, len(remote))
	for _, src := range remote {
		if _, dup := remoteByHref[src.Filter.Href]; !dup {
			remoteByHref[src.Filter.Href] = src
		}
	}
	localHrefs := make(map[string]struct{}, len(local))
	var sharedLocal []string
	for _, src := range local {
		href := src.Filter.Href
		if _, dup := localHrefs[href]; dup {
			continue
		}
		localHrefs[href] = struct{}{}
		other, ok := remoteByHref[href]
		if !ok {
			delta.Added = append(delta.Added, src)
			continue
		}
		sharedLocal = append(sharedLocal, href)
		if !cmp.Equal(src, other, sourceEquality...) {
			delta.Changed = append(delta.Changed, Change{
				Href:   href,
				Local:  src,
				Remote: other,
				Detail: cmp.Diff(other, src, sourceEquality...),
			})
		}
	}

	var sharedRemote []string
	emitted := make(map[string]struct{}, len(remote))
	for _, src := range remote {
		href := src.Filter.Href
		if _, dup := emitted[href]; dup {
			continue
		}
		emitted[href] = struct{}{}
		if _, ok := localHrefs[href]; ok {
			sharedRemote = append(sharedRemote, href)
			continue
		}
		delta.Removed = append(delta.Removed, src)
	}
	delta.Reordered = !cmp.Equal(sharedLocal, sharedRemote, cmpopts.EquateEmpty())
	return delta
}
