// Package catalog describes the ambient sounds the engine can play and
// resolves sound ids to their descriptors.
package catalog

import (
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

// DefaultVolume is the playback volume for sounds that do not specify one.
const DefaultVolume = 0.5

// Tier is the quality tier of a sound resource.
type Tier int

const (
	// TierUnknown is the zero value. Descriptors never carry it; consumers
	// use it for "not specified".
	TierUnknown Tier = iota
	TierLow
	TierMedium
	TierHigh
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// SizeFactor returns the size multiplier of the tier relative to TierMedium.
func (t Tier) SizeFactor() float64 {
	switch t {
	case TierLow:
		return 0.5
	case TierHigh:
		return 2.0
	default:
		return 1.0
	}
}

// ParseTier parses a tier name ("low", "medium", "high").
func ParseTier(s string) (Tier, error) {
	switch s {
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	}
	return TierUnknown, errdefs.Validationf("unknown quality tier %q", s)
}

// Descriptor identifies one playable sound and how it should be played.
type Descriptor struct {
	ID            string
	Path          string // local file path or remote URL
	Duration      time.Duration
	DefaultVolume float64 // 0.0 to 1.0
	Quality       Tier
	Loop          bool
}

// Validate checks the descriptor for mistakes a catalog must not contain.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return errdefs.Validationf("descriptor has empty id")
	}
	if d.Path == "" {
		return errdefs.Validationf("sound %q has empty path", d.ID)
	}
	if d.Duration <= 0 {
		return errdefs.Validationf("sound %q has non-positive duration %v", d.ID, d.Duration)
	}
	if d.DefaultVolume < 0 || d.DefaultVolume > 1 {
		return errdefs.Validationf("sound %q volume %v out of range [0,1]", d.ID, d.DefaultVolume)
	}
	if d.Quality < TierLow || d.Quality > TierHigh {
		return errdefs.Validationf("sound %q has no quality tier", d.ID)
	}
	return nil
}

// Catalog resolves sound ids to descriptors.
type Catalog interface {
	Lookup(id string) (Descriptor, bool)
	IDs() []string
	Len() int
}

// Verify Static implements Catalog at compile time.
var _ Catalog = (*Static)(nil)

// Static is an in-memory Catalog built from a fixed descriptor list.
type Static struct {
	byID  map[string]Descriptor
	order []string
}

// NewStatic builds a catalog from descriptors, validating each one.
// Duplicate ids are rejected.
func NewStatic(sounds ...Descriptor) (*Static, error) {
	s := &Static{byID: make(map[string]Descriptor, len(sounds))}
	for _, d := range sounds {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byID[d.ID]; dup {
			return nil, errdefs.Validationf("duplicate sound id %q", d.ID)
		}
		s.byID[d.ID] = d
		s.order = append(s.order, d.ID)
	}
	return s, nil
}

// Lookup returns the descriptor for id, if present.
func (s *Static) Lookup(id string) (Descriptor, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// IDs returns the sound ids in catalog order.
func (s *Static) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Len returns the number of sounds in the catalog.
func (s *Static) Len() int { return len(s.byID) }
