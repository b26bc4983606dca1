package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DisqualifiedSentinel is the serialized composite score of a disqualified candidate
const DisqualifiedSentinel = -10.0

// CompositeScore is either Scored(value) or Disqualified(reasons).
// Ordering never compares the sentinel numerically: Disqualified always ranks last.
type CompositeScore struct {
	value        float64
	disqualified bool
	reasons      []string
}

// Scored creates a qualified composite score
func Scored(value float64) CompositeScore {
	return CompositeScore{value: value}
}

// Disqualified creates a disqualified composite score
func Disqualified(reasons []string) CompositeScore {
	r := make([]string, len(reasons))
	copy(r, reasons)
	return CompositeScore{disqualified: true, reasons: r}
}

// IsDisqualified reports whether the candidate failed risk screens
func (s CompositeScore) IsDisqualified() bool {
	return s.disqualified
}

// Value returns the score and true, or (0, false) when disqualified
func (s CompositeScore) Value() (float64, bool) {
	if s.disqualified {
		return 0, false
	}
	return s.value, true
}

// Reasons returns the disqualification reasons
func (s CompositeScore) Reasons() []string {
	return s.reasons
}

// Float returns the numeric form used for export (sentinel when disqualified)
func (s CompositeScore) Float() float64 {
	if s.disqualified {
		return DisqualifiedSentinel
	}
	return s.value
}

// Better reports whether s ranks strictly ahead of o
func (s CompositeScore) Better(o CompositeScore) bool {
	if s.disqualified != o.disqualified {
		return !s.disqualified
	}
	if s.disqualified {
		return false
	}
	return s.value > o.value
}

// Equal reports whether both scores rank identically
func (s CompositeScore) Equal(o CompositeScore) bool {
	return !s.Better(o) && !o.Better(s)
}

func (s CompositeScore) String() string {
	if s.disqualified {
		return fmt.Sprintf("disqualified(%s)", strings.Join(s.reasons, "; "))
	}
	return fmt.Sprintf("%.4f", s.value)
}

// MarshalJSON encodes the numeric form
func (s CompositeScore) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Float())
}

// UnmarshalJSON decodes the numeric form; the sentinel becomes Disqualified
func (s *CompositeScore) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("composite score: %w", err)
	}
	if v == DisqualifiedSentinel {
		*s = Disqualified(nil)
		return nil
	}
	*s = Scored(v)
	return nil
}

// RankedBefore orders candidates best-first: Disqualified last, ties by ticker
func RankedBefore(a, b ScoredCandidate) bool {
	if a.Composite.Better(b.Composite) {
		return true
	}
	if b.Composite.Better(a.Composite) {
		return false
	}
	return a.Ticker < b.Ticker
}
