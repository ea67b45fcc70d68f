package resultcode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Set is a bitmask of categories.
type Set uint32

const (
	successMask    = Set(1<<SuccessfullyProcessed | 1<<SuccessfullyProcessedNeedsReview)
	pendingMask    = Set(1<<Pending | 1<<PendingMightChangeExternally)
	chargebackMask = Set(1 << ChargebackRelated)
	rejectedMask   = Set((1<<(RejectedRiskManagement+1) - 1) &^ (1<<Rejected3DSecureRisk - 1))
)

// NewSet builds a set from the given categories.
func NewSet(cs ...Category) Set {
	var s Set
	for _, c := range cs {
		s = s.With(c)
	}
	return s
}

func (s Set) With(c Category) Set {
	if c >= numCategories {
		return s
	}
	return s | 1<<c
}

func (s Set) Has(c Category) bool {
	return c < numCategories && s&(1<<c) != 0
}

func (s Set) Empty() bool { return s == 0 }

func (s Set) IsSuccessful() bool { return s&successMask != 0 }

func (s Set) IsPending() bool { return s&pendingMask != 0 }

func (s Set) IsRejected() bool { return s&rejectedMask != 0 }

func (s Set) IsChargeback() bool { return s&chargebackMask != 0 }

// Categories lists the members of s in table order.
func (s Set) Categories() []Category {
	var out []Category
	for c := Category(0); c < numCategories; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Names lists the snake_case names of the members of s.
func (s Set) Names() []string {
	cs := s.Categories()
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func (s Set) String() string {
	if s.Empty() {
		return "unclassified"
	}
	return strings.Join(s.Names(), ",")
}

func (s Set) MarshalJSON() ([]byte, error) {
	names := s.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out Set
	for _, n := range names {
		c, ok := ParseCategory(n)
		if !ok {
			return fmt.Errorf("resultcode: unknown category %q", n)
		}
		out = out.With(c)
	}
	*s = out
	return nil
}

// Outcome is the coarse result the shopper return flow acts on.
type Outcome string

const (
	OutcomeSuccessful Outcome = "successful"
	OutcomeRejected   Outcome = "rejected"
	OutcomePending    Outcome = "pending"
	OutcomeUnknown    Outcome = "unknown"
)

// Outcome collapses s with precedence successful, rejected, pending.
// An empty set is unknown.
func (s Set) Outcome() Outcome {
	switch {
	case s.IsSuccessful():
		return OutcomeSuccessful
	case s.IsRejected():
		return OutcomeRejected
	case s.IsPending():
		return OutcomePending
	default:
		return OutcomeUnknown
	}
}

// Mask returns the categories an outcome stands for. Unknown maps to zero.
func (o Outcome) Mask() Set {
	switch o {
	case OutcomeSuccessful:
		return successMask
	case OutcomeRejected:
		return rejectedMask
	case OutcomePending:
		return pendingMask
	}
	return 0
}

// ParseOutcome accepts the outcome names used on the HTTP surface.
func ParseOutcome(v string) (Outcome, bool) {
	switch o := Outcome(strings.ToLower(strings.TrimSpace(v))); o {
	case OutcomeSuccessful, OutcomeRejected, OutcomePending, OutcomeUnknown:
		return o, true
	}
	return "", false
}
