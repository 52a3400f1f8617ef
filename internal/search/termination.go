package search

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Recognized termination keys
const (
	TermMaxEpoch     = "max_epoch"
	TermMaxFE        = "max_fe"
	TermMaxTime      = "max_time"
	TermMaxEarlyStop = "max_early_stop"
)

// Termination holds the stopping criteria of a search. Zero fields are unset;
// the search stops as soon as any set criterion is met.
type Termination struct {
	// MaxEpoch caps the number of epochs. When unset, the optimizer's
	// epoch option is used.
	MaxEpoch int
	// MaxFE caps the number of fitness evaluations.
	MaxFE int
	// MaxTime caps wall-clock time.
	MaxTime time.Duration
	// MaxEarlyStop stops after this many epochs without improvement of the best fitness.
	MaxEarlyStop int
}

// ParseTermination reads a termination dictionary. Unknown keys and
// values of the wrong type are rejected.
func ParseTermination(dict map[string]any) (Termination, error) {
	var t Termination

	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := dict[key]
		switch key {
		case TermMaxEpoch, TermMaxFE, TermMaxEarlyStop:
			n, err := positiveInt(raw)
			if err != nil {
				return Termination{}, &TerminationError{Key: key, Reason: err.Error()}
			}
			switch key {
			case TermMaxEpoch:
				t.MaxEpoch = n
			case TermMaxFE:
				t.MaxFE = n
			default:
				t.MaxEarlyStop = n
			}
		case TermMaxTime:
			f, ok := number(raw)
			if !ok || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
				return Termination{}, &TerminationError{Key: key, Reason: fmt.Sprintf("must be a positive number of seconds, got %v", raw)}
			}
			t.MaxTime = time.Duration(f * float64(time.Second))
		default:
			return Termination{}, &TerminationError{
				Key:    key,
				Reason: fmt.Sprintf("is not recognized (accepted: %s, %s, %s, %s)", TermMaxEpoch, TermMaxFE, TermMaxTime, TermMaxEarlyStop),
			}
		}
	}
	return t, nil
}

// WithDefaultEpoch returns t with MaxEpoch set to epochs when it is unset.
func (t Termination) WithDefaultEpoch(epochs int) Termination {
	if t.MaxEpoch <= 0 {
		t.MaxEpoch = epochs
	}
	return t
}

func positiveInt(raw any) (int, error) {
	f, ok := number(raw)
	if !ok || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, fmt.Errorf("must be a positive integer, got %v", raw)
	}
	return int(f), nil
}

// TerminationError reports an invalid termination dictionary entry.
type TerminationError struct {
	Key    string
	Reason string
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("termination %s %s", e.Key, e.Reason)
}
