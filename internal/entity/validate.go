package entity

import (
	"fmt"
	"strconv"
	"time"
)

// Problem describes one entity value that failed validation.
type Problem struct {
	Key    string
	Value  string
	Reason string
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s %q: %s", p.Key, p.Value, p.Reason)
}

// Validate is advisory; callers decide whether to reject or ask again.
func (e *Extractor) Validate(m Map) bool {
	return e.ValidateAt(m, e.now())
}

func (e *Extractor) ValidateAt(m Map, now time.Time) bool {
	return len(e.Problems(m, now)) == 0
}

// Problems lists every invalid value in m, in key order date, time, duration.
func (e *Extractor) Problems(m Map, now time.Time) []Problem {
	if len(m) == 0 {
		return nil
	}
	var problems []Problem

	if v, ok := m[KeyDate]; ok {
		d, err := time.Parse(DateLayout, v)
		switch {
		case err != nil:
			problems = append(problems, Problem{Key: KeyDate, Value: v, Reason: "malformed date"})
		case d.Before(dateOnly(now)):
			problems = append(problems, Problem{Key: KeyDate, Value: v, Reason: "date is in the past"})
		}
	}

	if v, ok := m[KeyTime]; ok {
		if _, err := time.Parse(TimeLayout, v); err != nil {
			problems = append(problems, Problem{Key: KeyTime, Value: v, Reason: "malformed time"})
		}
	}

	if v, ok := m[KeyDuration]; ok {
		minutes, err := strconv.Atoi(v)
		switch {
		case err != nil:
			problems = append(problems, Problem{Key: KeyDuration, Value: v, Reason: "malformed duration"})
		case minutes < e.cfg.MinDurationMinutes || minutes > e.cfg.MaxDurationMinutes:
			problems = append(problems, Problem{
				Key:    KeyDuration,
				Value:  v,
				Reason: fmt.Sprintf("duration must be between %d and %d minutes", e.cfg.MinDurationMinutes, e.cfg.MaxDurationMinutes),
			})
		}
	}

	for _, p := range problems {
		e.logger.Warn("invalid entity", "key", p.Key, "reason", p.Reason)
	}
	return problems
}

// DurationBounds reports the accepted duration range in minutes.
func (e *Extractor) DurationBounds() (min, max int) {
	return e.cfg.MinDurationMinutes, e.cfg.MaxDurationMinutes
}
