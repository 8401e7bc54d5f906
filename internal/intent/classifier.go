package intent

import (
	"log/slog"
	"strings"
)

// Result is the outcome of classifying one message.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Thresholds tunes the word-count confidence heuristic.
type Thresholds struct {
	ShortWords       int
	ShortConfidence  float64
	MediumWords      int
	MediumConfidence float64
	LongConfidence   float64
	// LowConfidenceWarning logs matches that score below it.
	LowConfidenceWarning float64
}

// DefaultThresholds returns the stock heuristic: <=5 words 0.95, <=10 words 0.85, else 0.75.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortWords:           5,
		ShortConfidence:      0.95,
		MediumWords:          10,
		MediumConfidence:     0.85,
		LongConfidence:       0.75,
		LowConfidenceWarning: 0.6,
	}
}

// Classifier maps free text to an intent by evaluating an ordered pattern table.
type Classifier struct {
	families   []Family
	thresholds Thresholds
	logger     *slog.Logger
}

func NewClassifier(thresholds Thresholds, logger *slog.Logger) *Classifier {
	return NewClassifierWithFamilies(DefaultFamilies(), thresholds, logger)
}

// NewClassifierWithFamilies builds a classifier over a custom table; order is preserved.
func NewClassifierWithFamilies(families []Family, thresholds Thresholds, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultThresholds()
	if thresholds == (Thresholds{}) {
		thresholds = defaults
	}
	if thresholds.ShortWords <= 0 {
		thresholds.ShortWords = defaults.ShortWords
	}
	if thresholds.MediumWords <= 0 {
		thresholds.MediumWords = defaults.MediumWords
	}
	table := make([]Family, 0, len(families))
	for _, f := range families {
		if f.Intent == Unknown || len(f.Patterns) == 0 {
			continue
		}
		table = append(table, f)
	}
	return &Classifier{
		families:   table,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Classify never fails; blank input and unmatched text yield (Unknown, 0).
func (c *Classifier) Classify(text string) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Result{Intent: Unknown}
	}

	for _, f := range c.families {
		if !f.Matches(normalized) {
			continue
		}
		confidence := c.score(normalized)
		if confidence < c.thresholds.LowConfidenceWarning {
			c.logger.Warn("low confidence intent match", "intent", f.Intent, "confidence", confidence)
		}
		c.logger.Debug("intent classified", "intent", f.Intent, "confidence", confidence)
		return Result{Intent: f.Intent, Confidence: confidence}
	}

	c.logger.Debug("no intent matched", "length", len(normalized))
	return Result{Intent: Unknown}
}

// Score returns the length-based confidence for text regardless of which intent it maps to.
func (c *Classifier) Score(text string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return 0
	}
	return c.score(normalized)
}

func (c *Classifier) score(normalized string) float64 {
	words := len(strings.Fields(normalized))
	switch {
	case words <= c.thresholds.ShortWords:
		return c.thresholds.ShortConfidence
	case words <= c.thresholds.MediumWords:
		return c.thresholds.MediumConfidence
	default:
		return c.thresholds.LongConfidence
	}
}

// Families returns a copy of the evaluation table.
func (c *Classifier) Families() []Family {
	out := make([]Family, len(c.families))
	copy(out, c.families)
	return out
}
