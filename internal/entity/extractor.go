package entity

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entity keys.
const (
	KeyEmail    = "email"
	KeyDate     = "date"
	KeyTime     = "time"
	KeyDuration = "duration"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Map holds at most one canonical value per entity key.
type Map map[string]string

// Clone returns an independent copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Config bounds extraction and validation.
type Config struct {
	MaxEmailLength        int
	TwoDigitYearThreshold int
	MinDurationMinutes    int
	MaxDurationMinutes    int
}

func DefaultConfig() Config {
	return Config{
		MaxEmailLength:        254,
		TwoDigitYearThreshold: 50,
		MinDurationMinutes:    1,
		MaxDurationMinutes:    1440,
	}
}

var (
	emailPattern     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])\b`)
	monthDatePattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\s+(\d{1,2})(st|nd|rd|th)?\b`)
	slashDatePattern = regexp.MustCompile(`\b(0?[1-9]|1[0-2])/(0?[1-9]|[12][0-9]|3[01])/(\d{4}|\d{2})\b`)
	time24Pattern    = regexp.MustCompile(`\b([01][0-9]|2[0-3]):([0-5][0-9])\b`)
	meridiemSuffix   = regexp.MustCompile(`(?i)^\s*(am|pm)\b`)
	time12Pattern    = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9]):([0-5][0-9])\s*(am|pm)\b`)
	timeHourPattern  = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9])\s*(am|pm)\b`)
	durationPattern  = regexp.MustCompile(`(?i)\b(\d+)\s*(minutes|minute|mins|min|hours|hour|hrs|hr)\b`)

	todayPattern    = regexp.MustCompile(`\btoday\b`)
	tomorrowPattern = regexp.MustCompile(`\btomorrow\b`)
	nextWeekPattern = regexp.MustCompile(`\bnext\s+week\b`)
	nextDayPattern  = regexp.MustCompile(`\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Extractor pulls email, date, time and duration values out of free text.
type Extractor struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	defaults := DefaultConfig()
	if cfg == (Config{}) {
		cfg = defaults
	}
	if cfg.MaxEmailLength <= 0 {
		cfg.MaxEmailLength = defaults.MaxEmailLength
	}
	if cfg.MinDurationMinutes <= 0 && cfg.MaxDurationMinutes <= 0 {
		cfg.MinDurationMinutes = defaults.MinDurationMinutes
		cfg.MaxDurationMinutes = defaults.MaxDurationMinutes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, now: time.Now, logger: logger}
}

// SetClock overrides the reference clock used by Extract and Validate.
func (e *Extractor) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

func (e *Extractor) Extract(text string) Map {
	return e.ExtractAt(text, e.now())
}

// ExtractAt resolves relative and year-less dates against now's calendar day.
func (e *Extractor) ExtractAt(text string, now time.Time) Map {
	out := Map{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	today := dateOnly(now)

	e.extractEmail(text, out)
	extractDate(text, today, e.cfg.TwoDigitYearThreshold, out)
	extractTime(text, out)
	extractDuration(text, out)
	extractRelativeDate(strings.ToLower(text), today, out)

	if len(out) > 0 {
		e.logger.Debug("entities extracted", "count", len(out))
	}
	return out
}

func (e *Extractor) extractEmail(text string, out Map) {
	candidate := emailPattern.FindString(text)
	if candidate == "" {
		return
	}
	if len(candidate) > e.cfg.MaxEmailLength || strings.Count(candidate, "@") != 1 {
		return
	}
	out[KeyEmail] = candidate
}

func extractDate(text string, today time.Time, yearThreshold int, out Map) {
	if m := isoDatePattern.FindString(text); m != "" {
		if d, err := time.Parse(DateLayout, m); err == nil {
			out[KeyDate] = d.Format(DateLayout)
			return
		}
	}

	if m := monthDatePattern.FindStringSubmatch(text); m != nil {
		month := months[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		if d, ok := civilDate(today.Year(), month, day); ok {
			if d.Before(today) {
				d, ok = civilDate(today.Year()+1, month, day)
			}
			if ok {
				out[KeyDate] = d.Format(DateLayout)
				return
			}
		}
	}

	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			if year < yearThreshold {
				year += 2000
			} else {
				year += 1900
			}
		}
		if d, ok := civilDate(year, time.Month(month), day); ok {
			out[KeyDate] = d.Format(DateLayout)
		}
	}
}

func extractTime(text string, out Map) {
	// A 24h match directly followed by a meridiem belongs to the 12h form.
	for _, loc := range time24Pattern.FindAllStringSubmatchIndex(text, -1) {
		if meridiemSuffix.MatchString(text[loc[1]:]) {
			continue
		}
		hour, _ := strconv.Atoi(text[loc[2]:loc[3]])
		minute, _ := strconv.Atoi(text[loc[4]:loc[5]])
		out[KeyTime] = fmt.Sprintf("%02d:%02d", hour, minute)
		return
	}

	if m := time12Pattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		out[KeyTime] = fmt.Sprintf("%02d:%02d", to24Hour(hour, m[3]), minute)
		return
	}

	if m := timeHourPattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		out[KeyTime] = fmt.Sprintf("%02d:00", to24Hour(hour, m[2]))
	}
}

func extractDuration(text string, out Map) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	unit := strings.ToLower(m[2])
	if strings.HasPrefix(unit, "h") {
		value *= 60
	}
	out[KeyDuration] = strconv.Itoa(value)
}

// extractRelativeDate runs last and may overwrite an explicit date.
func extractRelativeDate(lower string, today time.Time, out Map) {
	switch {
	case todayPattern.MatchString(lower):
		out[KeyDate] = today.Format(DateLayout)
	case tomorrowPattern.MatchString(lower):
		out[KeyDate] = today.AddDate(0, 0, 1).Format(DateLayout)
	case nextDayPattern.MatchString(lower):
		name := nextDayPattern.FindStringSubmatch(lower)[1]
		out[KeyDate] = NextWeekday(today, weekdays[name]).Format(DateLayout)
	case nextWeekPattern.MatchString(lower):
		out[KeyDate] = today.AddDate(0, 0, 7).Format(DateLayout)
	}
}

// NextWeekday returns the nearest future day with the given weekday, never today.
func NextWeekday(today time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func to24Hour(hour int, meridiem string) int {
	hour %= 12
	if strings.EqualFold(meridiem, "pm") {
		hour += 12
	}
	return hour
}

// civilDate rejects dates that time.Date would normalize, such as February 30.
func civilDate(year int, month time.Month, day int) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
