package timezone

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// UTCLayout is the naive UTC form expected by meeting providers.
	UTCLayout = "2006-01-02T15:04:05"
	// DisplayLayout renders instants for people, zone abbreviation included.
	DisplayLayout = "January 2, 2006 at 3:04 PM MST"

	dateLayout = "2006-01-02"
)

var ErrDateTimeRequired = errors.New("date and time are required")

// Converter moves wall-clock values between a user's zone and UTC.
// Unknown or blank zone IDs resolve to UTC.
type Converter struct {
	logger    *slog.Logger
	locations sync.Map
}

func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{logger: logger}
}

// Location resolves an IANA zone ID, falling back to UTC.
func (c *Converter) Location(zoneID string) *time.Location {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return time.UTC
	}
	if loc, ok := c.locations.Load(zoneID); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		c.logger.Warn("invalid timezone, using UTC", "timezone", zoneID)
		return time.UTC
	}
	c.locations.Store(zoneID, loc)
	return loc
}

// Known reports whether zoneID names a loadable zone.
func (c *Converter) Known(zoneID string) bool {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return false
	}
	_, err := time.LoadLocation(zoneID)
	return err == nil
}

// LocalToUTC combines a local date (YYYY-MM-DD) and time (HH, HH:MM or HH:MM:SS)
// in zoneID and renders the instant in UTC without a zone suffix.
func (c *Converter) LocalToUTC(date, clock, zoneID string) (string, error) {
	local, err := c.localTime(date, clock, zoneID)
	if err != nil {
		return "", err
	}
	return local.UTC().Format(UTCLayout), nil
}

// UTCToLocal renders a UTC instant in zoneID. Unparseable input is returned unchanged.
func (c *Converter) UTCToLocal(instant, zoneID string) string {
	t, err := ParseInstant(instant)
	if err != nil {
		c.logger.Warn("unparseable instant", "error", err)
		return instant
	}
	return t.In(c.Location(zoneID)).Format(DisplayLayout)
}

// FormatLocalDateTime renders already-local components, falling back to "<date> at <time>".
func (c *Converter) FormatLocalDateTime(date, clock, zoneID string) string {
	local, err := c.localTime(date, clock, zoneID)
	if err != nil {
		return date + " at " + clock
	}
	return local.Format(DisplayLayout)
}

// Now returns the current instant in zoneID.
func (c *Converter) Now(zoneID string, now time.Time) time.Time {
	return now.In(c.Location(zoneID))
}

// Today returns the calendar date in zoneID as YYYY-MM-DD.
func (c *Converter) Today(zoneID string, now time.Time) string {
	return c.Now(zoneID, now).Format(dateLayout)
}

func (c *Converter) localTime(date, clock, zoneID string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrDateTimeRequired
	}
	loc := c.Location(zoneID)
	t, err := time.ParseInLocation(dateLayout+" 15:04:05", date+" "+normalizeClock(clock), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}

func normalizeClock(clock string) string {
	parts := strings.Split(clock, ":")
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	switch len(parts) {
	case 1:
		return parts[0] + ":00:00"
	case 2:
		return parts[0] + ":" + parts[1] + ":00"
	default:
		return strings.Join(parts, ":")
	}
}

// ParseInstant accepts RFC 3339 or the naive UTC layout.
func ParseInstant(instant string) (time.Time, error) {
	instant = strings.TrimSpace(instant)
	if t, err := time.Parse(time.RFC3339, instant); err == nil {
		return t, nil
	}
	return time.ParseInLocation(UTCLayout, instant, time.UTC)
}
