package service

import (
	"fmt"
	"time"

	"postpilot/internal/logging"
)

// InvalidDateTimeError reports a datetime string that no supported layout
// could parse. Unlike an invalid timezone, this is a hard error: guessing
// at a user's intended instant would store the wrong schedule.
type InvalidDateTimeError struct {
	Value string
}

func (e *InvalidDateTimeError) Error() string {
	return fmt.Sprintf("invalid datetime: %q", e.Value)
}

// TimezoneService converts between a user's wall-clock time and UTC.
// An unresolvable IANA identifier never fails a conversion: the service
// logs a warning and substitutes UTC, because storing a correct UTC
// instant matters more than a correct display fallback.
type TimezoneService interface {
	ConvertToUTC(localDateTime, timezone string) (string, error)
	ConvertFromUTC(utcDateTime, timezone string) (string, error)
	ValidateTimezone(timezone string) bool
	HandleDSTTransition(dateTime, timezone string) (string, error)
}

// Accepted wall-clock layouts, most specific first. The first two carry an
// explicit offset and are used verbatim.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type timezoneService struct {
	log *logging.Logger
}

func NewTimezoneService(log *logging.Logger) TimezoneService {
	return &timezoneService{log: log}
}

func (s *timezoneService) ConvertToUTC(localDateTime, timezone string) (string, error) {
	loc := s.locationOrUTC(timezone)

	t, err := parseInLocation(localDateTime, loc)
	if err != nil {
		return "", err
	}

	return t.UTC().Format(time.RFC3339), nil
}

func (s *timezoneService) ConvertFromUTC(utcDateTime, timezone string) (string, error) {
	loc := s.locationOrUTC(timezone)

	t, err := parseInLocation(utcDateTime, time.UTC)
	if err != nil {
		return "", err
	}

	return t.In(loc).Format(time.RFC3339), nil
}

func (s *timezoneService) ValidateTimezone(timezone string) bool {
	if timezone == "" {
		return false
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

// HandleDSTTransition resolves a wall-clock time near a DST boundary using
// the zone database's offset at that instant. Spring-forward gaps are
// normalized forward and fall-back ambiguity resolves to the first offset,
// which is stable under repeated application.
func (s *timezoneService) HandleDSTTransition(dateTime, timezone string) (string, error) {
	loc := s.locationOrUTC(timezone)

	t, err := parseInLocation(dateTime, loc)
	if err != nil {
		return "", err
	}

	return t.In(loc).Format(time.RFC3339), nil
}

func (s *timezoneService) locationOrUTC(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to UTC",
			logging.String("timezone", timezone), logging.Err(err))
		return time.UTC
	}
	return loc
}

func parseInLocation(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidDateTimeError{Value: value}
}
