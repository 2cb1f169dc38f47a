package config

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

var standardCron = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule accepts 5-field expressions only ("0 */6 * * *").
// Descriptors such as "@hourly" and a seconds field are rejected.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return errors.New("cron schedule is empty")
	}
	if _, err := standardCron.Parse(schedule); err != nil {
		return fmt.Errorf("cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateTimezone accepts IANA names known to the local tzdata.
func ValidateTimezone(name string) error {
	if name == "" {
		return errors.New("timezone is empty")
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("timezone %q: %w", name, err)
	}
	return nil
}

func inRange[T cmp.Ordered](v, lo, hi T) error {
	switch {
	case lo > hi:
		return fmt.Errorf("empty range [%v, %v]", lo, hi)
	case v < lo || v > hi:
		return fmt.Errorf("%v is outside [%v, %v]", v, lo, hi)
	}
	return nil
}

// ValidateDuration checks that d lies within [lo, hi].
func ValidateDuration(d, lo, hi time.Duration) error { return inRange(d, lo, hi) }

// ValidateIntRange checks that v lies within [lo, hi].
func ValidateIntRange(v, lo, hi int) error { return inRange(v, lo, hi) }

// ValidatePositiveDuration rejects zero and negative durations.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%v is not positive", d)
	}
	return nil
}

// ValidateWebhookURL requires an absolute https URL.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return errors.New("webhook url must be absolute and use https")
	}
	return nil
}
