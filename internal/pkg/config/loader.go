// Package config provides fail-open environment loaders and validators.
//
// Every loader returns a usable value: an unset variable yields the default
// silently, an unparsable or invalid one yields the default plus a warning.
// Callers log the warnings and record them through ConfigMetrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one environment variable.
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
	Reason          string // FallbackUnparsable or FallbackInvalid when FallbackApplied
}

// Fallback reasons reported in LoadResult.Reason.
const (
	FallbackUnparsable = "unparsable"
	FallbackInvalid    = "invalid"
)

// LoadEnvString returns the variable or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string validated by validator.
//
// Example:
//
//	result := LoadEnvWithFallback("CRON_SCHEDULE", "0 */6 * * *", ValidateCronSchedule)
//	schedule := result.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a time.Duration in time.ParseDuration syntax ("30m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return load(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvFloat loads a float64.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) LoadResult[float64] {
	return load(envKey, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, validator)
}

// LoadEnvBool loads a boolean in strconv.ParseBool syntax.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return load(envKey, defaultValue, strconv.ParseBool, nil)
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	result := LoadResult[T]{Value: defaultValue}

	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return result
	}

	value, err := parse(raw)
	if err != nil {
		result.FallbackApplied = true
		result.Reason = FallbackUnparsable
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: cannot parse %q, using default %v: %v", envKey, raw, defaultValue, err))
		return result
	}

	if validator != nil {
		if err := validator(value); err != nil {
			result.FallbackApplied = true
			result.Reason = FallbackInvalid
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: invalid value %q, using default %v: %v", envKey, raw, defaultValue, err))
			return result
		}
	}

	result.Value = value
	return result
}
