package cache

import "fmt"

// StaleValueBehavior controls how the supplier reacts when a refresh fails
// while a previously cached value is still held.
type StaleValueBehavior string

const (
	// StaleValueStrict surfaces the refresh failure to the caller.
	StaleValueStrict StaleValueBehavior = "STRICT"

	// StaleValueAllow returns the previously cached value and logs a warning.
	// When no previous value exists the failure is surfaced regardless.
	StaleValueAllow StaleValueBehavior = "ALLOW"
)

// ParseStaleValueBehavior maps a configuration string to a behavior.
func ParseStaleValueBehavior(s string) (StaleValueBehavior, error) {
	switch StaleValueBehavior(s) {
	case StaleValueStrict:
		return StaleValueStrict, nil
	case StaleValueAllow:
		return StaleValueAllow, nil
	default:
		return "", fmt.Errorf("cache: unknown stale value behavior %q", s)
	}
}
