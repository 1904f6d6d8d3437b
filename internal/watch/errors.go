package watch

import (
	"errors"
	"fmt"
)

// ConfigError reports a run config that was rejected at start.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// FetchError reports a failed target fetch. The monitor recovers by waiting
// the recovery delay and trying again on the next pass.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KeywordSourceError reports a ranking or trend source failure. It is never
// returned to the monitor; the provider substitutes its fallback list.
type KeywordSourceError struct {
	Mode Mode
	Err  error
}

func (e *KeywordSourceError) Error() string {
	return fmt.Sprintf("keyword source %s: %v", e.Mode, e.Err)
}

func (e *KeywordSourceError) Unwrap() error {
	return e.Err
}

// NotifyError reports a failed notification. The title stays recorded as sent.
type NotifyError struct {
	StatusCode int
	Err        error
}

func (e *NotifyError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notify: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("notify: %v", e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
