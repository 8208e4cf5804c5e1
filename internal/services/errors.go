package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProbeFailure        = errors.New("probe failure")
	ErrConvertFailure      = errors.New("convert failure")
	ErrStrategyUnavailable = errors.New("strategy unavailable")
	ErrSourceVanished      = errors.New("source vanished")
	ErrLockBusy            = errors.New("lock busy")
	ErrCacheCorruption     = errors.New("cache corruption")
	ErrExternalTool        = errors.New("external tool error")
	ErrConfiguration       = errors.New("configuration error")
	ErrTimeout             = errors.New("timeout")
	ErrAborted             = errors.New("aborted")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsBatchFatal reports whether err is a resource-level failure that must stop
// the whole run. Per-candidate failures never qualify.
func IsBatchFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStrategyUnavailable) || errors.Is(err, ErrLockBusy) || errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
