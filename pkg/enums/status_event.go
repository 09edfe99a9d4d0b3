package enums

import "fmt"

// StatusEventSource records which channel reported the transition.
type StatusEventSource string

const (
	StatusEventSourceSync    StatusEventSource = "sync"
	StatusEventSourceWebhook StatusEventSource = "webhook"
	StatusEventSourcePoll    StatusEventSource = "poll"
	StatusEventSourceManual  StatusEventSource = "manual"
)

var validStatusEventSources = []StatusEventSource{
	StatusEventSourceSync,
	StatusEventSourceWebhook,
	StatusEventSourcePoll,
	StatusEventSourceManual,
}

// String implements fmt.Stringer.
func (s StatusEventSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatusEventSource.
func (s StatusEventSource) IsValid() bool {
	for _, candidate := range validStatusEventSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatusEventSource converts raw input into a StatusEventSource.
func ParseStatusEventSource(value string) (StatusEventSource, error) {
	for _, candidate := range validStatusEventSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status event source %q", value)
}

// StatusEventResult records whether the reported transition was applied
// to the order or rejected and kept as audit only.
type StatusEventResult string

const (
	StatusEventResultApplied  StatusEventResult = "applied"
	StatusEventResultRejected StatusEventResult = "rejected"
)

var validStatusEventResults = []StatusEventResult{
	StatusEventResultApplied,
	StatusEventResultRejected,
}

// String implements fmt.Stringer.
func (s StatusEventResult) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatusEventResult.
func (s StatusEventResult) IsValid() bool {
	for _, candidate := range validStatusEventResults {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatusEventResult converts raw input into a StatusEventResult.
func ParseStatusEventResult(value string) (StatusEventResult, error) {
	for _, candidate := range validStatusEventResults {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status event result %q", value)
}
