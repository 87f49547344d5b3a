package suno

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingAudio means a task reported success but carried no playable track.
var ErrMissingAudio = errors.New("suno: success response without audio url")

// ErrorKind buckets request failures for user-facing messaging.
type ErrorKind string

const (
	KindCredits ErrorKind = "credits"
	KindAPI     ErrorKind = "api"
	KindNetwork ErrorKind = "network"
	KindTimeout ErrorKind = "timeout"
	KindUnknown ErrorKind = "unknown"
)

// RequestError is a classified failure from the generation API.
type RequestError struct {
	Code    int
	Msg     string
	Details string
	Kind    ErrorKind
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("suno: %s (code %d, %s)", e.Msg, e.Code, e.Kind)
}

// TimeoutError means AwaitCompletion gave up before the task finished.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("suno: timeout waiting for task completion after %s", e.Waited)
}

func classifyKind(httpStatus int, msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case httpStatus == 429 || strings.Contains(lower, "insufficient credits") || strings.Contains(lower, "top up"):
		return KindCredits
	case httpStatus >= 500:
		return KindAPI
	case httpStatus == 408:
		return KindTimeout
	default:
		return KindUnknown
	}
}
