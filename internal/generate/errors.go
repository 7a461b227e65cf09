package generate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel markers for generation failures. Callers classify outcomes with
// errors.Is rather than string matching.
var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRemote             = errors.New("remote error")
	ErrTimeout            = errors.New("generation timeout")
	ErrDecode             = errors.New("decode error")
	ErrStorage            = errors.New("storage error")
	ErrCancelled          = errors.New("generation cancelled")
	ErrJobNotFound        = errors.New("job not found")
)

// Wrap tags an error with one of the sentinel markers above while keeping
// operation context in the message.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrRemote
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// TimeoutError reports that a video generation exceeded the polling deadline.
// The remote request id is preserved so the condition can be investigated or
// retried out of band.
type TimeoutError struct {
	RequestID string
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation timeout: request %s still processing after %s", e.RequestID, e.Elapsed.Round(time.Second))
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "generation failure"
	}
	return strings.Join(parts, ": ")
}

// OutcomeLabel maps a terminal job error to the label recorded on the
// generation counters.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "remote_error"
	}
}
