package providers

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	// ErrorConfig marks fatal misconfiguration (wrong embedding dimension,
	// missing credentials). Never retried.
	ErrorConfig ErrorType = "config"
)

// ProviderError is the typed failure every provider client returns, so retry
// policy can dispatch on a closed set of kinds instead of matching message
// text at call sites.
type ProviderError struct {
	Type     ErrorType
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error %d (%s): %s", e.Provider, e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Type, e.Message)
}

func newHTTPError(provider string, status int, body []byte) *ProviderError {
	return &ProviderError{
		Type:     typeFromStatus(status),
		Provider: provider,
		Status:   status,
		Message:  strings.TrimSpace(string(body)),
	}
}

func configError(provider, format string, args ...any) *ProviderError {
	return &ProviderError{Type: ErrorConfig, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func typeFromStatus(status int) ErrorType {
	switch {
	case status == 429:
		return ErrorRate
	case status == 402 || status == 403:
		return ErrorQuota
	case status >= 500:
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// ClassifyError maps any error to an ErrorType. Typed provider errors carry
// their kind; anything else falls back to message matching for errors that
// arrive from outside the provider clients.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Type
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "429"), strings.Contains(e, "rate"), strings.Contains(e, "limit"):
		return ErrorRate
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
