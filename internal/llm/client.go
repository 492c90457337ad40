package llm

import (
	"context"
	"errors"
)

// Trace names identify the analysis task behind each completion call. They
// are stable identifiers used for observability and by the mock client.
const (
	TraceRiskSignalExtractor   = "risk_signal_extractor"
	TraceEndorsementComparison = "endorsement_comparison"
	TraceReviewSummary         = "review_summary"
	TraceQuotePersonalization  = "quote_personalization"
)

// Client is a JSON-mode completion provider. Complete returns the decoded
// JSON object; provider failures may surface either as an error or as a
// result carrying an "error" key, and callers must handle both.
type Client interface {
	Enabled() bool
	Complete(ctx context.Context, prompt, traceName string) (map[string]any, error)
}

var ErrDisabled = errors.New("llm client disabled")

// IsErrorResult reports whether a completion result carries a provider
// error payload, and returns its message.
func IsErrorResult(result map[string]any) (string, bool) {
	v, ok := result["error"]
	if !ok {
		return "", false
	}
	msg, _ := v.(string)
	return msg, true
}

type clientChain struct {
	primary  Client
	fallback Client
}

// WithFallback returns a client that first tries the primary and falls back
// when the primary is unavailable or fails outright.
func WithFallback(primary, fallback Client) Client {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &clientChain{primary: primary, fallback: fallback}
}

func (c *clientChain) Enabled() bool {
	if c == nil {
		return false
	}
	if c.primary != nil && c.primary.Enabled() {
		return true
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return true
	}
	return false
}

func (c *clientChain) Complete(ctx context.Context, prompt, traceName string) (map[string]any, error) {
	if c == nil {
		return nil, ErrDisabled
	}
	if c.primary != nil && c.primary.Enabled() {
		result, err := c.primary.Complete(ctx, prompt, traceName)
		if err == nil {
			if _, failed := IsErrorResult(result); !failed {
				return result, nil
			}
		}
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.Complete(ctx, prompt, traceName)
	}
	return nil, ErrDisabled
}
