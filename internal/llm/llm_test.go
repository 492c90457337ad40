package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain object", `{"summary": "ok"}`, `{"summary": "ok"}`},
		{"fenced block", "```json\n{\"summary\": \"ok\"}\n```", `{"summary": "ok"}`},
		{"surrounding prose", "Here you go: {\"summary\": \"ok\"} hope that helps", `{"summary": "ok"}`},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeJSONBlock(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	if _, err := NewAnthropicClient(AnthropicConfig{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestMockRecordsCalls(t *testing.T) {
	mock := NewMock()
	result, err := mock.Complete(context.Background(), RiskSignalExtractorPrompt("roof claim"), TraceRiskSignalExtractor)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	parsed, err := DecodeRiskSignals(result)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(parsed.Signals) != 3 {
		t.Fatalf("expected 3 mock signals, got %d", len(parsed.Signals))
	}
	if parsed.Confidence != 0.88 {
		t.Fatalf("expected confidence 0.88, got %v", parsed.Confidence)
	}

	calls := mock.Calls()
	if len(calls) != 1 || calls[0].TraceName != TraceRiskSignalExtractor {
		t.Fatalf("unexpected recorded calls: %+v", calls)
	}
	if !strings.Contains(calls[0].Prompt, "roof claim") {
		t.Fatal("expected prompt recorded verbatim")
	}
}

func TestMockUnknownTrace(t *testing.T) {
	mock := NewMock()
	result, err := mock.Complete(context.Background(), "p", "nonsense")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if msg, failed := IsErrorResult(result); !failed || msg != "unknown prompt" {
		t.Fatalf("expected unknown prompt error, got %v", result)
	}
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	if _, err := DecodeRiskSignals(map[string]any{"signals": []any{}}); err == nil {
		t.Fatal("expected missing-field error")
	}
	if _, err := DecodeEndorsementComparison(map[string]any{"change_type": "restriction"}); err == nil {
		t.Fatal("expected missing-field error")
	}
	if _, err := DecodeReviewSummary(map[string]any{"summary": 42}); err == nil {
		t.Fatal("expected type error")
	}
}

type fixedClient struct {
	result map[string]any
	err    error
}

func (f *fixedClient) Enabled() bool { return true }
func (f *fixedClient) Complete(context.Context, string, string) (map[string]any, error) {
	return f.result, f.err
}

func TestWithFallback(t *testing.T) {
	tests := []struct {
		name     string
		primary  Client
		fallback Client
		expected string
	}{
		{
			"primary wins",
			&fixedClient{result: map[string]any{"summary": "primary"}},
			&fixedClient{result: map[string]any{"summary": "fallback"}},
			"primary",
		},
		{
			"primary error falls through",
			&fixedClient{err: errors.New("boom")},
			&fixedClient{result: map[string]any{"summary": "fallback"}},
			"fallback",
		},
		{
			"primary error payload falls through",
			&fixedClient{result: map[string]any{"error": "rate limited"}},
			&fixedClient{result: map[string]any{"summary": "fallback"}},
			"fallback",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chain := WithFallback(tc.primary, tc.fallback)
			result, err := chain.Complete(context.Background(), "p", TraceReviewSummary)
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			if result["summary"] != tc.expected {
				t.Fatalf("expected %q, got %v", tc.expected, result)
			}
		})
	}
}

func TestWithFallbackNilHandling(t *testing.T) {
	primary := &fixedClient{result: map[string]any{"summary": "primary"}}
	if WithFallback(primary, nil) != Client(primary) {
		t.Fatal("expected primary passthrough when fallback nil")
	}
	if WithFallback(nil, primary) != Client(primary) {
		t.Fatal("expected fallback passthrough when primary nil")
	}
}
