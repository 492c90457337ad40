package llm

import (
	"context"
	"sync"
)

// MockCall records one completion request made against the mock client.
type MockCall struct {
	Prompt    string
	TraceName string
}

// Mock is a deterministic in-process Client used in tests and when no
// provider is configured. It records every call it receives.
type Mock struct {
	mu    sync.Mutex
	calls []MockCall
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Enabled() bool {
	return m != nil
}

// Calls returns a snapshot of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) Complete(_ context.Context, prompt, traceName string) (map[string]any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, TraceName: traceName})
	m.mu.Unlock()
	return mockResponse(traceName), nil
}

func mockResponse(traceName string) map[string]any {
	switch traceName {
	case TraceRiskSignalExtractor:
		return map[string]any{
			"signals": []any{
				map[string]any{
					"signal_type": "claims_history",
					"description": "Prior water damage claim noted in file",
					"severity":    "high",
				},
				map[string]any{
					"signal_type": "property_risk",
					"description": "Aging roof mentioned, replacement overdue",
					"severity":    "medium",
				},
				map[string]any{
					"signal_type": "regulatory",
					"description": "SR-22 filing active, state-mandated proof of insurance required for continued compliance",
					"severity":    "high",
				},
			},
			"confidence": 0.88,
			"summary":    "Multiple risk indicators found in policy notes",
		}

	case TraceEndorsementComparison:
		return map[string]any{
			"material_change": true,
			"change_type":     "restriction",
			"confidence":      0.8,
			"reasoning":       "Water backup endorsement (HO 04 95) removed in renewal; sewer/drain coverage dropped, material for property with prior water damage claim",
		}

	case TraceReviewSummary:
		return map[string]any{
			"summary": "This renewal shows a 23% premium increase from $2,400 to $2,952 with water backup coverage dropped and deductible unchanged. Prior water damage claim and aging roof noted; recommend urgent broker review before binding.",
		}

	case TraceQuotePersonalization:
		return map[string]any{
			"quotes": []any{
				map[string]any{
					"quote_id":   "Q1",
					"trade_off":  "This option raises the home deductible from $1,000 to $2,500, saving approximately $607/year (12.5%). Given the prior water damage claim and aging roof noted in this policy, the risk of needing to file a claim is above average, so it suits clients with strong emergency savings who rarely file claims.",
					"broker_tip": "Ask the client whether they have at least $2,500 in liquid savings set aside for emergencies. With the aging roof and prior water damage history, confirm they can absorb that cost before binding.",
				},
				map[string]any{
					"quote_id":   "Q2",
					"trade_off":  "Removing water backup coverage saves about $146/year (3%), but the client loses protection for sewer backup, sump pump failure, and foundation seepage. This policy already has a prior water damage claim on file, making this a higher-risk removal.",
					"broker_tip": "Before removing this coverage, ask about the age and condition of the sump pump, plumbing, and drainage system. Given the prior water damage claim, confirm repairs were made since the loss.",
				},
			},
		}
	}

	return map[string]any{"error": "unknown prompt"}
}
