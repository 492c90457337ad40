package review

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"renewal-review/backend/internal/diff"
	"renewal-review/backend/internal/llm"
	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/rules"
	"renewal-review/backend/internal/util"
)

// Processor runs the review pipeline: diff, rule flags, risk assignment and
// optional LLM enrichment.
type Processor struct {
	Thresholds rules.Thresholds
	Keywords   rules.NotesKeywords
	Client     llm.Client
}

func NewProcessor(client llm.Client) *Processor {
	return &Processor{
		Thresholds: rules.DefaultThresholds(),
		Keywords:   rules.DefaultNotesKeywords(),
		Client:     client,
	}
}

func (p *Processor) llmEnabled() bool {
	return p.Client != nil && p.Client.Enabled()
}

// ProcessPair reviews a single renewal pair.
func (p *Processor) ProcessPair(ctx context.Context, pair policy.RenewalPair) ReviewResult {
	d := diff.Compute(pair)
	d = rules.FlagDiff(d, pair, p.Thresholds)

	// new notes content also feeds the keyword scan
	if pair.Renewal.Notes != "" && pair.Prior.Notes != pair.Renewal.Notes {
		d.Flags = mergeFlags(d.Flags, rules.FlagNotesKeywords(pair.Renewal.Notes, p.Keywords))
	}

	ruleRisk := AssignRiskLevel(d.Flags)

	var result ReviewResult
	if p.llmEnabled() && len(d.Flags) > 0 && ShouldAnalyze(d, pair) {
		insights := AnalyzePair(ctx, p.Client, d, pair)
		result = Aggregate(pair.Prior.PolicyNumber, ruleRisk, d, insights)
		result.Pair = &pair
	} else {
		var parts []string
		if len(d.Flags) > 0 {
			names := make([]string, 0, len(d.Flags))
			for _, f := range d.Flags {
				names = append(names, string(f))
			}
			parts = append(parts, fmt.Sprintf("Flags: %s", strings.Join(names, ", ")))
		}
		parts = append(parts, fmt.Sprintf("Risk: %s", ruleRisk))

		result = ReviewResult{
			PolicyNumber: pair.Prior.PolicyNumber,
			RiskLevel:    ruleRisk,
			Diff:         d,
			Summary:      strings.Join(parts, " | "),
			Pair:         &pair,
		}
	}

	if p.llmEnabled() && len(d.Flags) > 0 {
		if summary := GenerateSummary(ctx, p.Client, result); summary != "" {
			result.Summary = summary
			result.LLMSummaryGenerated = true
		}
	}

	return result
}

// Enrich lazily adds LLM insights and summary to a stored review. No-op
// when the review has no pair context or no flags.
func (p *Processor) Enrich(ctx context.Context, result *ReviewResult) {
	if !p.llmEnabled() || result.Pair == nil || len(result.Diff.Flags) == 0 {
		return
	}

	if len(result.LLMInsights) == 0 && ShouldAnalyze(result.Diff, *result.Pair) {
		insights := AnalyzePair(ctx, p.Client, result.Diff, *result.Pair)
		result.LLMInsights = insights
		aggregated := Aggregate(result.PolicyNumber, result.RiskLevel, result.Diff, insights)
		result.RiskLevel = aggregated.RiskLevel
	}

	if !result.LLMSummaryGenerated {
		if summary := GenerateSummary(ctx, p.Client, *result); summary != "" {
			result.Summary = summary
			result.LLMSummaryGenerated = true
		}
	}
}

func mergeFlags(flags, extra []diff.Flag) []diff.Flag {
	seen := make(map[diff.Flag]struct{}, len(flags))
	for _, f := range flags {
		seen[f] = struct{}{}
	}
	for _, f := range extra {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		flags = append(flags, f)
	}
	return flags
}

// RiskDistribution counts reviews per risk level keyed by the wire names.
func RiskDistribution(results []ReviewResult) map[string]int {
	dist := map[string]int{
		"no_action_needed":   0,
		"review_recommended": 0,
		"action_required":    0,
		"urgent_review":      0,
	}
	for _, r := range results {
		dist[r.RiskLevel.String()]++
	}
	return dist
}

// ProgressFunc receives (processed, total) after each pair completes.
// Invocations are serialized.
type ProgressFunc func(processed, total int)

// ProcessBatch reviews all pairs concurrently. Result order matches input
// order regardless of worker scheduling.
func (p *Processor) ProcessBatch(ctx context.Context, pairs []policy.RenewalPair, onProgress ProgressFunc) ([]ReviewResult, BatchSummary) {
	timer := util.StartTimer()
	total := len(pairs)
	results := make([]ReviewResult, total)

	workerCount := determineWorkerCount()
	if workerCount > total && total > 0 {
		workerCount = total
	}
	logrus.WithFields(logrus.Fields{
		"pairs":   total,
		"workers": workerCount,
	}).Debug("batch worker pool configured")

	taskCh := make(chan int, workerCount*4)

	var (
		progressMu sync.Mutex
		processed  int
	)

	var workerWG sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for idx := range taskCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results[idx] = p.ProcessPair(ctx, pairs[idx])

				progressMu.Lock()
				processed++
				if onProgress != nil {
					onProgress(processed, total)
				}
				progressMu.Unlock()
			}
		}()
	}

	for idx := range pairs {
		select {
		case <-ctx.Done():
		case taskCh <- idx:
		}
	}
	close(taskCh)
	workerWG.Wait()

	dist := RiskDistribution(results)
	llmAnalyzed := 0
	for _, r := range results {
		if len(r.LLMInsights) > 0 {
			llmAnalyzed++
		}
	}

	summary := BatchSummary{
		Total:             len(results),
		NoActionNeeded:    dist["no_action_needed"],
		ReviewRecommended: dist["review_recommended"],
		ActionRequired:    dist["action_required"],
		UrgentReview:      dist["urgent_review"],
		LLMAnalyzed:       llmAnalyzed,
		ProcessingTimeMs:  math.Round(timer.ElapsedMsExact()*10) / 10,
	}
	return results, summary
}

func determineWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 12 {
		workers = 12
	}
	return workers
}
