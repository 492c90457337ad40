package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"renewal-review/backend/internal/analytics"
	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/review"
)

const batchProgressThrottle = 500 * time.Millisecond

// batchJob tracks the state of a running batch review.
type batchJob struct {
	id        string
	cancel    context.CancelFunc
	startedAt time.Time
	total     int
}

type jobState struct {
	Status    string
	Processed int
	Total     int
	Summary   *review.BatchSummary
	Error     string
}

func (s *Server) setJob(jobID string, state jobState) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	s.jobs[jobID] = &state
}

func (s *Server) updateJob(jobID string, fn func(*jobState)) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if state, ok := s.jobs[jobID]; ok {
		fn(state)
	}
}

func (s *Server) jobSnapshot(jobID string) (jobState, bool) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	state, ok := s.jobs[jobID]
	if !ok {
		return jobState{}, false
	}
	return *state, true
}

func (s *Server) setLastSummary(summary review.BatchSummary) {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	s.lastSummary = &summary
}

func (s *Server) handleTotalCount(c *gin.Context) {
	total, err := s.source.TotalCount()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (s *Server) handleBatchRun(c *gin.Context) {
	sample := 0
	if raw := strings.TrimSpace(c.Query("sample")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid sample: %s", raw))
			return
		}
		sample = parsed
	}

	pairs, err := s.source.LoadPairs(sample)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if len(pairs) == 0 {
		s.renderError(c, http.StatusNotFound, errors.New("No data found. Seed the dataset first."))
		return
	}

	s.startBatchJob(c, pairs)
}

func (s *Server) handleReviewSelected(c *gin.Context) {
	var req ReviewSelectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	all, err := s.source.LoadPairs(0)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	target := make(map[string]struct{}, len(req.PolicyNumbers))
	for _, pn := range req.PolicyNumbers {
		target[pn] = struct{}{}
	}
	var pairs []policy.RenewalPair
	for _, pair := range all {
		if _, ok := target[pair.Prior.PolicyNumber]; ok {
			pairs = append(pairs, pair)
		}
	}
	if len(pairs) == 0 {
		s.renderError(c, http.StatusNotFound, errors.New("No matching policies found."))
		return
	}

	s.startBatchJob(c, pairs)
}

func (s *Server) startBatchJob(c *gin.Context, pairs []policy.RenewalPair) {
	s.jobMu.Lock()
	if s.activeJob != nil {
		s.jobMu.Unlock()
		s.renderError(c, http.StatusConflict, errors.New("batch review already running"))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &batchJob{
		id:        uuid.NewString()[:8],
		cancel:    cancel,
		startedAt: time.Now().UTC(),
		total:     len(pairs),
	}
	s.activeJob = job
	s.jobs[job.id] = &jobState{Status: "running", Total: len(pairs)}
	s.jobMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"job":   job.id,
		"pairs": len(pairs),
	}).Info("batch review started")

	go s.runBatch(ctx, job, pairs)

	c.JSON(http.StatusAccepted, BatchStartResponse{
		JobID:     job.id,
		Status:    "running",
		Total:     len(pairs),
		StartedAt: job.startedAt,
	})
}

func (s *Server) runBatch(ctx context.Context, job *batchJob, pairs []policy.RenewalPair) {
	defer func() {
		s.jobMu.Lock()
		if s.activeJob == job {
			s.activeJob = nil
		}
		s.jobMu.Unlock()
	}()

	s.notifier.Broadcast(BatchEvent{
		Type:    "started",
		JobID:   job.id,
		Total:   job.total,
		Message: "batch review started",
	})

	var lastEmit time.Time
	onProgress := func(processed, total int) {
		s.updateJob(job.id, func(state *jobState) {
			state.Processed = processed
		})
		if processed != total && !lastEmit.IsZero() && time.Since(lastEmit) < batchProgressThrottle {
			return
		}
		lastEmit = time.Now()
		s.notifier.Broadcast(BatchEvent{
			Type:      "progress",
			JobID:     job.id,
			Total:     total,
			Processed: processed,
		})
	}

	results, summary := s.processor.ProcessBatch(ctx, pairs, onProgress)

	if ctx.Err() != nil {
		s.updateJob(job.id, func(state *jobState) {
			state.Status = "failed"
			state.Error = "cancelled"
		})
		s.notifier.Broadcast(BatchEvent{
			Type:    "error",
			JobID:   job.id,
			Message: "batch review cancelled",
		})
		logrus.WithField("job", job.id).Info("batch review cancelled")
		return
	}

	now := time.Now()
	for i := range results {
		results[i].ReviewedAt = &now
		if err := s.db.SaveReview(job.id, results[i]); err != nil {
			logrus.WithError(err).WithField("policy", results[i].PolicyNumber).Warn("save review")
		}
	}

	record := analytics.BatchRunRecord{
		JobID:             job.id,
		Total:             summary.Total,
		NoActionNeeded:    summary.NoActionNeeded,
		ReviewRecommended: summary.ReviewRecommended,
		ActionRequired:    summary.ActionRequired,
		UrgentReview:      summary.UrgentReview,
		ProcessingTimeMs:  summary.ProcessingTimeMs,
		CreatedAt:         now,
	}
	if err := s.db.SaveBatchRun(record); err != nil {
		logrus.WithError(err).WithField("job", job.id).Warn("save batch run")
	}

	s.setLastSummary(summary)
	s.updateJob(job.id, func(state *jobState) {
		state.Status = "completed"
		state.Processed = summary.Total
		state.Summary = &summary
	})

	s.notifier.Broadcast(BatchEvent{
		Type:      "completed",
		JobID:     job.id,
		Total:     summary.Total,
		Processed: summary.Total,
		Summary:   &summary,
	})
	logrus.WithFields(logrus.Fields{
		"job":                job.id,
		"total":              summary.Total,
		"urgent_review":      summary.UrgentReview,
		"processing_time_ms": summary.ProcessingTimeMs,
	}).Info("batch review completed")
}

func (s *Server) handleJobStatus(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobID"))
	state, ok := s.jobSnapshot(jobID)
	if !ok {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("Job %s not found", jobID))
		return
	}
	resp := JobStatusResponse{
		JobID:     jobID,
		Status:    state.Status,
		Processed: state.Processed,
		Total:     state.Total,
		Summary:   state.Summary,
		Error:     state.Error,
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLastSummary(c *gin.Context) {
	s.summaryMu.Lock()
	summary := s.lastSummary
	s.summaryMu.Unlock()
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCancelBatch(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobID"))
	if jobID == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("job id required"))
		return
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob == nil || s.activeJob.id != jobID {
		s.renderError(c, http.StatusNotFound, errors.New("no matching batch review running"))
		return
	}

	s.activeJob.cancel()
	logrus.WithField("job", jobID).Info("batch review cancellation requested")
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}
