package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"renewal-review/backend/internal/analytics"
	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/review"
)

// ErrNotFound is returned when a lookup or update targets a policy that has
// no stored row.
var ErrNotFound = errors.New("record not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&PairRecord{}, &ReviewRecord{}, &BatchRun{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_review_records_risk_created ON review_records(risk_level, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_pair_records_type_state ON pair_records(policy_type, state)",
		"CREATE INDEX IF NOT EXISTS idx_batch_runs_created_at ON batch_runs(created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpsertPair inserts or refreshes the stored renewal pair.
func (d *Database) UpsertPair(pair policy.RenewalPair) error {
	record, err := NewPairRecord(pair)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "policy_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"policy_type", "carrier", "premium_prior", "premium_renewal", "state", "prior_json", "renewal_json", "updated_at"}),
	}).Create(record).Error
}

// ReplacePairs swaps the stored dataset with the provided pairs.
func (d *Database) ReplacePairs(pairs []policy.RenewalPair) error {
	records := make([]PairRecord, 0, len(pairs))
	for _, pair := range pairs {
		record, err := NewPairRecord(pair)
		if err != nil {
			return err
		}
		records = append(records, *record)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PairRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 250).Error
	})
}

// GetPair loads the renewal pair for a policy number.
func (d *Database) GetPair(policyNumber string) (policy.RenewalPair, error) {
	var record PairRecord
	err := d.gorm.Where("policy_number = ?", policyNumber).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return policy.RenewalPair{}, ErrNotFound
	}
	if err != nil {
		return policy.RenewalPair{}, err
	}
	return record.Pair()
}

// ListPairs returns a page of stored pairs ordered by policy number.
func (d *Database) ListPairs(offset, limit int) ([]policy.RenewalPair, int64, error) {
	var total int64
	if err := d.gorm.Model(&PairRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := d.gorm.Model(&PairRecord{}).Order("policy_number ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	var records []PairRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	pairs := make([]policy.RenewalPair, 0, len(records))
	for i := range records {
		pair, err := records[i].Pair()
		if err != nil {
			return nil, 0, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, total, nil
}

// CountPairs returns the number of stored renewal pairs.
func (d *Database) CountPairs() (int64, error) {
	var count int64
	if err := d.gorm.Model(&PairRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveReview upserts the review output for a policy. Broker workflow columns
// (broker_contacted, quote_generated, reviewed_at) are left untouched on
// conflict so re-running a batch never resets workflow state.
func (d *Database) SaveReview(jobID string, result review.ReviewResult) error {
	record, err := NewReviewRecord(jobID, result)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "policy_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"job_id", "risk_level", "flags_json", "changes_json", "insights_json", "summary_text", "llm_summary_generated", "updated_at"}),
	}).Create(record).Error
}

// GetReview loads the stored review for a policy number.
func (d *Database) GetReview(policyNumber string) (review.ReviewResult, error) {
	var record ReviewRecord
	err := d.gorm.Where("policy_number = ?", policyNumber).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return review.ReviewResult{}, ErrNotFound
	}
	if err != nil {
		return review.ReviewResult{}, err
	}
	return record.Result()
}

// ReviewQuery encapsulates filters and pagination for listing reviews.
type ReviewQuery struct {
	RiskLevel   string
	FlaggedOnly bool
	Sort        string
	Offset      int
	Limit       int
}

// ListReviews returns paginated review results applying optional filters.
func (d *Database) ListReviews(opts ReviewQuery) ([]review.ReviewResult, int64, error) {
	base := d.gorm.Model(&ReviewRecord{})
	if level := strings.TrimSpace(opts.RiskLevel); level != "" {
		base = base.Where("risk_level = ?", strings.ToLower(level))
	}
	if opts.FlaggedOnly {
		base = base.Where("flags_json IS NOT NULL AND flags_json NOT IN ('', 'null', '[]')")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var records []ReviewRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}

	results := make([]review.ReviewResult, 0, len(records))
	for i := range records {
		result, err := records[i].Result()
		if err != nil {
			return nil, 0, err
		}
		results = append(results, result)
	}
	return results, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "policy_asc":
		return "review_records.policy_number ASC"
	case "policy_desc":
		return "review_records.policy_number DESC"
	case "updated_desc":
		return "review_records.updated_at DESC"
	default:
		return "review_records.policy_number ASC"
	}
}

// RiskCounts returns the count of stored reviews per risk level.
func (d *Database) RiskCounts() (map[string]int, error) {
	type row struct {
		RiskLevel string
		Count     int
	}
	var rows []row
	err := d.gorm.Model(&ReviewRecord{}).
		Select("risk_level, COUNT(*) AS count").
		Group("risk_level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.RiskLevel] = r.Count
	}
	return counts, nil
}

func (d *Database) updateReviewField(policyNumber string, updates map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := d.gorm.Model(&ReviewRecord{}).
		Where("policy_number = ?", policyNumber).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBrokerContacted flips the broker-contacted workflow flag.
func (d *Database) UpdateBrokerContacted(policyNumber string, value bool) error {
	return d.updateReviewField(policyNumber, map[string]any{"broker_contacted": value})
}

// UpdateQuoteGenerated flips the quote-generated workflow flag.
func (d *Database) UpdateQuoteGenerated(policyNumber string, value bool) error {
	return d.updateReviewField(policyNumber, map[string]any{"quote_generated": value})
}

// UpdateReviewedAt marks a review as worked by a broker.
func (d *Database) UpdateReviewedAt(policyNumber string, value time.Time) error {
	return d.updateReviewField(policyNumber, map[string]any{"reviewed_at": &value})
}

// SaveBatchRun records the aggregate outcome of a batch run.
func (d *Database) SaveBatchRun(record analytics.BatchRunRecord) error {
	run := BatchRun{
		JobID:             record.JobID,
		Total:             record.Total,
		NoActionNeeded:    record.NoActionNeeded,
		ReviewRecommended: record.ReviewRecommended,
		ActionRequired:    record.ActionRequired,
		UrgentReview:      record.UrgentReview,
		ProcessingTimeMs:  record.ProcessingTimeMs,
		CreatedAt:         record.CreatedAt,
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total", "no_action_needed", "review_recommended", "action_required", "urgent_review", "processing_time_ms"}),
	}).Create(&run).Error
}

// ListBatchRuns returns batch run history ordered by creation time.
func (d *Database) ListBatchRuns() ([]analytics.BatchRunRecord, error) {
	var runs []BatchRun
	if err := d.gorm.Model(&BatchRun{}).Order("created_at ASC").Find(&runs).Error; err != nil {
		return nil, err
	}
	records := make([]analytics.BatchRunRecord, 0, len(runs))
	for _, run := range runs {
		records = append(records, analytics.BatchRunRecord{
			JobID:             run.JobID,
			Total:             run.Total,
			NoActionNeeded:    run.NoActionNeeded,
			ReviewRecommended: run.ReviewRecommended,
			ActionRequired:    run.ActionRequired,
			UrgentReview:      run.UrgentReview,
			ProcessingTimeMs:  run.ProcessingTimeMs,
			CreatedAt:         run.CreatedAt,
		})
	}
	return records, nil
}
