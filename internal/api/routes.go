package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"renewal-review/backend/internal/analytics"
	"renewal-review/backend/internal/llm"
	"renewal-review/backend/internal/loader"
	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/portfolio"
	"renewal-review/backend/internal/quote"
	"renewal-review/backend/internal/review"
	"renewal-review/backend/internal/store"
)

// adhocJobID tags reviews produced outside a batch run.
const adhocJobID = "adhoc"

// Config defines server dependencies.
type Config struct {
	DBPath         string
	DataPath       string
	AllowedOrigins []string
	SilentDB       bool
	Client         llm.Client
	UseDBSource    bool
}

// Server wires HTTP handlers with persistence and the review pipeline.
type Server struct {
	db             *store.Database
	source         loader.DataSource
	processor      *review.Processor
	client         llm.Client
	quoteConfig    quote.Config
	portfolioT     portfolio.Thresholds
	allowedOrigins []string
	notifier       *BatchNotifier

	jobMu     sync.Mutex
	activeJob *batchJob
	jobs      map[string]*jobState

	summaryMu   sync.Mutex
	lastSummary *review.BatchSummary
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	var source loader.DataSource
	if cfg.UseDBSource {
		source = loader.NewDBSource(db)
		logrus.Info("renewal dataset backed by database")
	} else {
		source = loader.NewFileSource(cfg.DataPath)
		logrus.WithField("path", cfg.DataPath).Info("renewal dataset backed by file")
	}

	if cfg.Client != nil && cfg.Client.Enabled() {
		logrus.Info("LLM enrichment enabled")
	} else {
		logrus.Info("LLM enrichment disabled - rule-based review only")
	}

	return &Server{
		db:             db,
		source:         source,
		processor:      review.NewProcessor(cfg.Client),
		client:         cfg.Client,
		quoteConfig:    quote.DefaultConfig(),
		portfolioT:     portfolio.DefaultThresholds(),
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewBatchNotifier(),
		jobs:           make(map[string]*jobState),
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/reviews/compare", s.handleCompare)
		api.GET("/reviews/:policyNumber", s.handleGetReview)
		api.PATCH("/reviews/:policyNumber/broker-contacted", s.handleToggleBrokerContacted)
		api.PATCH("/reviews/:policyNumber/quote-generated", s.handleToggleQuoteGenerated)
		api.PATCH("/reviews/:policyNumber/reviewed-at", s.handleMarkReviewed)

		api.GET("/batch/total-count", s.handleTotalCount)
		api.POST("/batch/run", s.handleBatchRun)
		api.POST("/batch/review-selected", s.handleReviewSelected)
		api.GET("/batch/status/:jobID", s.handleJobStatus)
		api.GET("/batch/summary", s.handleLastSummary)
		api.GET("/batch/stream", s.handleBatchStream)
		api.DELETE("/batch/:jobID", s.handleCancelBatch)

		api.POST("/quotes/generate", s.handleGenerateQuotes)
		api.POST("/portfolio/analyze", s.handleAnalyzePortfolio)

		api.GET("/analytics/history", s.handleAnalyticsHistory)
		api.GET("/analytics/trends", s.handleAnalyticsTrends)
		api.GET("/analytics/broker-metrics", s.handleBrokerMetrics)

		api.GET("/results", s.handleResults)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	total, err := s.source.TotalCount()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_pairs": total,
		"llm_enabled": s.client != nil && s.client.Enabled(),
	})
}

func (s *Server) handleCompare(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	pair, err := policy.ParsePair(data)
	if err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, fmt.Errorf("Invalid renewal pair: %v", err))
		return
	}

	result := s.processor.ProcessPair(c.Request.Context(), pair)
	if err := s.db.SaveReview(adhocJobID, result); err != nil {
		logrus.WithError(err).WithField("policy", result.PolicyNumber).Warn("save review")
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetReview(c *gin.Context) {
	policyNumber := strings.TrimSpace(c.Param("policyNumber"))
	result, err := s.db.GetReview(policyNumber)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("No review found for %s", policyNumber))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	if pair, ok, err := s.source.FindPair(policyNumber); err == nil && ok {
		result.Pair = &pair
	}

	// enrich lazily on first detail view so batch runs stay cheap
	if !result.LLMSummaryGenerated && len(result.Diff.Flags) > 0 {
		before := result.LLMSummaryGenerated
		s.processor.Enrich(c.Request.Context(), &result)
		if result.LLMSummaryGenerated != before {
			if err := s.db.SaveReview(adhocJobID, result); err != nil {
				logrus.WithError(err).WithField("policy", policyNumber).Warn("save enriched review")
			}
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleToggleBrokerContacted(c *gin.Context) {
	policyNumber := strings.TrimSpace(c.Param("policyNumber"))
	result, err := s.db.GetReview(policyNumber)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("No review found for %s", policyNumber))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	value := !result.BrokerContacted
	if err := s.db.UpdateBrokerContacted(policyNumber, value); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"broker_contacted": value})
}

func (s *Server) handleToggleQuoteGenerated(c *gin.Context) {
	policyNumber := strings.TrimSpace(c.Param("policyNumber"))
	result, err := s.db.GetReview(policyNumber)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("No review found for %s", policyNumber))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	value := !result.QuoteGenerated
	if err := s.db.UpdateQuoteGenerated(policyNumber, value); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote_generated": value})
}

func (s *Server) handleMarkReviewed(c *gin.Context) {
	policyNumber := strings.TrimSpace(c.Param("policyNumber"))
	now := time.Now()
	err := s.db.UpdateReviewedAt(policyNumber, now)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("No review found for %s", policyNumber))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewed_at": now.Format(time.RFC3339)})
}

func (s *Server) handleGenerateQuotes(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	pair, err := policy.ParsePair(data)
	if err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, fmt.Errorf("Invalid renewal pair: %v", err))
		return
	}

	result := s.processor.ProcessPair(c.Request.Context(), pair)
	if len(result.Diff.Flags) == 0 {
		c.JSON(http.StatusOK, []quote.Recommendation{})
		return
	}

	quotes := quote.Generate(pair, result.Diff, s.quoteConfig)
	if s.client != nil && s.client.Enabled() && len(quotes) > 0 {
		quotes = quote.Personalize(c.Request.Context(), s.client, quotes, pair)
	}
	c.JSON(http.StatusOK, quotes)
}

func (s *Server) handleAnalyzePortfolio(c *gin.Context) {
	var req PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.PolicyNumbers) < 2 {
		s.renderError(c, http.StatusUnprocessableEntity, errors.New("Portfolio analysis requires at least 2 policies"))
		return
	}

	lookup := func(policyNumber string) (review.ReviewResult, bool) {
		result, err := s.db.GetReview(policyNumber)
		if err != nil {
			return review.ReviewResult{}, false
		}
		if pair, ok, err := s.source.FindPair(policyNumber); err == nil && ok {
			result.Pair = &pair
		}
		return result, true
	}

	summary, err := portfolio.Analyze(req.PolicyNumbers, lookup, s.portfolioT)
	if err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleAnalyticsHistory(c *gin.Context) {
	records, err := s.db.ListBatchRuns()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []analytics.BatchRunRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleAnalyticsTrends(c *gin.Context) {
	records, err := s.db.ListBatchRuns()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeTrends(records))
}

func (s *Server) handleBrokerMetrics(c *gin.Context) {
	results, _, err := s.db.ListReviews(store.ReviewQuery{})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	total, err := s.source.TotalCount()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeBrokerMetrics(results, total))
}

func (s *Server) handleResults(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}

	results, total, err := s.db.ListReviews(store.ReviewQuery{
		RiskLevel:   strings.TrimSpace(c.Query("riskLevel")),
		FlaggedOnly: c.Query("flagged") == "true",
		Sort:        strings.TrimSpace(c.Query("sort")),
		Offset:      page * pageSize,
		Limit:       pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []review.ReviewResult{}
	}
	c.JSON(http.StatusOK, ResultsResponse{Items: results, Total: total})
}

func (s *Server) handleBatchStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("batch websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("batch websocket closed")
			} else {
				logrus.WithError(err).Warn("batch websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
