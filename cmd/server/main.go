package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"renewal-review/backend/internal/api"
	"renewal-review/backend/internal/llm"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}

func buildLLMClient() llm.Client {
	if !envBool("RR_LLM_ENABLED") {
		return nil
	}

	provider := strings.ToLower(envOr("RR_LLM_PROVIDER", "openai"))
	if provider == "mock" {
		logrus.Info("using mock LLM client")
		return llm.NewMock()
	}

	openaiClient, openaiErr := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("RR_OPENAI_MODEL"),
		BaseURL: os.Getenv("RR_OPENAI_BASE_URL"),
	})
	if openaiErr != nil && !errors.Is(openaiErr, llm.ErrDisabled) {
		logrus.Fatalf("openai client: %v", openaiErr)
	}
	anthropicClient, anthropicErr := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		Model:   os.Getenv("RR_ANTHROPIC_MODEL"),
		BaseURL: os.Getenv("RR_ANTHROPIC_BASE_URL"),
	})
	if anthropicErr != nil && !errors.Is(anthropicErr, llm.ErrDisabled) {
		logrus.Fatalf("anthropic client: %v", anthropicErr)
	}

	var primary, fallback llm.Client
	switch provider {
	case "anthropic":
		if anthropicErr == nil {
			primary = anthropicClient
		}
		if openaiErr == nil {
			fallback = openaiClient
		}
	default:
		if openaiErr == nil {
			primary = openaiClient
		}
		if anthropicErr == nil {
			fallback = anthropicClient
		}
	}

	if primary == nil && fallback == nil {
		logrus.Warn("LLM enabled but no provider credentials configured")
		return nil
	}
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		logrus.WithField("provider", provider).Info("LLM client configured")
		return primary
	}
	logrus.WithField("provider", provider).Info("LLM client configured with fallback")
	return llm.WithFallback(primary, fallback)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	var allowedOrigins []string
	if origins := strings.TrimSpace(os.Getenv("RR_ALLOWED_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	cfg := api.Config{
		DBPath:         envOr("RR_DB_PATH", filepath.Join(dataDir, "renewal-review.db")),
		DataPath:       envOr("RR_DATA_PATH", filepath.Join(dataDir, "renewals.json")),
		AllowedOrigins: allowedOrigins,
		Client:         buildLLMClient(),
		UseDBSource:    envBool("RR_USE_DB_SOURCE"),
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := envOr("PORT", "8000")
	logrus.Infof("starting renewal-review backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
