package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	AI        AIConfig         `json:"ai"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Quality   QualityConfig    `json:"quality"`
	Budget    BudgetConfig     `json:"budget"`
	Jobs      JobsConfig       `json:"jobs"`
	CORSAllow []string         `json:"cors_allow"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIProviderConfig struct {
	Provider      string      `json:"provider"`
	GenerateModel string      `json:"generate_model"`
	EmbedModel    string      `json:"embed_model"`
	Data          interface{} `json:"data"`
}

type AIConfig struct {
	Providers           []AIProviderConfig `json:"providers"`
	TimeoutSeconds      int                `json:"timeout_seconds"`
	RetryAttempts       int                `json:"retry_attempts"`
	EmbedCacheSize      int                `json:"embed_cache_size"`
	EmbedCacheTTLMinute int                `json:"embed_cache_ttl_minute"`
}

type RetrievalConfig struct {
	TopKPerCorpus       int     `json:"top_k_per_corpus"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	TimeoutSeconds      int     `json:"timeout_seconds"`
}

// QualityConfig carries the context-quality coefficients. They are tunable
// deployment knobs, not constants; the contract is monotonicity plus
// compliance being mandatory, which holds for any non-negative values.
type QualityConfig struct {
	MarketingWeight      float64 `json:"marketing_weight"`
	ComplianceWeight     float64 `json:"compliance_weight"`
	VectorBonus          float64 `json:"vector_bonus"`
	SufficiencyThreshold float64 `json:"sufficiency_threshold"`
}

type BudgetConfig struct {
	TotalTokens          int    `json:"total_tokens"`
	ReservedOutputTokens int    `json:"reserved_output_tokens"`
	ComplianceWeight     int    `json:"compliance_weight"`
	HistoryWeight        int    `json:"history_weight"`
	DocumentWeight       int    `json:"document_weight"`
	TokenizerEncoding    string `json:"tokenizer_encoding"`
}

type JobsConfig struct {
	EmbeddingSyncSpec  string `json:"embedding_sync_spec"`
	EmbeddingSyncBatch int    `json:"embedding_sync_batch"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if len(cfg.AI.Providers) == 0 {
		return nil, fmt.Errorf("at least one ai provider is required")
	}
	for i, p := range cfg.AI.Providers {
		if p.Provider == "" {
			return nil, fmt.Errorf("ai.providers[%d].provider is required", i)
		}
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.AI.RetryAttempts < 0 {
		cfg.AI.RetryAttempts = 0
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 10000
	}
	if cfg.AI.EmbedCacheTTLMinute == 0 {
		cfg.AI.EmbedCacheTTLMinute = 120
	}
	if cfg.Retrieval.TopKPerCorpus <= 0 {
		cfg.Retrieval.TopKPerCorpus = 5
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		// Recall-biased on purpose; the quality assessor filters precision.
		cfg.Retrieval.SimilarityThreshold = 0.1
	}
	if cfg.Retrieval.TimeoutSeconds <= 0 {
		cfg.Retrieval.TimeoutSeconds = 15
	}
	if cfg.Quality.MarketingWeight == 0 {
		cfg.Quality.MarketingWeight = 0.15
	}
	if cfg.Quality.ComplianceWeight == 0 {
		cfg.Quality.ComplianceWeight = 0.25
	}
	if cfg.Quality.VectorBonus == 0 {
		cfg.Quality.VectorBonus = 0.3
	}
	if cfg.Quality.SufficiencyThreshold == 0 {
		cfg.Quality.SufficiencyThreshold = 0.6
	}
	if cfg.Budget.TotalTokens <= 0 {
		cfg.Budget.TotalTokens = 8192
	}
	if cfg.Budget.ReservedOutputTokens <= 0 {
		cfg.Budget.ReservedOutputTokens = 1024
	}
	if cfg.Budget.ReservedOutputTokens >= cfg.Budget.TotalTokens {
		return nil, fmt.Errorf("budget.reserved_output_tokens must be below budget.total_tokens")
	}
	if cfg.Budget.ComplianceWeight <= 0 {
		cfg.Budget.ComplianceWeight = 3
	}
	if cfg.Budget.HistoryWeight <= 0 {
		cfg.Budget.HistoryWeight = 2
	}
	if cfg.Budget.DocumentWeight <= 0 {
		cfg.Budget.DocumentWeight = 1
	}
	if cfg.Jobs.EmbeddingSyncSpec == "" {
		cfg.Jobs.EmbeddingSyncSpec = "*/5 * * * *"
	}
	if cfg.Jobs.EmbeddingSyncBatch <= 0 {
		cfg.Jobs.EmbeddingSyncBatch = 50
	}
	return &cfg, nil
}
