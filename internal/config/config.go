package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Port        int             `json:"port"`
	JWTSecret   string          `json:"jwt_secret"`
	CORSOrigins []string        `json:"cors_origins"`
	Log         LogConfig       `json:"log"`
	Database    DatabaseConfig  `json:"database"`
	Content     ContentConfig   `json:"content_store"`
	AI          AIConfig        `json:"ai"`
	Chunking    ChunkingConfig  `json:"chunking"`
	Retrieval   RetrievalConfig `json:"retrieval"`
	Generation  GenConfig       `json:"generation"`
	Timeouts    TimeoutConfig   `json:"timeouts"`
	EmbedCache  CacheConfig     `json:"embed_cache"`
	Schedules   ScheduleConfig  `json:"schedules"`
}

type LogConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type ContentConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Providers  []ProviderConfig `json:"providers"`
	EmbedModel string           `json:"embed_model"`
	GenModel   string           `json:"gen_model"`
}

type ChunkingConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type RetrievalConfig struct {
	DefaultK     int     `json:"default_k"`
	MaxK         int     `json:"max_k"`
	MinRelevance float32 `json:"min_relevance"`
	Margin       float32 `json:"margin"`
}

type GenConfig struct {
	MaxConcurrent int `json:"max_concurrent"`
	MaxQueue      int `json:"max_queue"`
}

type TimeoutConfig struct {
	EmbeddingMs  int `json:"embedding_ms"`
	SearchMs     int `json:"search_ms"`
	GenerationMs int `json:"generation_ms"`
}

type CacheConfig struct {
	LRUSize       int `json:"lru_size"`
	LRUTTLMinutes int `json:"lru_ttl_minutes"`
	DBKeepDays    int `json:"db_keep_days"`
}

type ScheduleConfig struct {
	ContentSync    string `json:"content_sync"`
	SessionCleanup string `json:"session_cleanup"`
	CacheCleanup   string `json:"cache_cleanup"`
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
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if len(cfg.AI.Providers) == 0 {
		return nil, fmt.Errorf("ai.providers is required")
	}
	if cfg.AI.EmbedModel == "" || cfg.AI.GenModel == "" {
		return nil, fmt.Errorf("ai.embed_model and ai.gen_model are required")
	}
	if cfg.Content.Type == "" {
		cfg.Content.Type = "dir"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	applyDefaults(&cfg)
	if cfg.Chunking.ChunkOverlap >= cfg.Chunking.ChunkSize {
		return nil, fmt.Errorf("chunking.chunk_overlap must be smaller than chunk_size")
	}
	if cfg.Retrieval.DefaultK > cfg.Retrieval.MaxK {
		return nil, fmt.Errorf("retrieval.default_k must not exceed max_k")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 320
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 48
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 5
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 16
	}
	if cfg.Retrieval.MinRelevance == 0 {
		cfg.Retrieval.MinRelevance = 0.55
	}
	if cfg.Generation.MaxConcurrent == 0 {
		cfg.Generation.MaxConcurrent = 4
	}
	if cfg.Generation.MaxQueue == 0 {
		cfg.Generation.MaxQueue = 32
	}
	if cfg.Timeouts.EmbeddingMs == 0 {
		cfg.Timeouts.EmbeddingMs = 10000
	}
	if cfg.Timeouts.SearchMs == 0 {
		cfg.Timeouts.SearchMs = 5000
	}
	if cfg.Timeouts.GenerationMs == 0 {
		cfg.Timeouts.GenerationMs = 30000
	}
	if cfg.EmbedCache.LRUSize == 0 {
		cfg.EmbedCache.LRUSize = 4096
	}
	if cfg.EmbedCache.LRUTTLMinutes == 0 {
		cfg.EmbedCache.LRUTTLMinutes = 120
	}
	if cfg.EmbedCache.DBKeepDays == 0 {
		cfg.EmbedCache.DBKeepDays = 30
	}
	if cfg.Schedules.ContentSync == "" {
		cfg.Schedules.ContentSync = "*/30 * * * *"
	}
	if cfg.Schedules.SessionCleanup == "" {
		cfg.Schedules.SessionCleanup = "0 * * * *"
	}
	if cfg.Schedules.CacheCleanup == "" {
		cfg.Schedules.CacheCleanup = "30 3 * * *"
	}
}
