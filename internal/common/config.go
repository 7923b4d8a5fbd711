package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/joseph-ayodele/fan-ledger/constants"
)

// Config holds all application configuration
type Config struct {
	Store      StoreConfig      `toml:"store"`
	Server     ServerConfig     `toml:"server"`
	OCR        OCRConfig        `toml:"ocr"`
	Extraction ExtractionConfig `toml:"extraction"`
	Matching   MatchingConfig   `toml:"matching"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Logging    LoggingConfig    `toml:"logging"`
}

// StoreConfig selects and configures the sheet store backing the roster and ledger.
type StoreConfig struct {
	Backend          string `toml:"backend"` // "xlsx" | "sqlite" | "postgres"
	Path             string `toml:"path"`    // workbook path or sqlite file (":memory:" allowed)
	DSN              string `toml:"dsn"`     // postgres DSN
	MaxConns         int32  `toml:"max_conns"`
	MinConns         int32  `toml:"min_conns"`
	MaxConnLifetime  int    `toml:"max_conn_lifetime"` // seconds
	MaxConnIdleTime  int    `toml:"max_conn_idle_time"`
	DialTimeout      int    `toml:"dial_timeout"`
	StatementTimeout int    `toml:"statement_timeout"`
	LockTimeout      int    `toml:"lock_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr     string `toml:"grpc_addr"`
	HTTPAddr     string `toml:"http_addr"`
	SummaryTTL   int    `toml:"summary_ttl"` // seconds
	SessionLimit int    `toml:"session_limit"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Provider         string  `toml:"provider"` // "vision" | "tesseract"
	VisionEndpoint   string  `toml:"vision_endpoint"`
	VisionAPIKey     string  `toml:"vision_api_key"`
	VisionToken      string  `toml:"vision_token"`
	Tesseract        string  `toml:"tesseract"`
	TesseractLang    string  `toml:"tesseract_lang"`
	TessdataDir      string  `toml:"tessdata_dir"`
	HeicConverter    string  `toml:"heic_converter"`
	ArtifactCacheDir string  `toml:"artifact_cache_dir"`
	Workers          int     `toml:"workers"`
	Timeout          int     `toml:"timeout"` // seconds
	UpscaleBelow     int     `toml:"upscale_below"`
	PreviewFrom      float64 `toml:"preview_from"`
}

// ExtractionConfig holds the positional constants of anchor detection and clustering.
type ExtractionConfig struct {
	MinDigits      int     `toml:"min_digits"`
	OverflowLimit  int64   `toml:"overflow_limit"`
	AnchorBand     int     `toml:"anchor_band"`
	FragmentWindow int     `toml:"fragment_window"`
	EdgeMargin     float64 `toml:"edge_margin"`
}

// MatchingConfig holds the two fuzzy-match acceptance thresholds and the scorer they apply to.
type MatchingConfig struct {
	Scorer          string `toml:"scorer"` // "wratio" | "levenshtein"
	RosterThreshold int    `toml:"roster_threshold"`
	LedgerThreshold int    `toml:"ledger_threshold"`
}

// LedgerConfig holds tab names and date/rollup policy.
type LedgerConfig struct {
	UTCOffsetHours int      `toml:"utc_offset_hours"`
	WeeklyDays     []string `toml:"weekly_days"`
	TargetGrowth   int64    `toml:"target_growth"`
	SummaryTab     string   `toml:"summary_tab"`
	DailyTab       string   `toml:"daily_tab"`
	WeeklyTab      string   `toml:"weekly_tab"`
	MonthlyTab     string   `toml:"monthly_tab"`
	RosterTab      string   `toml:"roster_tab"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Format string `toml:"format"` // "text" | "json"
	Level  string `toml:"level"`
}

// Default returns the configuration with every built-in default applied.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:         "xlsx",
			Path:            "./ledger.xlsx",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 1800,
			MaxConnIdleTime: 300,
			DialTimeout:     3,
			LockTimeout:     30,
		},
		Server: ServerConfig{
			GRPCAddr:     ":8080",
			HTTPAddr:     ":8081",
			SummaryTTL:   600,
			SessionLimit: 64,
		},
		OCR: OCRConfig{
			Provider:         "vision",
			VisionEndpoint:   "https://vision.googleapis.com/v1/images:annotate",
			Tesseract:        "tesseract",
			TesseractLang:    "kor+eng",
			HeicConverter:    "magick",
			ArtifactCacheDir: "./tmp",
			Workers:          1,
			Timeout:          45,
			UpscaleBelow:     2000,
			PreviewFrom:      0.4,
		},
		Extraction: ExtractionConfig{
			MinDigits:      4,
			OverflowLimit:  10_000_000_000,
			AnchorBand:     30,
			FragmentWindow: 100,
			EdgeMargin:     0.02,
		},
		Matching: MatchingConfig{
			Scorer:          "wratio",
			RosterThreshold: 50,
			LedgerThreshold: 80,
		},
		Ledger: LedgerConfig{
			UTCOffsetHours: 9,
			WeeklyDays:     []string{"01", "08", "15", "22", "29"},
			TargetGrowth:   10_000_000,
			SummaryTab:     constants.TabMainSummary,
			DailyTab:       constants.TabDailyRaw,
			WeeklyTab:      constants.TabWeekly,
			MonthlyTab:     constants.TabMonthly,
			RosterTab:      constants.TabDailyRaw,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// LoadConfig loads defaults, then the optional TOML file at path, then environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, NewAppError(CodeConfig, "read config file", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, NewAppError(CodeConfig, fmt.Sprintf("parse %s", path), err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Store.Backend = getEnv("LEDGER_BACKEND", c.Store.Backend)
	c.Store.Path = getEnv("LEDGER_PATH", c.Store.Path)
	c.Store.DSN = getEnv("DB_URL", c.Store.DSN)
	c.Store.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Store.MaxConns)
	c.Store.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Store.MinConns)
	c.Store.MaxConnLifetime = getEnvAsSeconds("DB_MAX_CONN_LIFETIME", c.Store.MaxConnLifetime)
	c.Store.MaxConnIdleTime = getEnvAsSeconds("DB_MAX_CONN_IDLE_TIME", c.Store.MaxConnIdleTime)
	c.Store.DialTimeout = getEnvAsSeconds("DB_DIAL_TIMEOUT", c.Store.DialTimeout)
	c.Store.StatementTimeout = getEnvAsSeconds("DB_STATEMENT_TIMEOUT", c.Store.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)

	c.OCR.Provider = getEnv("OCR_PROVIDER", c.OCR.Provider)
	c.OCR.VisionAPIKey = getEnv("VISION_API_KEY", c.OCR.VisionAPIKey)
	c.OCR.VisionToken = getEnv("VISION_ACCESS_TOKEN", c.OCR.VisionToken)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)
	c.OCR.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", c.OCR.ArtifactCacheDir)
	c.OCR.Workers = getEnvAsInt("OCR_WORKERS", c.OCR.Workers)
	c.OCR.Timeout = getEnvAsSeconds("OCR_TIMEOUT", c.OCR.Timeout)

	c.Matching.Scorer = getEnv("MATCH_SCORER", c.Matching.Scorer)
	c.Matching.RosterThreshold = getEnvAsInt("MATCH_ROSTER_THRESHOLD", c.Matching.RosterThreshold)
	c.Matching.LedgerThreshold = getEnvAsInt("MATCH_LEDGER_THRESHOLD", c.Matching.LedgerThreshold)

	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

// Location returns the fixed reference zone in which ledger days are counted.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.Ledger.UTCOffsetHours), c.Ledger.UTCOffsetHours*3600)
}

// OCRCredentials reports whether the configured OCR provider can be used at all.
func (c *Config) OCRCredentials() bool {
	switch c.OCR.Provider {
	case "tesseract":
		return true
	default:
		return c.OCR.VisionAPIKey != "" || c.OCR.VisionToken != ""
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

// getEnvAsSeconds accepts a Go duration ("45s", "2m") and returns whole seconds.
func getEnvAsSeconds(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return int(duration / time.Second)
		}
	}
	return defaultValue
}

// Seconds converts a seconds-valued config field into a time.Duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "xlsx", "sqlite":
		if c.Store.Path == "" {
			return NewAppError(CodeConfig, "store.path is required for "+c.Store.Backend, ErrInvalidInput)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for postgres", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown store backend %q", c.Store.Backend), ErrInvalidInput)
	}
	switch c.Matching.Scorer {
	case "", "wratio", "levenshtein":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown matching.scorer %q", c.Matching.Scorer), ErrInvalidInput)
	}
	if c.Matching.RosterThreshold < 0 || c.Matching.RosterThreshold > 100 ||
		c.Matching.LedgerThreshold < 0 || c.Matching.LedgerThreshold > 100 {
		return NewAppError(CodeConfig, "match thresholds must be within 0..100", ErrInvalidInput)
	}
	if c.Extraction.EdgeMargin < 0 || c.Extraction.EdgeMargin >= 1 {
		return NewAppError(CodeConfig, "extraction.edge_margin must be within [0,1)", ErrInvalidInput)
	}
	for _, d := range c.Ledger.WeeklyDays {
		if n, err := strconv.Atoi(d); err != nil || len(d) != 2 || n < 1 || n > 31 {
			return NewAppError(CodeConfig, fmt.Sprintf("ledger.weekly_days: bad day %q", d), ErrInvalidInput)
		}
	}
	if strings.TrimSpace(c.Ledger.DailyTab) == "" {
		return NewAppError(CodeConfig, "ledger.daily_tab is required", ErrInvalidInput)
	}
	return nil
}
