package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Log       LogConfig
	LLM       LLMConfig
	Workspace WorkspaceConfig
	History   HistoryConfig
	Repair    RepairConfig
	Exec      ExecConfig
	Session   SessionConfig
	OTel      OTelConfig
}

type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"; empty derives from Env
	Format string // "text" or "json"
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string // Empty selects the provider default
	MaxTokens int
}

type WorkspaceConfig struct {
	Root         string
	Extensions   []string // File extension allow-list; empty = no filter
	ExcludedDirs []string // Directory names pruned from the walk
	TokenBudget  int
	MaxFileBytes int
}

type HistoryConfig struct {
	MaxTranscript int // Transcript entries kept on refresh
	Capacity      int // Total message ceiling enforced by trimming
}

type RepairConfig struct {
	MaxAttempts int
}

type ExecConfig struct {
	TimeoutSeconds int // 0 = no timeout
}

type SessionConfig struct {
	DebugDir string // When set, per-session transcripts are written here
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from environment variables. In development a
// .env file in the working directory is read first when present.
func Load() (Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given env file instead of the
// default .env. A named file that cannot be read is an error; the implicit
// .env is optional.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else if getEnv("ATELIER_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env: getEnv("ATELIER_ENV", "development"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		LLM: LLMConfig{
			Provider:  getEnv("LLM_PROVIDER", "anthropic"),
			APIKey:    getEnv("LLM_API_KEY", ""),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			Model:     getEnv("LLM_MODEL", ""),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 4096),
		},
		Workspace: WorkspaceConfig{
			Root:         getEnv("WORKSPACE_ROOT", "."),
			Extensions:   splitList(getEnv("CONTEXT_EXTENSIONS", "rb")),
			ExcludedDirs: splitList(getEnv("CONTEXT_EXCLUDED_DIRS", ".git,node_modules,vendor,tmp,log")),
			TokenBudget:  getEnvInt("CONTEXT_TOKEN_BUDGET", 50000),
			MaxFileBytes: getEnvInt("CONTEXT_MAX_FILE_BYTES", 1000000),
		},
		History: HistoryConfig{
			MaxTranscript: getEnvInt("HISTORY_MAX_TRANSCRIPT", 10),
			Capacity:      getEnvInt("HISTORY_CAPACITY", 12),
		},
		Repair: RepairConfig{
			MaxAttempts: getEnvInt("REPAIR_MAX_ATTEMPTS", 3),
		},
		Exec: ExecConfig{
			TimeoutSeconds: getEnvInt("EXEC_TIMEOUT_SECONDS", 0),
		},
		Session: SessionConfig{
			DebugDir: getEnv("SESSION_DEBUG_DIR", ""),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "atelier"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the invariants the rest of the program relies on. Load
// runs it; callers that mutate the config afterwards should run it again.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLM.Provider)
	}
	if c.Workspace.TokenBudget <= 0 {
		return fmt.Errorf("CONTEXT_TOKEN_BUDGET must be positive")
	}
	if c.Workspace.MaxFileBytes <= 0 {
		return fmt.Errorf("CONTEXT_MAX_FILE_BYTES must be positive")
	}
	if c.History.MaxTranscript <= 0 {
		return fmt.Errorf("HISTORY_MAX_TRANSCRIPT must be positive")
	}
	// The capacity covers the fixed system+context prefix plus at least
	// one full exchange.
	if c.History.Capacity < 4 {
		return fmt.Errorf("HISTORY_CAPACITY must be at least 4")
	}
	if c.Repair.MaxAttempts <= 0 {
		return fmt.Errorf("REPAIR_MAX_ATTEMPTS must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c SessionConfig) DebugEnabled() bool {
	return c.DebugDir != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// splitList parses a comma-separated env value into trimmed entries,
// dropping empties. An empty value yields nil.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
