package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	openaiprovider "github.com/zhouzirui/ai-diary/backend/internal/provider/openai"
	"github.com/zhouzirui/ai-diary/backend/internal/service/illustrator"
)

// DefaultGreeting opens every conversation buffer.
const DefaultGreeting = "Hi there! How was your day? Tell me what happened 😊"

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Image  ImageConfig
	Store  StoreConfig
	Diary  DiaryConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	image := loadImageConfig()

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	diary, err := loadDiaryConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Image: image, Store: store, Diary: diary, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Supported language-model providers.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string

	// Ark
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != "" && c.OpenAIModel != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

// NewChatModel 使用配置创建一个模型实例。
// Sampling parameters are left unset here; every stage passes its own per call.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", c.Provider)
	}

	if c.Provider == ProviderOpenAI {
		return openaiprovider.NewChatModel(openaiprovider.Config{
			APIKey:  c.OpenAIAPIKey,
			BaseURL: c.OpenAIBaseURL,
			Model:   c.OpenAIModel,
		}), nil
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	openAIKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))

	defaultProvider := ProviderArk
	if openAIKey != "" {
		defaultProvider = ProviderOpenAI
	}
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", defaultProvider))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q: want %s or %s", provider, ProviderArk, ProviderOpenAI)
	}

	return AIConfig{
		Provider:      provider,
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         strings.TrimSpace(os.Getenv("Model")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:  openAIKey,
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnvOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
	}, nil
}

// ImageConfig 描述图片生成服务配置。
type ImageConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Size           string
	Quality        string
	PlaceholderURL string
}

// Enabled reports whether an image backend can be reached at all.
func (c ImageConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadImageConfig() ImageConfig {
	apiKey := strings.TrimSpace(os.Getenv("IMAGE_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	return ImageConfig{
		APIKey:         apiKey,
		BaseURL:        getEnvOrDefault("IMAGE_BASE_URL", getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")),
		Model:          getEnvOrDefault("IMAGE_MODEL", "dall-e-3"),
		Size:           getEnvOrDefault("IMAGE_SIZE", "1024x1024"),
		Quality:        getEnvOrDefault("IMAGE_QUALITY", "standard"),
		PlaceholderURL: getEnvOrDefault("IMAGE_PLACEHOLDER_URL", illustrator.DefaultPlaceholder),
	}
}

// StoreConfig 描述日记存储配置。SurrealDB 为主存储，本地 SQLite 为兜底。
type StoreConfig struct {
	SurrealURL        string
	SurrealNamespace  string
	SurrealDatabase   string
	SurrealUser       string
	SurrealPass       string
	SurrealAuthLevel  string
	// ReconnectInterval spaces connection attempts while the primary is unreachable.
	ReconnectInterval time.Duration
	LocalDir          string
}

// PrimaryEnabled reports whether a primary document store is configured.
func (c StoreConfig) PrimaryEnabled() bool {
	return c.SurrealURL != ""
}

func loadStoreConfig() (StoreConfig, error) {
	localDir := strings.TrimSpace(os.Getenv("DIARY_LOCAL_DIR"))
	if localDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return StoreConfig{}, fmt.Errorf("resolve home directory for DIARY_LOCAL_DIR: %w", err)
		}
		localDir = filepath.Join(home, ".ai-diary")
	}

	authLevel := getEnvOrDefault("SURREALDB_AUTH_LEVEL", "root")
	if authLevel != "root" && authLevel != "database" {
		return StoreConfig{}, fmt.Errorf("invalid SURREALDB_AUTH_LEVEL value %q", authLevel)
	}

	reconnect, err := durationEnvOrDefault("SURREALDB_RECONNECT_INTERVAL", 30*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		SurrealURL:        strings.TrimSpace(os.Getenv("SURREALDB_URL")),
		SurrealNamespace:  getEnvOrDefault("SURREALDB_NAMESPACE", "ai_diary"),
		SurrealDatabase:   getEnvOrDefault("SURREALDB_DATABASE", "diary"),
		SurrealUser:       getEnvOrDefault("SURREALDB_USER", "root"),
		SurrealPass:       getEnvOrDefault("SURREALDB_PASS", "root"),
		SurrealAuthLevel:  authLevel,
		ReconnectInterval: reconnect,
		LocalDir:          localDir,
	}, nil
}

// DiaryConfig holds the conversation thresholds and limits.
type DiaryConfig struct {
	MinUserTurns  int
	MinTurns      int
	MaxTurnLength int
	ChatWindow    int
	Greeting      string
	Location      *time.Location
	// ResetAfterFinalize starts a fresh conversation once an entry is saved.
	ResetAfterFinalize bool
}

func loadDiaryConfig() (DiaryConfig, error) {
	minUserTurns, err := intEnvOrDefault("DIARY_MIN_USER_TURNS", 5, 1)
	if err != nil {
		return DiaryConfig{}, err
	}
	minTurns, err := intEnvOrDefault("DIARY_MIN_TURNS", 3, 1)
	if err != nil {
		return DiaryConfig{}, err
	}
	maxLength, err := intEnvOrDefault("DIARY_MAX_TURN_LENGTH", 500, 1)
	if err != nil {
		return DiaryConfig{}, err
	}
	window, err := intEnvOrDefault("DIARY_CHAT_WINDOW", 10, 1)
	if err != nil {
		return DiaryConfig{}, err
	}

	resetAfter, err := parseBoolEnv("DIARY_RESET_AFTER_FINALIZE", true)
	if err != nil {
		return DiaryConfig{}, err
	}

	loc := time.Local
	if name := strings.TrimSpace(os.Getenv("DIARY_TIMEZONE")); name != "" {
		loc, err = time.LoadLocation(name)
		if err != nil {
			return DiaryConfig{}, fmt.Errorf("invalid DIARY_TIMEZONE value %q: %w", name, err)
		}
	}

	return DiaryConfig{
		MinUserTurns:  minUserTurns,
		MinTurns:      minTurns,
		MaxTurnLength: maxLength,
		ChatWindow:    window,
		Greeting:      getEnvOrDefault("DIARY_GREETING", DefaultGreeting),
		Location:      loc,

		ResetAfterFinalize: resetAfter,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level slog.Level
	File  string
}

func loadLogConfig() (LogConfig, error) {
	var level slog.Level
	raw := getEnvOrDefault("LOG_LEVEL", "info")
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}
	return LogConfig{Level: level, File: strings.TrimSpace(os.Getenv("LOG_FILE"))}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func intEnvOrDefault(key string, defaultValue, minValue int) (int, error) {
	override, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if override == nil {
		return defaultValue, nil
	}
	if *override < minValue {
		return 0, fmt.Errorf("invalid %s value %d: must be at least %d", key, *override, minValue)
	}
	return *override, nil
}

func durationEnvOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
