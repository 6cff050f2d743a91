package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"
)

// Supported inference providers.
const (
	ProviderArk      = "ark"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

// Supported store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config aggregates every setting of the service.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	WebSearch WebSearchConfig
	Chat      ChatConfig
	Store     StoreConfig
	Speech    SpeechConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// AIConfig describes the inference gateway.
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
	Timeout     time.Duration
	WebContext  bool
}

// WebSearchConfig describes the live web-context provider.
type WebSearchConfig struct {
	Endpoint   string
	MaxResults int
}

// ChatConfig tunes the conversation orchestrator.
type ChatConfig struct {
	FollowUpDelay time.Duration
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string
	DatabaseURL string
}

// SpeechConfig describes the server-side speech adapters.
type SpeechConfig struct {
	APIKey   string
	BaseURL  string
	TTSModel string
	TTSVoice string
	ASRModel string
}

// Enabled reports whether speech credentials are present.
func (c SpeechConfig) Enabled() bool {
	return c.APIKey != ""
}

// Load reads defaults, an optional healbuddy.yaml and the environment, in
// that order of precedence. path overrides the config file search.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("healbuddy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/healbuddy")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		log.Printf("[config] loaded %s", v.ConfigFileUsed())
	}

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(v)
	if err != nil {
		return nil, err
	}

	web, err := loadWebSearchConfig(v)
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig(v)
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		WebSearch: web,
		Chat:      chat,
		Store:     store,
		Speech:    loadSpeechConfig(v),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("ai_provider", ProviderArk)
	v.SetDefault("ark_base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ark_region", "cn-beijing")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("deepseek_base_url", "https://api.deepseek.com/v1")
	v.SetDefault("deepseek_model", "deepseek-chat")
	v.SetDefault("ai_timeout", "30s")
	v.SetDefault("ai_web_context", "true")
	v.SetDefault("websearch_endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("websearch_max_results", "3")
	v.SetDefault("chat_follow_up_delay", "1500ms")
	v.SetDefault("store_driver", StoreMemory)
	v.SetDefault("speech_tts_model", "tts-1")
	v.SetDefault("speech_tts_voice", "alloy")
	v.SetDefault("speech_asr_model", "whisper-1")
}

func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	port := strings.TrimSpace(v.GetString("port"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadAIConfig(v *viper.Viper) (AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("ai_provider")))
	if provider != ProviderArk && provider != ProviderOpenAI && provider != ProviderDeepSeek {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloat(v, "ai_temperature")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalInt(v, "ai_max_tokens")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDuration(v, "ai_timeout")
	if err != nil {
		return AIConfig{}, err
	}

	webContext, err := parseBool(v, "ai_web_context")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:    provider,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
		WebContext:  webContext,
	}

	switch provider {
	case ProviderOpenAI:
		cfg.APIKey = getString(v, "openai_api_key")
		cfg.BaseURL = getString(v, "openai_base_url")
		cfg.Model = getString(v, "openai_model")
	case ProviderDeepSeek:
		cfg.APIKey = getString(v, "deepseek_api_key")
		cfg.BaseURL = getString(v, "deepseek_base_url")
		cfg.Model = getString(v, "deepseek_model")
	default:
		cfg.APIKey = getString(v, "ark_api_key")
		cfg.AccessKey = getString(v, "ark_access_key")
		cfg.SecretKey = getString(v, "ark_secret_key")
		cfg.BaseURL = getString(v, "ark_base_url")
		cfg.Region = getString(v, "ark_region")
		cfg.Model = getString(v, "ark_model")
	}
	return cfg, nil
}

func loadWebSearchConfig(v *viper.Viper) (WebSearchConfig, error) {
	maxResults, err := parseOptionalInt(v, "websearch_max_results")
	if err != nil {
		return WebSearchConfig{}, err
	}
	limit := 3
	if maxResults != nil {
		limit = *maxResults
	}
	if limit < 1 {
		limit = 1
	}
	return WebSearchConfig{Endpoint: getString(v, "websearch_endpoint"), MaxResults: limit}, nil
}

func loadChatConfig(v *viper.Viper) (ChatConfig, error) {
	delay, err := parseDuration(v, "chat_follow_up_delay")
	if err != nil {
		return ChatConfig{}, err
	}
	return ChatConfig{FollowUpDelay: delay}, nil
}

func loadStoreConfig(v *viper.Viper) (StoreConfig, error) {
	driver := strings.ToLower(getString(v, "store_driver"))
	cfg := StoreConfig{Driver: driver, DatabaseURL: getString(v, "database_url")}

	switch driver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return StoreConfig{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", driver)
	}
	return cfg, nil
}

func loadSpeechConfig(v *viper.Viper) SpeechConfig {
	apiKey := getString(v, "speech_openai_api_key")
	if apiKey == "" {
		apiKey = getString(v, "openai_api_key")
	}
	return SpeechConfig{
		APIKey:   apiKey,
		BaseURL:  getString(v, "openai_base_url"),
		TTSModel: getString(v, "speech_tts_model"),
		TTSVoice: getString(v, "speech_tts_voice"),
		ASRModel: getString(v, "speech_asr_model"),
	}
}

// Enabled reports whether credentials and a model are configured.
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	if c.Provider == ProviderOpenAI || c.Provider == ProviderDeepSeek {
		return c.APIKey != ""
	}
	return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
}

// NewChatModel creates the chat model of the configured provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", c.Provider)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	switch c.Provider {
	case ProviderOpenAI:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	case ProviderDeepSeek:
		cfg := &deepseek.ChatModelConfig{
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		}
		if maxTokens != nil {
			cfg.MaxTokens = *maxTokens
		}
		if temperature != nil {
			cfg.Temperature = *temperature
		}
		return deepseek.NewChatModel(ctx, cfg)
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func envName(key string) string {
	return strings.ToUpper(key)
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := getString(v, key)
	if raw == "" {
		return false, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", envName(key), raw, err)
	}
	return val, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := getString(v, key)
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", envName(key), raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", envName(key), raw)
	}
	return val, nil
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	raw := getString(v, key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", envName(key), raw, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	raw := getString(v, key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", envName(key), raw, err)
	}
	return &val, nil
}
