package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates all server configuration.
type Config struct {
	Server ServerConfig
	OpenAI OpenAIConfig
	Store  StoreConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	openAI, err := loadOpenAIConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, OpenAI: openAI, Store: store}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr          string
	MaxUploadSize int64
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		// Accept either ":8080" / "127.0.0.1:8080" or a bare port number.
		addr = ":" + port
	}

	maxUpload, err := parseOptionalIntEnv("MAX_UPLOAD_MB")
	if err != nil {
		return ServerConfig{}, err
	}
	uploadMB := 32
	if maxUpload != nil {
		uploadMB = *maxUpload
	}

	return ServerConfig{Addr: addr, MaxUploadSize: int64(uploadMB) << 20}, nil
}

// OpenAIConfig holds the hosted AI API credential and model defaults. The
// key is read from server-side environment only and is never exposed to
// clients.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	CompletionModel    string
	TranscriptionModel string
	Language           string
}

// Enabled reports whether the credential required for upstream calls is set.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadOpenAIConfig() (OpenAIConfig, error) {
	return OpenAIConfig{
		APIKey:             strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:            getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		CompletionModel:    getEnvOrDefault("COMPLETION_MODEL", "text-davinci-003"),
		TranscriptionModel: getEnvOrDefault("TRANSCRIPTION_MODEL", "whisper-1"),
		Language:           strings.TrimSpace(os.Getenv("TRANSCRIPTION_LANGUAGE")),
	}, nil
}

// StoreConfig describes the embedded document store.
type StoreConfig struct {
	Dir      string
	InMemory bool
}

func loadStoreConfig() (StoreConfig, error) {
	inMemory, err := parseBoolEnv("STORE_IN_MEMORY", false)
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		Dir:      getEnvOrDefault("DATA_DIR", "./data"),
		InMemory: inMemory,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
