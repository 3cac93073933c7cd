// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for fishchat.
//
// Configuration is read once at process start and injected into the
// components that need it; nothing reads the environment at call time.
//
// File location (TOML): ~/.fishchat/config.toml, overridable with the
// FISHCHAT_CONFIG environment variable. Individual values can be overridden
// with FISHCHAT_* environment variables at load time.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/fishchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete fishchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Agent is the remote agent backend the client talks to.
	Agent AgentConfig `toml:"agent" json:"agent"`

	// LLM is the legacy direct-LLM path used for title and memory
	// summarization.
	LLM LLMConfig `toml:"llm" json:"llm"`

	// Chat controls session-store behavior.
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Questions controls the suggested-question cache.
	Questions QuestionsConfig `toml:"questions" json:"questions"`

	// Admin gates the settings screen.
	Admin AdminConfig `toml:"admin" json:"admin"`

	// UI holds terminal UI settings.
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging controls the debug log file.
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// AgentConfig describes the remote agent service.
type AgentConfig struct {
	// BaseURL is the root of the agent service; the client appends
	// /flask/agent/... paths to it.
	BaseURL string `toml:"base_url" json:"base_url"`

	// DefaultAgentType is used when a mask carries no agent type.
	DefaultAgentType string `toml:"default_agent_type" json:"default_agent_type"`

	// StatusTimeoutSecs is the client-side timeout for the lightweight
	// session status check. Chat calls are bound to the per-message
	// cancel handle instead of a hard timeout.
	StatusTimeoutSecs int `toml:"status_timeout_secs" json:"status_timeout_secs"`

	// RequestsPerSecond rate-limits outgoing chat requests (0 = off).
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// LLMConfig describes the OpenAI-compatible endpoint used by the legacy
// summarization path.
type LLMConfig struct {
	BaseURL string `toml:"base_url" json:"base_url"`
	APIKey  string `toml:"api_key" json:"api_key"`

	// Model used for memory summarization and title generation.
	SummarizeModel string `toml:"summarize_model" json:"summarize_model"`

	// AllowedModels is the allow-list forwarded requests must match.
	AllowedModels []string `toml:"allowed_models" json:"allowed_models"`
}

// ChatConfig controls windowing and summarization in the session store.
type ChatConfig struct {
	// HistoryMessageCount bounds the short-term window.
	HistoryMessageCount int `toml:"history_message_count" json:"history_message_count"`

	// MaxTokens is the token budget for the context window.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`

	// CompressThreshold is the unsummarized token count that triggers
	// rolling memory summarization.
	CompressThreshold int `toml:"compress_threshold" json:"compress_threshold"`

	// SendMemory includes the rolling summary in the context window.
	SendMemory bool `toml:"send_memory" json:"send_memory"`

	// AutoGenerateTitle summarizes the topic once a session has enough
	// content.
	AutoGenerateTitle bool `toml:"auto_generate_title" json:"auto_generate_title"`

	// DeepThinking is the default for new sessions.
	DeepThinking bool `toml:"deep_thinking" json:"deep_thinking"`
}

// QuestionsConfig controls the suggested-question cache.
type QuestionsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`

	// TTLMinutes bounds cache entry age.
	TTLMinutes int `toml:"ttl_minutes" json:"ttl_minutes"`
}

// AdminConfig gates the settings screen.
type AdminConfig struct {
	// PasswordHash is an argon2id PHC string; empty disables the gate.
	PasswordHash string `toml:"password_hash" json:"password_hash"`

	// TOTPSecret enables a TOTP second factor when set.
	TOTPSecret string `toml:"totp_secret" json:"totp_secret"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme" json:"theme"`

	// TypingBaseSpeed is the base reveal rate in characters per second.
	TypingBaseSpeed int `toml:"typing_base_speed" json:"typing_base_speed"`

	// CompactMode uses a denser layout.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// LoggingConfig controls the debug log.
type LoggingConfig struct {
	// Verbose enables debug-level logging. Read once at startup.
	Verbose bool `toml:"verbose" json:"verbose"`

	// File is the log file path; empty means <config dir>/fishchat.log.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Agent: AgentConfig{
			BaseURL:           "https://www.ifish.me",
			DefaultAgentType:  "general",
			StatusTimeoutSecs: 5,
			RequestsPerSecond: 2,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			SummarizeModel: "gpt-4o-mini",
			AllowedModels:  []string{"gpt-4o-mini", "gpt-4o"},
		},
		Chat: ChatConfig{
			HistoryMessageCount: 8,
			MaxTokens:           4000,
			CompressThreshold:   1000,
			SendMemory:          true,
			AutoGenerateTitle:   true,
			DeepThinking:        true,
		},
		Questions: QuestionsConfig{
			Enabled:    true,
			TTLMinutes: 30,
		},
		UI: UIConfig{
			Theme:           "auto",
			TypingBaseSpeed: 40,
		},
		Logging: LoggingConfig{},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the fishchat configuration directory (~/.fishchat),
// creating nothing.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".fishchat"), nil
}

// ConfigPath returns the config file path, honoring FISHCHAT_CONFIG.
func ConfigPath() (string, error) {
	if p := os.Getenv("FISHCHAT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, fills defaults for absent fields, applies
// environment overrides, and validates. A missing file yields defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the config file atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// applyEnvOverrides applies FISHCHAT_* environment overrides. Called once
// during Load; nothing else reads the environment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FISHCHAT_AGENT_URL"); v != "" {
		c.Agent.BaseURL = v
	}
	if v := os.Getenv("FISHCHAT_AGENT_TYPE"); v != "" {
		c.Agent.DefaultAgentType = v
	}
	if v := os.Getenv("FISHCHAT_LLM_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("FISHCHAT_LLM_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("FISHCHAT_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Verbose = b
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Agent.BaseURL); err != nil || c.Agent.BaseURL == "" {
		return ValidationError{"agent.base_url", "must be a valid URL"}
	}
	if c.Agent.StatusTimeoutSecs <= 0 {
		return ValidationError{"agent.status_timeout_secs", "must be positive"}
	}
	if c.Agent.RequestsPerSecond < 0 {
		return ValidationError{"agent.requests_per_second", "must not be negative"}
	}
	if len(c.LLM.AllowedModels) > 0 && c.LLM.SummarizeModel != "" {
		allowed := false
		for _, m := range c.LLM.AllowedModels {
			if m == c.LLM.SummarizeModel {
				allowed = true
				break
			}
		}
		if !allowed {
			return ValidationError{"llm.summarize_model", "not in llm.allowed_models"}
		}
	}
	if c.Chat.HistoryMessageCount <= 0 {
		return ValidationError{"chat.history_message_count", "must be positive"}
	}
	if c.Chat.MaxTokens <= 0 {
		return ValidationError{"chat.max_tokens", "must be positive"}
	}
	if c.Chat.CompressThreshold <= 0 {
		return ValidationError{"chat.compress_threshold", "must be positive"}
	}
	if c.Questions.TTLMinutes <= 0 {
		return ValidationError{"questions.ttl_minutes", "must be positive"}
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return ValidationError{"ui.theme", `must be "dark", "light" or "auto"`}
	}
	if c.UI.TypingBaseSpeed <= 0 {
		return ValidationError{"ui.typing_base_speed", "must be positive"}
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// StatusTimeout returns the session status check timeout as a Duration.
func (c *AgentConfig) StatusTimeout() time.Duration {
	return time.Duration(c.StatusTimeoutSecs) * time.Second
}

// TTL returns the suggested-question cache TTL as a Duration.
func (c *QuestionsConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// LogFile resolves the log file path.
func (c *LoggingConfig) LogFile() (string, error) {
	if c.File != "" {
		return c.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "fishchat.log"), nil
}

// =============================================================================
// KEY ACCESS (config CLI command)
// =============================================================================

// Get returns a config value by dotted key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "agent.base_url":
		return c.Agent.BaseURL, nil
	case "agent.default_agent_type":
		return c.Agent.DefaultAgentType, nil
	case "llm.base_url":
		return c.LLM.BaseURL, nil
	case "llm.summarize_model":
		return c.LLM.SummarizeModel, nil
	case "chat.history_message_count":
		return strconv.Itoa(c.Chat.HistoryMessageCount), nil
	case "chat.max_tokens":
		return strconv.Itoa(c.Chat.MaxTokens), nil
	case "chat.deep_thinking":
		return strconv.FormatBool(c.Chat.DeepThinking), nil
	case "questions.ttl_minutes":
		return strconv.Itoa(c.Questions.TTLMinutes), nil
	case "ui.theme":
		return c.UI.Theme, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a config value by dotted key. The caller saves.
func (c *Config) Set(key, value string) error {
	switch key {
	case "agent.base_url":
		c.Agent.BaseURL = value
	case "agent.default_agent_type":
		c.Agent.DefaultAgentType = value
	case "llm.base_url":
		c.LLM.BaseURL = value
	case "llm.summarize_model":
		c.LLM.SummarizeModel = value
	case "chat.history_message_count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", key, value)
		}
		c.Chat.HistoryMessageCount = n
	case "chat.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", key, value)
		}
		c.Chat.MaxTokens = n
	case "chat.deep_thinking":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %q", key, value)
		}
		c.Chat.DeepThinking = b
	case "questions.ttl_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", key, value)
		}
		c.Questions.TTLMinutes = n
	case "ui.theme":
		c.UI.Theme = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return c.Validate()
}
