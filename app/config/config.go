package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GOVASSIST"

type Config struct {
	Log         Log         `yaml:"log"`
	HTTP        HTTP        `yaml:"http"`
	LLM         LLM         `yaml:"llm"`
	Classifier  Classifier  `yaml:"classifier"`
	Strategy    Strategy    `yaml:"strategy"`
	Memory      Memory      `yaml:"memory"`
	Suggestions Suggestions `yaml:"suggestions"`
	Session     Session     `yaml:"session"`
}

type Log struct {
	// Minimum level: debug, info, warn, error
	Level string `yaml:"level" example:"info" validate:"oneof=debug info warn error"`
	// Output format: console or json
	Format string `yaml:"format" example:"console" validate:"oneof=console json"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" envconfig:"LOG_TELEGRAM_TOKEN" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" envconfig:"LOG_TELEGRAM_CHAT_ID" example:"1001234567890"`
}

type HTTP struct {
	// Listen address of the API server
	Addr string `yaml:"addr" example:":8080" validate:"required"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" example:"10s" validate:"gt=0"`
	// Write timeout, must cover the LLM timeout
	WriteTimeout time.Duration `yaml:"write_timeout" example:"60s" validate:"gt=0"`
}

type LLM struct {
	// Backend: langchain, eino or none
	Provider string `yaml:"provider" envconfig:"LLM_PROVIDER" example:"langchain" validate:"oneof=langchain eino none"`
	// OpenAI compatible base url
	BaseURL string `yaml:"base_url" envconfig:"LLM_BASE_URL" example:"https://openrouter.ai/api/v1"`
	// OpenAI token
	Token string `yaml:"token" envconfig:"LLM_TOKEN" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX"`
	// Model name
	Model string `yaml:"model" envconfig:"LLM_MODEL" example:"deepseek/deepseek-chat-v3-0324:free"`
	// Upper bound for a single completion call
	Timeout time.Duration `yaml:"timeout" example:"20s" validate:"gt=0"`
	// Completion token limit
	MaxTokens int `yaml:"max_tokens" example:"600" validate:"gt=0"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.4" validate:"gte=0,lte=2"`
	// Number of recent messages sent as history
	HistoryTurns int `yaml:"history_turns" example:"6" validate:"gte=0"`
	// Token budget for history, oldest messages are dropped first
	HistoryTokenBudget int `yaml:"history_token_budget" example:"1500" validate:"gt=0"`
}

type Classifier struct {
	// Candidates below this confidence are ignored
	MinConfidence float64 `yaml:"min_confidence" example:"0.3" validate:"gt=0,lt=1"`
	// Top two candidates closer than this are ambiguous
	AmbiguityMargin float64 `yaml:"ambiguity_margin" example:"0.15" validate:"gte=0,lt=1"`
	// Added when pattern and semantic passes agree
	AgreementBonus float64 `yaml:"agreement_bonus" example:"0.15" validate:"gte=0,lt=1"`
	// Confidence of a pattern match the semantic pass does not confirm
	PatternConfidence float64 `yaml:"pattern_confidence" example:"0.8" validate:"gt=0,lte=1"`
	// Bonus for matching the last intent or an active topic
	ContextBonus float64 `yaml:"context_bonus" example:"0.05" validate:"gte=0,lt=1"`
	// Weight of the best example score, the rest goes to the mean
	BestWeight float64 `yaml:"best_weight" example:"0.7" validate:"gte=0,lte=1"`
}

type Strategy struct {
	// SIMPLE at or above this confidence is answered by rules only
	HighConfidence float64 `yaml:"high_confidence" example:"0.7" validate:"gt=0,lte=1"`
	// SIMPLE below this confidence escalates to the model
	EscalateBelow float64 `yaml:"escalate_below" example:"0.5" validate:"gt=0,lte=1"`
	// MODERATE at or above this confidence is blended
	ModerateConfidence float64 `yaml:"moderate_confidence" example:"0.6" validate:"gt=0,lte=1"`
	// Score at which a message becomes MODERATE
	ModerateScore int `yaml:"moderate_score" example:"20" validate:"gt=0"`
	// Score at which a message becomes COMPLEX
	ComplexScore int `yaml:"complex_score" example:"40" validate:"gtfield=ModerateScore"`
	// Length in characters treated as a long message
	LongMessage int `yaml:"long_message" example:"150" validate:"gt=0"`
}

type Memory struct {
	// Message log bound
	MaxMessages int `yaml:"max_messages" example:"20" validate:"gt=0"`
	// Goal list bound
	MaxGoals int `yaml:"max_goals" example:"5" validate:"gt=0"`
	// Sentiment history bound
	MaxSentimentHistory int `yaml:"max_sentiment_history" example:"10" validate:"gte=3"`
	// Lifetime of a pending follow-up question
	FollowUpTTL time.Duration `yaml:"follow_up_ttl" example:"5m" validate:"gt=0"`
	// Topics mentioned within this window are active
	ActiveTopicWindow time.Duration `yaml:"active_topic_window" example:"2m" validate:"gt=0"`
	// Window used to detect looping input
	RepeatWindow time.Duration `yaml:"repeat_window" example:"2m" validate:"gt=0"`
	// Same message seen this many times is a loop
	RepeatThreshold int `yaml:"repeat_threshold" example:"3" validate:"gte=2"`
	// Clarifications before switching to the menu fallback
	ClarificationThreshold int `yaml:"clarification_threshold" example:"3" validate:"gt=0"`
}

type Suggestions struct {
	// Maximum suggestions per turn
	Max int `yaml:"max" example:"4" validate:"gt=0,lte=10"`
}

type Session struct {
	// Idle sessions are evicted after this duration
	IdleTTL time.Duration `yaml:"idle_ttl" example:"30m" validate:"gt=0"`
	// How often idle sessions are swept
	SweepInterval time.Duration `yaml:"sweep_interval" example:"1m" validate:"gt=0"`
	// Maximum number of live sessions
	MaxSessions int `yaml:"max_sessions" example:"10000" validate:"gt=0"`
}

// Default returns a config with every field set to its default value.
func Default() *Config {
	var result Config
	result.applyDefaults()
	return &result
}

// Load reads the YAML file at path (skipped when path is empty), applies .env and
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	var result Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Errorf("failed to read config file: %w", err)
		}

		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(envPrefix, &result.LLM); err != nil {
		return nil, oops.Errorf("failed to read LLM environment: %w", err)
	}
	if err := envconfig.Process(envPrefix, &result.Log.Telegram); err != nil {
		return nil, oops.Errorf("failed to read log environment: %w", err)
	}

	result.applyDefaults()

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return oops.Errorf("failed to validate config: %w", err)
	}

	if c.LLM.Provider != "none" && c.LLM.Token == "" {
		return oops.Errorf("llm.token is required for provider %q", c.LLM.Provider)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 60 * time.Second
	}

	if c.LLM.Provider == "" {
		if c.LLM.Token == "" {
			c.LLM.Provider = "none"
		} else {
			c.LLM.Provider = "langchain"
		}
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "deepseek/deepseek-chat-v3-0324:free"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 20 * time.Second
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 600
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.4
	}
	if c.LLM.HistoryTurns == 0 {
		c.LLM.HistoryTurns = 6
	}
	if c.LLM.HistoryTokenBudget == 0 {
		c.LLM.HistoryTokenBudget = 1500
	}

	if c.Classifier.MinConfidence == 0 {
		c.Classifier.MinConfidence = 0.3
	}
	if c.Classifier.AmbiguityMargin == 0 {
		c.Classifier.AmbiguityMargin = 0.15
	}
	if c.Classifier.AgreementBonus == 0 {
		c.Classifier.AgreementBonus = 0.15
	}
	if c.Classifier.PatternConfidence == 0 {
		c.Classifier.PatternConfidence = 0.8
	}
	if c.Classifier.ContextBonus == 0 {
		c.Classifier.ContextBonus = 0.05
	}
	if c.Classifier.BestWeight == 0 {
		c.Classifier.BestWeight = 0.7
	}

	if c.Strategy.HighConfidence == 0 {
		c.Strategy.HighConfidence = 0.7
	}
	if c.Strategy.EscalateBelow == 0 {
		c.Strategy.EscalateBelow = 0.5
	}
	if c.Strategy.ModerateConfidence == 0 {
		c.Strategy.ModerateConfidence = 0.6
	}
	if c.Strategy.ModerateScore == 0 {
		c.Strategy.ModerateScore = 20
	}
	if c.Strategy.ComplexScore == 0 {
		c.Strategy.ComplexScore = 40
	}
	if c.Strategy.LongMessage == 0 {
		c.Strategy.LongMessage = 150
	}

	if c.Memory.MaxMessages == 0 {
		c.Memory.MaxMessages = 20
	}
	if c.Memory.MaxGoals == 0 {
		c.Memory.MaxGoals = 5
	}
	if c.Memory.MaxSentimentHistory == 0 {
		c.Memory.MaxSentimentHistory = 10
	}
	if c.Memory.FollowUpTTL == 0 {
		c.Memory.FollowUpTTL = 5 * time.Minute
	}
	if c.Memory.ActiveTopicWindow == 0 {
		c.Memory.ActiveTopicWindow = 2 * time.Minute
	}
	if c.Memory.RepeatWindow == 0 {
		c.Memory.RepeatWindow = 2 * time.Minute
	}
	if c.Memory.RepeatThreshold == 0 {
		c.Memory.RepeatThreshold = 3
	}
	if c.Memory.ClarificationThreshold == 0 {
		c.Memory.ClarificationThreshold = 3
	}

	if c.Suggestions.Max == 0 {
		c.Suggestions.Max = 4
	}

	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 30 * time.Minute
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 10000
	}
}
