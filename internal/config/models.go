package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// MailConfig represents the configuration for the mail provider
type MailConfig struct {
	Provider string
}

// GmailConfig represents the configuration for the Gmail API client
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	UserID          string
	Label           string
}

// IMAPConfig represents the configuration for the IMAP/SMTP mail client
type IMAPConfig struct {
	Address      string
	Username     string
	Password     string
	Mailbox      string
	TrashMailbox string
	SMTPAddress  string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// DetectorConfig represents the configuration of a detection run
type DetectorConfig struct {
	UserID             string
	MaxEmails          int
	OutputCSV          string
	MaxBodySize        int
	MaxHistory         int
	Interval           time.Duration
	Threshold          float64
	TrashSpam          bool
	WhitelistedDomains []string
}

// CacheConfig represents the configuration of the classification cache
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetMail returns the mail provider configuration
func (c *Config) GetMail() MailConfig {
	return MailConfig{
		Provider: c.GetString("mail.provider"),
	}
}

// GetGmail returns the Gmail API configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
		UserID:          c.GetString("gmail.user_id"),
		Label:           c.GetString("gmail.label"),
	}
}

// GetIMAP returns the IMAP/SMTP configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Address:      c.GetString("imap.address"),
		Username:     c.GetString("imap.username"),
		Password:     c.GetString("imap.password"),
		Mailbox:      c.GetString("imap.mailbox"),
		TrashMailbox: c.GetString("imap.trash_mailbox"),
		SMTPAddress:  c.GetString("imap.smtp_address"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetDetector returns the detector configuration
func (c *Config) GetDetector() (DetectorConfig, error) {
	interval, err := c.GetDuration("detector.interval")
	if err != nil {
		return DetectorConfig{}, err
	}
	threshold := c.GetFloat64("spam.threshold")
	if threshold < 0 || threshold > 100 {
		return DetectorConfig{}, fmt.Errorf("spam.threshold must be between 0 and 100, got %v", threshold)
	}

	return DetectorConfig{
		UserID:             c.GetString("detector.user_id"),
		MaxEmails:          c.GetInt("detector.max_emails"),
		OutputCSV:          c.GetString("detector.output_csv"),
		MaxBodySize:        c.GetInt("detector.max_body_size"),
		MaxHistory:         c.GetInt("detector.max_history"),
		Interval:           interval,
		Threshold:          threshold,
		TrashSpam:          c.GetBool("spam.trash_spam"),
		WhitelistedDomains: c.GetStringSlice("spam.whitelisted_domains"),
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}

	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}
