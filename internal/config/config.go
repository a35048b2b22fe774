package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
)

// Generation providers accepted by GENERATION_PROVIDER.
const (
	ProviderHuggingFace = "huggingface"
	ProviderAnthropic   = "anthropic"
)

// Config holds the application configuration.
type Config struct {
	EnvVars EnvVars  `json:"env"`
	Prompts *Prompts `json:"-"`
}

// EnvVars holds environment variables required by the application.
// Fields tagged `optional:"true"` are skipped by CheckConfigEnvFields.
type EnvVars struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	DatabaseUrl    string   `env:"DATABASE_URL"`
	IDHeader       string   `env:"ID_HEADER" optional:"true"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	PromptsPath    string   `env:"PROMPTS_PATH" envDefault:"configs/prompts.yaml"`

	GenerationProvider    string        `env:"GENERATION_PROVIDER" envDefault:"huggingface"`
	HuggingFaceAPIKey     string        `env:"HUGGINGFACE_API_KEY" optional:"true"`
	HuggingFaceBaseURL    string        `env:"HUGGINGFACE_BASE_URL" envDefault:"https://router.huggingface.co/v1"`
	GenerationModel       string        `env:"GENERATION_MODEL" envDefault:"deepseek-ai/DeepSeek-V3.1-Terminus:novita"`
	AnthropicAPIKey       string        `env:"ANTHROPIC_API_KEY" optional:"true"`
	AnthropicModel        string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	GenerationCount       int           `env:"GENERATION_COUNT" envDefault:"5"`
	GenerationTimeout     time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`
	GenerationTaskTimeout time.Duration `env:"GENERATION_TASK_TIMEOUT" envDefault:"2m"`
	DedupMode             string        `env:"DEDUP_MODE" envDefault:"name"`

	UnsplashAPIKey          string        `env:"UNSPLASH_API_KEY" optional:"true"`
	UnsplashRequestsPerHour int           `env:"UNSPLASH_REQUESTS_PER_HOUR" envDefault:"50"`
	ImageTimeout            time.Duration `env:"IMAGE_TIMEOUT" envDefault:"10s"`
	ImageConcurrency        int           `env:"IMAGE_CONCURRENCY" envDefault:"3"`

	SearchCacheSize int           `env:"SEARCH_CACHE_SIZE" envDefault:"500"`
	SearchCacheTTL  time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"24h"`
	DetailCacheSize int           `env:"DETAIL_CACHE_SIZE" envDefault:"1500"`
	DetailCacheTTL  time.Duration `env:"DETAIL_CACHE_TTL" envDefault:"720h"`

	GenerationWorkers    int `env:"GENERATION_WORKERS" envDefault:"10"`
	GenerationMaxWorkers int `env:"GENERATION_MAX_WORKERS" envDefault:"50"`
	GenerationQueueSize  int `env:"GENERATION_QUEUE_SIZE" envDefault:"500"`
	MailWorkers          int `env:"MAIL_WORKERS" envDefault:"5"`
	MailMaxWorkers       int `env:"MAIL_MAX_WORKERS" envDefault:"40"`
	MailQueueSize        int `env:"MAIL_QUEUE_SIZE" envDefault:"500"`

	SearchRateLimit int `env:"SEARCH_RATE_LIMIT" envDefault:"20"`

	RedisURL string `env:"REDIS_URL" optional:"true"`

	AWSRegion          string `env:"AWS_REGION" optional:"true"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" optional:"true"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" optional:"true"`
	S3Bucket           string `env:"S3_BUCKET" optional:"true"`

	SMTPHost     string `env:"SMTP_HOST" optional:"true"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME" optional:"true"`
	SMTPPassword string `env:"SMTP_PASSWORD" optional:"true"`
	SMTPFrom     string `env:"SMTP_FROM" optional:"true"`
}

// LoadConfig parses environment variables into the Config struct.
func LoadConfig() (*Config, error) {
	var config Config
	if err := env.Parse(&config.EnvVars); err != nil {
		return nil, err
	}
	return &config, nil
}

// CheckConfigEnvFields validates that all required EnvVars fields are set.
func (c *Config) CheckConfigEnvFields() error {
	return checkFieldsRecursive(reflect.ValueOf(c.EnvVars))
}

// Validate checks combinations that a single required tag cannot express.
func (c *Config) Validate() error {
	e := c.EnvVars
	switch e.GenerationProvider {
	case ProviderHuggingFace:
		if e.HuggingFaceAPIKey == "" {
			return errors.New("$HuggingFaceAPIKey must be set when GENERATION_PROVIDER=huggingface")
		}
	case ProviderAnthropic:
		if e.AnthropicAPIKey == "" {
			return errors.New("$AnthropicAPIKey must be set when GENERATION_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("unknown generation provider %q", e.GenerationProvider)
	}

	if e.DedupMode != "name" && e.DedupMode != "content" {
		return fmt.Errorf("unknown dedup mode %q", e.DedupMode)
	}
	if e.GenerationWorkers <= 0 || e.GenerationMaxWorkers < e.GenerationWorkers {
		return errors.New("generation pool requires 0 < workers <= max workers")
	}
	if e.MailWorkers <= 0 || e.MailMaxWorkers < e.MailWorkers {
		return errors.New("mail pool requires 0 < workers <= max workers")
	}
	if e.S3Bucket != "" && e.AWSRegion == "" {
		return errors.New("$AWSRegion must be set when S3_BUCKET is configured")
	}
	return nil
}

// MailEnabled reports whether outbound email is configured.
func (c *Config) MailEnabled() bool {
	return c.EnvVars.SMTPHost != "" && c.EnvVars.SMTPFrom != ""
}

func checkFieldsRecursive(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := v.Type().Field(i)
		if fieldType.Tag.Get("optional") == "true" {
			continue
		}
		if field.IsZero() {
			return fmt.Errorf("$%s must be set", fieldType.Name)
		}
		if field.Kind() == reflect.Struct && fieldType.Type != reflect.TypeOf(time.Time{}) {
			if err := checkFieldsRecursive(field); err != nil {
				return err
			}
		}
	}
	return nil
}
