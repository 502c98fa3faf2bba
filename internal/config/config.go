package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// defaultBackoffTableMin applies when BACKOFF_TABLE_MIN is unset. Values are
// minutes indexed by attempt number.
const defaultBackoffTableMin = "0,0,5,10,30,60,120"

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	VoiceAPIURL string `env:"VOICE_API_URL,required=true"`
	VoiceAPIKey string `env:"VOICE_API_KEY"`
	CRMAPIURL   string `env:"CRM_API_URL,required=true"`
	CallbackURL string `env:"CALLBACK_URL,required=true"`
	SMSAPIURL   string `env:"SMS_API_URL"`

	RedialEnabled         bool   `env:"REDIAL_ENABLED,default=true"`
	MaxCallsPerDay        int    `env:"MAX_CALLS_PER_DAY,default=4"`
	MaxTotalAttempts      int    `env:"MAX_TOTAL_ATTEMPTS,default=7"`
	BackoffTableMin       string `env:"BACKOFF_TABLE_MIN"`
	BackoffFloorMin       int    `env:"BACKOFF_FLOOR_MIN,default=2"`
	CallsPerSec           int    `env:"CALLS_PER_SEC,default=10"`
	MinNumberSpacingSec   int    `env:"MIN_NUMBER_SPACING_SEC,default=120"`
	SMSPerSec             int    `env:"SMS_PER_SEC,default=20"`
	SMSPerNumberPerDay    int    `env:"SMS_PER_NUMBER_PER_DAY,default=3"`
	FollowupSMSText       string `env:"FOLLOWUP_SMS_TEXT,default=Sorry we missed you! We will try you again soon."`
	BusinessHoursStart    int    `env:"BUSINESS_HOURS_START,default=9"`
	BusinessHoursEnd      int    `env:"BUSINESS_HOURS_END,default=20"`
	BusinessTZ            string `env:"BUSINESS_TZ,default=America/New_York"`
	ScanIntervalSec       int    `env:"SCAN_INTERVAL_SEC,default=300"`
	ScanLimit             int    `env:"SCAN_LIMIT,default=500"`
	BlockedRetryDeltaMin  int    `env:"BLOCKED_RETRY_DELTA_MIN,default=1"`
	PendingMaxAgeMin      int    `env:"PENDING_MAX_AGE_MIN,default=30"`
	PostTransferMarginSec int    `env:"POST_TRANSFER_MARGIN_SEC,default=90"`
	DispatchTimeoutSec    int    `env:"DISPATCH_TIMEOUT_SEC,default=10"`
	ConsumerPrefetch      int    `env:"CONSUMER_PREFETCH,default=16"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.BusinessHoursStart < 0 || cfg.BusinessHoursStart > 23 ||
		cfg.BusinessHoursEnd < 1 || cfg.BusinessHoursEnd > 24 ||
		cfg.BusinessHoursStart >= cfg.BusinessHoursEnd {
		return nil, fmt.Errorf("invalid business hours window %d-%d", cfg.BusinessHoursStart, cfg.BusinessHoursEnd)
	}

	if _, err := cfg.BackoffTable(); err != nil {
		return nil, err
	}
	if _, err := cfg.BusinessLocation(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BackoffTable parses BACKOFF_TABLE_MIN into per-attempt wait durations.
func (c *Config) BackoffTable() ([]time.Duration, error) {
	raw := strings.TrimSpace(c.BackoffTableMin)
	if raw == "" {
		raw = defaultBackoffTableMin
	}

	parts := strings.Split(raw, ",")
	table := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		minutes, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid backoff table entry %q: %w", part, err)
		}
		if minutes < 0 {
			return nil, fmt.Errorf("negative backoff table entry %d", minutes)
		}
		table = append(table, time.Duration(minutes)*time.Minute)
	}

	return table, nil
}

func (c *Config) BusinessLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BusinessTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", c.BusinessTZ, err)
	}
	return loc, nil
}

func (c *Config) BackoffFloor() time.Duration {
	return time.Duration(c.BackoffFloorMin) * time.Minute
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSec) * time.Second
}

func (c *Config) MinNumberSpacing() time.Duration {
	return time.Duration(c.MinNumberSpacingSec) * time.Second
}

func (c *Config) BlockedRetryDelta() time.Duration {
	return time.Duration(c.BlockedRetryDeltaMin) * time.Minute
}

func (c *Config) PendingMaxAge() time.Duration {
	return time.Duration(c.PendingMaxAgeMin) * time.Minute
}

func (c *Config) PostTransferMargin() time.Duration {
	return time.Duration(c.PostTransferMarginSec) * time.Second
}

func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSec) * time.Second
}
