package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	Timezone string

	JudgeProvider    string
	OpenAIAPIKey     string
	JudgeModel       string
	JudgeVisionModel string
	JudgeMaxTokens   int
	JudgeTemperature float32
	JudgeTimeout     time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	FrontendURL  string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	StatsCacheTTL      time.Duration
	DigestCron         string
	StreakSweepCron    string
	MinSolutionLength  int
	SubmitRateLimit    int
	SubmitRateWindow   time.Duration
	NotificationPause  time.Duration
	LeaderboardDefault int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Location resolves the configured server timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROMPTPAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PromptPal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("timezone", "Europe/Berlin")
	v.SetDefault("judge.provider", "openai")
	v.SetDefault("judge.model", "gpt-4o-mini")
	v.SetDefault("judge.max_tokens", 2000)
	v.SetDefault("judge.timeout", "60s")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("cloudinary.folder", "promptpal/submissions")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("digest.cron", "20 10 * * *")
	v.SetDefault("streak.sweep_cron", "5 0 * * *")
	v.SetDefault("solution.min_length", 10)
	v.SetDefault("submit.rate_limit", 10)
	v.SetDefault("submit.rate_window", "1m")
	v.SetDefault("notification.pause", "100ms")
	v.SetDefault("leaderboard.default_limit", 10)

	judgeTimeout, err := time.ParseDuration(v.GetString("judge.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("stats.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("submit.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	pause, err := time.ParseDuration(v.GetString("notification.pause"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid notification pause: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		Timezone:            v.GetString("timezone"),
		JudgeProvider:       strings.ToLower(v.GetString("judge.provider")),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		JudgeModel:          v.GetString("judge.model"),
		JudgeVisionModel:    v.GetString("judge.vision_model"),
		JudgeMaxTokens:      v.GetInt("judge.max_tokens"),
		JudgeTemperature:    float32(v.GetFloat64("judge.temperature")),
		JudgeTimeout:        judgeTimeout,
		SMTPHost:            v.GetString("smtp.host"),
		SMTPPort:            v.GetInt("smtp.port"),
		SMTPUser:            v.GetString("smtp.user"),
		SMTPPassword:        v.GetString("smtp.password"),
		EmailFrom:           v.GetString("email.from"),
		FrontendURL:         v.GetString("frontend.url"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		StatsCacheTTL:       cacheTTL,
		DigestCron:          v.GetString("digest.cron"),
		StreakSweepCron:     v.GetString("streak.sweep_cron"),
		MinSolutionLength:   v.GetInt("solution.min_length"),
		SubmitRateLimit:     v.GetInt("submit.rate_limit"),
		SubmitRateWindow:    rateWindow,
		NotificationPause:   pause,
		LeaderboardDefault:  v.GetInt("leaderboard.default_limit"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MinSolutionLength <= 0 {
		cfg.MinSolutionLength = 10
	}

	return cfg, nil
}
