package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime option the server recognizes. All values come
// from the environment with the CASTIVE_ prefix, e.g. CASTIVE_HTTP_PORT.
type Config struct {
	HTTPPort string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTIssuer       string
	AccessSecret    []byte
	RefreshSecret   []byte
	EmailSecret     []byte
	ResetSecret     []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	BaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// Load reads the configuration from the environment. The four token secrets
// are required; everything else has a development default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CASTIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_port", "4000")
	v.SetDefault("database_dsn", "host=localhost user=postgres password=postgres dbname=castive port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_issuer", "castive.me")
	v.SetDefault("access_token_ttl", 5*time.Minute)
	v.SetDefault("refresh_token_ttl", 365*24*time.Hour)
	v.SetDefault("reset_token_ttl", 15*time.Minute)
	v.SetDefault("base_url", "http://localhost:4000")
	v.SetDefault("smtp_host", "localhost")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("mail_from", "no-reply@castive.me")

	cfg := &Config{
		HTTPPort:        v.GetString("http_port"),
		DatabaseDSN:     v.GetString("database_dsn"),
		RedisAddr:       v.GetString("redis_addr"),
		RedisPassword:   v.GetString("redis_password"),
		RedisDB:         v.GetInt("redis_db"),
		JWTIssuer:       v.GetString("jwt_issuer"),
		AccessSecret:    []byte(v.GetString("jwt_access_secret")),
		RefreshSecret:   []byte(v.GetString("jwt_refresh_secret")),
		EmailSecret:     []byte(v.GetString("jwt_email_secret")),
		ResetSecret:     []byte(v.GetString("jwt_reset_secret")),
		AccessTokenTTL:  v.GetDuration("access_token_ttl"),
		RefreshTokenTTL: v.GetDuration("refresh_token_ttl"),
		ResetTokenTTL:   v.GetDuration("reset_token_ttl"),
		BaseURL:         v.GetString("base_url"),
		SMTPHost:        v.GetString("smtp_host"),
		SMTPPort:        v.GetInt("smtp_port"),
		SMTPUsername:    v.GetString("smtp_username"),
		SMTPPassword:    v.GetString("smtp_password"),
		MailFrom:        v.GetString("mail_from"),
	}

	for name, secret := range map[string][]byte{
		"CASTIVE_JWT_ACCESS_SECRET":  cfg.AccessSecret,
		"CASTIVE_JWT_REFRESH_SECRET": cfg.RefreshSecret,
		"CASTIVE_JWT_EMAIL_SECRET":   cfg.EmailSecret,
		"CASTIVE_JWT_RESET_SECRET":   cfg.ResetSecret,
	} {
		if len(secret) == 0 {
			return nil, fmt.Errorf("config: %s is required", name)
		}
	}

	return cfg, nil
}
