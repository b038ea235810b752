package api

import (
	"crypto/ed25519"
	"time"

	"commerce/adapters/mail"
	"commerce/adapters/postgres"
	"commerce/adapters/s3"
)

const (
	StoreKindPostgres = "postgres"
	StoreKindMemory   = "memory"
)

type ServerConfig struct {
	// ID 是這個實例的名稱，作為 consumer group 中的 consumer 名稱
	ID string
	// BaseURL 用於 email 內的絕對連結
	BaseURL string
	// Store 選擇 postgres 或 memory
	Store          string
	SeedCategories []string

	Auth    AuthConfig
	OIDC    OIDCConfig
	S3      S3Config
	DB      postgres.Config
	Redis   RedisConfig
	Session SessionConfig
	Mail    MailConfig
}

type AuthConfig struct {
	PrivateKey     ed25519.PrivateKey
	Issuer         string
	Audience       string
	ExpireDuration time.Duration
}

type OIDCConfig struct {
	// RedirectBaseURL 加上 /auth/sso/<provider>/callback 就是登記在 provider 的 redirect URL
	RedirectBaseURL string
	Providers       map[string]OIDCProviderConfig
}

type OIDCProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

type S3Config struct {
	s3.Config
	RateLimitPerHour int64
}

// Enabled 沒有設定 bucket 時不提供圖片上傳
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	KeyPrefix     string
	ConsumerGroup string
	PriceCacheTTL time.Duration
	StreamKeys    RedisStreamKeys
}

// Enabled 沒有設定位址時只在單一實例內運作
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type RedisStreamKeys struct {
	SSE  string
	Mail string
}

type SessionConfig struct {
	KeyForCookie string
	CookieMaxAge time.Duration
	CookieSecure bool
}

type MailConfig struct {
	Enabled bool
	SMTP    mail.Config
}
