package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"commerce/adapters/mail"
	"commerce/adapters/postgres"
	"commerce/adapters/s3"
	"commerce/api"
)

func ParseArgs() (Args, error) {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("base-url", "http://localhost:8080", "")
	pflag.String("instance-id", "", "")
	pflag.String("store", api.StoreKindPostgres, "postgres or memory")
	pflag.StringSlice("seed-categories", nil, "")

	// auth config
	pflag.String("auth-private-key-seed", "", "base64 encoded ed25519 seed")
	pflag.String("auth-issuer", "commerce", "")
	pflag.String("auth-audience", "commerce", "")
	pflag.Duration("auth-expire-duration", 3*time.Hour, "")

	// oidc config, every provider reads oidc-<provider>-issuer-url, -client-id, -client-secret
	pflag.StringSlice("oidc-providers", nil, "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-region", "auto", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")
	pflag.Int64("s3-rate-limit-per-hour", 20, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")
	pflag.Int("db-max-open-conns", 20, "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "commerce:", "")
	pflag.String("redis-consumer-group", "commerce", "")
	pflag.Duration("redis-price-cache-ttl", 24*time.Hour, "")

	// redis stream keys
	pflag.String("redis-stream-key-for-sse", "commerce-shared-sse-stream", "")
	pflag.String("redis-stream-key-for-mail", "commerce-mail-stream", "")

	// session config
	pflag.String("session-cookie-key", "session_id", "")
	pflag.Duration("session-cookie-max-age", 10*time.Minute, "")
	pflag.Bool("session-cookie-secure", true, "")

	// mail config
	pflag.Bool("mail-enabled", false, "")
	pflag.String("mail-from", "", "")
	pflag.String("smtp-host", "", "")
	pflag.Int("smtp-port", 587, "")
	pflag.String("smtp-username", "", "")
	pflag.String("smtp-password", "", "")

	// bind pflag to viper
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return Args{}, err
	}
	viper.AutomaticEnv()
	viper.SetEnvPrefix("COMMERCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	key, err := decodePrivateKey(viper.GetString("auth-private-key-seed"))
	if err != nil {
		return Args{}, err
	}

	// initial arguments
	baseURL := viper.GetString("base-url")
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			ID:             viper.GetString("instance-id"),
			BaseURL:        baseURL,
			Store:          viper.GetString("store"),
			SeedCategories: viper.GetStringSlice("seed-categories"),
			Auth: api.AuthConfig{
				PrivateKey:     key,
				Issuer:         viper.GetString("auth-issuer"),
				Audience:       viper.GetString("auth-audience"),
				ExpireDuration: viper.GetDuration("auth-expire-duration"),
			},
			OIDC: api.OIDCConfig{
				RedirectBaseURL: baseURL,
				Providers:       parseOIDCProviders(viper.GetStringSlice("oidc-providers")),
			},
			S3: api.S3Config{
				Config: s3.Config{
					Endpoint:        viper.GetString("s3-endpoint"),
					Region:          viper.GetString("s3-region"),
					Bucket:          viper.GetString("s3-bucket"),
					PublicBaseURL:   viper.GetString("s3-public-base-url"),
					AccessKeyID:     viper.GetString("s3-access-key-id"),
					SecretAccessKey: viper.GetString("s3-secret-access-key"),
				},
				RateLimitPerHour: viper.GetInt64("s3-rate-limit-per-hour"),
			},
			DB: postgres.Config{
				User:         viper.GetString("db-user"),
				Password:     viper.GetString("db-password"),
				Host:         viper.GetString("db-host"),
				Port:         viper.GetInt("db-port"),
				Database:     viper.GetString("db-database"),
				Schema:       viper.GetString("db-schema"),
				MaxOpenConns: viper.GetInt("db-max-open-conns"),
			},
			Redis: api.RedisConfig{
				Addr:          viper.GetString("redis-addr"),
				Password:      viper.GetString("redis-password"),
				DB:            viper.GetInt("redis-db"),
				KeyPrefix:     viper.GetString("redis-key-prefix"),
				ConsumerGroup: viper.GetString("redis-consumer-group"),
				PriceCacheTTL: viper.GetDuration("redis-price-cache-ttl"),
				StreamKeys: api.RedisStreamKeys{
					SSE:  viper.GetString("redis-stream-key-for-sse"),
					Mail: viper.GetString("redis-stream-key-for-mail"),
				},
			},
			Session: api.SessionConfig{
				KeyForCookie: viper.GetString("session-cookie-key"),
				CookieMaxAge: viper.GetDuration("session-cookie-max-age"),
				CookieSecure: viper.GetBool("session-cookie-secure"),
			},
			Mail: api.MailConfig{
				Enabled: viper.GetBool("mail-enabled"),
				SMTP: mail.Config{
					Host:     viper.GetString("smtp-host"),
					Port:     viper.GetInt("smtp-port"),
					Username: viper.GetString("smtp-username"),
					Password: viper.GetString("smtp-password"),
					From:     viper.GetString("mail-from"),
				},
			},
		},
	}, nil
}

func decodePrivateKey(seed string) (ed25519.PrivateKey, error) {
	if seed == "" {
		return nil, errors.New("auth-private-key-seed is required")
	}
	raw, err := base64.StdEncoding.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("fail to decode auth-private-key-seed, err=%w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("auth-private-key-seed must be %d bytes", ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

func parseOIDCProviders(names []string) map[string]api.OIDCProviderConfig {
	names = lo.Uniq(lo.Compact(lo.Map(names, func(name string, _ int) string {
		return strings.ToLower(strings.TrimSpace(name))
	})))
	return lo.SliceToMap(names, func(name string) (string, api.OIDCProviderConfig) {
		prefix := "oidc-" + name + "-"
		return name, api.OIDCProviderConfig{
			IssuerURL:    viper.GetString(prefix + "issuer-url"),
			ClientID:     viper.GetString(prefix + "client-id"),
			ClientSecret: viper.GetString(prefix + "client-secret"),
		}
	})
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() error {
	config := args.ServerConfig
	var errs []error
	if args.ServerURL == "" {
		errs = append(errs, errors.New("server-url is required"))
	}
	switch config.Store {
	case api.StoreKindMemory:
	case api.StoreKindPostgres:
		if config.DB.Host == "" || config.DB.Database == "" {
			errs = append(errs, errors.New("db-host and db-database are required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", config.Store))
	}
	for name, provider := range config.OIDC.Providers {
		if provider.IssuerURL == "" || provider.ClientID == "" || provider.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("oidc provider %q needs issuer-url, client-id and client-secret", name))
		}
	}
	if config.Mail.Enabled && (config.Mail.SMTP.Host == "" || config.Mail.SMTP.From == "") {
		errs = append(errs, errors.New("smtp-host and mail-from are required when mail is enabled"))
	}
	return errors.Join(errs...)
}
