package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"commerce/adapters/mail"
	"commerce/adapters/memory"
	"commerce/adapters/oidc"
	"commerce/adapters/postgres"
	rds "commerce/adapters/redis"
	"commerce/adapters/s3"
	"commerce/adapters/sse"
	"commerce/notify"
)

var (
	_ Store = (*postgres.Store)(nil)
	_ Store = (*memory.Store)(nil)
)

// bootstrap 建立沒有透過 ServerOption 注入的元件
func (impl *ServerImpl) bootstrap(ctx context.Context, options serverOptions) error {
	const op = "bootstrap"
	logger := options.logger

	// 初始化資料層
	impl.store = options.store
	if impl.store == nil {
		store, err := impl.openStore(ctx)
		if err != nil {
			return err
		}
		impl.store = store
	}
	if len(impl.config.SeedCategories) > 0 {
		if err := impl.store.EnsureCategories(ctx, impl.config.SeedCategories); err != nil {
			return fmt.Errorf("[%s] Fail to seed categories, err=%w", op, err)
		}
	}

	// 初始化Redis連線
	var redisClient *redis.Client
	if impl.config.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     impl.config.Redis.Addr,
			Password: impl.config.Redis.Password,
			DB:       impl.config.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("[%s] Fail to connect to redis, err=%w", op, err)
		}
		impl.onClose(func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("fail to close redis client", slog.Any("error", err))
			}
		})
	}
	prefix := impl.config.Redis.KeyPrefix

	// 初始化價格快取
	impl.priceCache = options.priceCache
	if impl.priceCache == nil && redisClient != nil {
		cache, err := rds.NewPriceCache(
			redisClient,
			rds.WithPriceCachePrefix(prefix+"price:"),
			rds.WithPriceCacheTTL(impl.config.Redis.PriceCacheTTL),
		)
		if err != nil {
			return fmt.Errorf("[%s] Fail to create price cache, err=%w", op, err)
		}
		impl.priceCache = cache
	}

	// 初始化session儲存
	impl.sessionStore = options.sessionStore
	if impl.sessionStore == nil {
		if redisClient != nil {
			impl.sessionStore = rds.NewStore(
				redisClient,
				rds.WithStorePrefix(prefix+"session:"),
				rds.WithStoreTTL(impl.config.Session.CookieMaxAge),
			)
		} else {
			impl.sessionStore = memory.NewSessionStore()
		}
	}

	// 初始化SSE管理器
	impl.sseManager = options.sseManager
	if impl.sseManager == nil {
		manager, err := impl.newSSEManager(redisClient, logger)
		if err != nil {
			return err
		}
		impl.sseManager = manager
	}
	impl.onStart(func() error {
		impl.sseManager.Start()
		return nil
	})
	impl.onClose(impl.sseManager.Done)

	// 初始化email轉送
	impl.relay = options.relay
	if impl.relay == nil && impl.config.Mail.Enabled {
		relay, err := impl.newMailRelay(ctx, redisClient, logger)
		if err != nil {
			return err
		}
		impl.relay = relay
	}

	// 初始化OIDC提供者
	impl.oidcProviders = options.oidcProviders
	if impl.oidcProviders == nil {
		impl.oidcProviders = make(map[string]oidc.IProvider, len(impl.config.OIDC.Providers))
		for name, providerConfig := range impl.config.OIDC.Providers {
			provider, err := oidc.NewProvider(ctx, providerConfig.IssuerURL, oidc.ClientConfig{
				ID:          providerConfig.ClientID,
				Secret:      providerConfig.ClientSecret,
				RedirectURL: fmt.Sprintf("%s/auth/sso/%s/callback", impl.config.OIDC.RedirectBaseURL, name),
			})
			if err != nil {
				return fmt.Errorf("[%s] Fail to initial OIDC provider, provider=%s, err=%w", op, name, err)
			}
			impl.oidcProviders[name] = provider
		}
	}

	// 初始化S3客戶端
	impl.imageStore = options.imageStore
	if impl.imageStore == nil && impl.config.S3.Enabled() {
		client, err := s3.NewClient(ctx, impl.config.S3.Config)
		if err != nil {
			return fmt.Errorf("[%s] Fail to create S3 client, err=%w", op, err)
		}
		imageStore, err := s3.NewImageStore(client, impl.config.S3.Bucket, impl.config.S3.PublicBaseURL)
		if err != nil {
			return fmt.Errorf("[%s] Fail to create image store, err=%w", op, err)
		}
		impl.imageStore = imageStore
	}
	return nil
}

func (impl *ServerImpl) openStore(ctx context.Context) (Store, error) {
	const op = "openStore"
	switch impl.config.Store {
	case StoreKindMemory:
		return memory.NewStore(memory.WithClock(impl.now)), nil
	case StoreKindPostgres, "":
	default:
		return nil, fmt.Errorf("[%s] Unknown store kind %q", op, impl.config.Store)
	}

	db, err := postgres.Open(impl.config.DB)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to open database, err=%w", op, err)
	}
	impl.onClose(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store, err := postgres.NewStore(db, postgres.WithLogger(impl.logger), postgres.WithClock(impl.now))
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create store, err=%w", op, err)
	}
	if err := store.Migrate(ctx, impl.config.DB.Schema); err != nil {
		return nil, fmt.Errorf("[%s] Fail to migrate database, err=%w", op, err)
	}
	return store, nil
}

// newSSEManager 有 redis 時透過共用的 stream 讓所有實例都收到出價事件
func (impl *ServerImpl) newSSEManager(client *redis.Client, logger *slog.Logger) (sse.IConnectionManager[BidEvent], error) {
	const op = "newSSEManager"
	opts := []sse.ManagerOption[BidEvent]{sse.WithLogger[BidEvent](logger)}
	if client != nil {
		stream := impl.config.Redis.StreamKeys.SSE
		consumer, err := rds.NewConsumer(
			client,
			stream,
			rds.WithConsumerLogger[sse.PublishRequest[BidEvent]](logger),
		)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create consumer, err=%w", op, err)
		}
		producer, err := rds.NewProducer(
			client,
			stream,
			rds.WithProducerLogger[sse.PublishRequest[BidEvent]](logger),
			rds.WithProducerMaxLen[sse.PublishRequest[BidEvent]](10000),
		)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create producer, err=%w", op, err)
		}
		impl.onStart(func() error {
			producer.Start()
			return nil
		})
		impl.onClose(producer.Close)
		opts = append(opts, sse.WithSubscriber[BidEvent](consumer), sse.WithPublisher[BidEvent](producer))
	}
	manager, err := sse.NewConnectionManager[BidEvent](opts...)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sse connection manager, err=%w", op, err)
	}
	return manager, nil
}

// newMailRelay 有 redis 時將 email 交給 stream，由 consumer group 中的 worker 寄出
func (impl *ServerImpl) newMailRelay(ctx context.Context, client *redis.Client, logger *slog.Logger) (notify.Relay, error) {
	const op = "newMailRelay"
	sender, err := mail.NewSender(impl.config.Mail.SMTP, mail.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create mail sender, err=%w", op, err)
	}
	if client == nil {
		return notify.NewDirectRelay(sender), nil
	}

	stream := impl.config.Redis.StreamKeys.Mail
	group := impl.config.Redis.ConsumerGroup
	if err := rds.EnsureGroup(ctx, client, stream, group); err != nil {
		return nil, fmt.Errorf("[%s] Fail to create consumer group, err=%w", op, err)
	}
	producer, err := rds.NewProducer(client, stream, rds.WithProducerLogger[notify.EmailJob](logger))
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create producer, err=%w", op, err)
	}
	groupConsumer, err := rds.NewGroupConsumer(
		client,
		stream,
		group,
		impl.config.ID,
		rds.WithGroupConsumerLogger[notify.EmailJob](logger),
		rds.WithGroupConsumerStrictOrdering[notify.EmailJob](true),
		rds.WithGroupConsumerMutex[notify.EmailJob](rds.NewAutoRenewMutex(
			client,
			impl.config.Redis.KeyPrefix+"lock:mail-worker",
			rds.WithAutoRenewMutexSkipLockError(true),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create group consumer, err=%w", op, err)
	}
	worker, err := notify.NewMailWorker(groupConsumer, sender, logger)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create mail worker, err=%w", op, err)
	}
	impl.onStart(func() error {
		producer.Start()
		return worker.Start()
	})
	impl.onClose(func() {
		if err := worker.Close(); err != nil {
			logger.Warn("fail to close mail worker", slog.Any("error", err))
		}
		producer.Close()
	})
	return notify.NewStreamRelay(producer), nil
}
