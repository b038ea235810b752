package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"commerce/adapters/oidc"
	rds "commerce/adapters/redis"
	"commerce/adapters/s3"
	"commerce/adapters/session"
	"commerce/adapters/sse"
	"commerce/ledger"
	"commerce/notify"
)

type serverOptions struct {
	logger        *slog.Logger
	now           func() time.Time
	store         Store
	oidcProviders map[string]oidc.IProvider
	imageStore    s3.IImageStore
	priceCache    rds.IPriceCache
	sseManager    sse.IConnectionManager[BidEvent]
	sessionStore  session.IStore
	relay         notify.Relay
}

type ServerOption func(*serverOptions)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

func WithClock(now func() time.Time) ServerOption {
	return func(o *serverOptions) {
		o.now = now
	}
}

// WithStore 使用指定的資料層，不再依照設定建立資料庫連線
func WithStore(store Store) ServerOption {
	return func(o *serverOptions) {
		o.store = store
	}
}

func WithOIDCProvider(name string, provider oidc.IProvider) ServerOption {
	return func(o *serverOptions) {
		if o.oidcProviders == nil {
			o.oidcProviders = make(map[string]oidc.IProvider)
		}
		o.oidcProviders[name] = provider
	}
}

func WithImageStore(store s3.IImageStore) ServerOption {
	return func(o *serverOptions) {
		o.imageStore = store
	}
}

func WithPriceCache(cache rds.IPriceCache) ServerOption {
	return func(o *serverOptions) {
		o.priceCache = cache
	}
}

func WithSSEManager(manager sse.IConnectionManager[BidEvent]) ServerOption {
	return func(o *serverOptions) {
		o.sseManager = manager
	}
}

func WithSessionStore(store session.IStore) ServerOption {
	return func(o *serverOptions) {
		o.sessionStore = store
	}
}

func WithEmailRelay(relay notify.Relay) ServerOption {
	return func(o *serverOptions) {
		o.relay = relay
	}
}

type ServerImpl struct {
	store         Store
	ledger        *ledger.Ledger
	dispatcher    *notify.Dispatcher
	tokens        *TokenIssuer
	oidcProviders map[string]oidc.IProvider
	imageStore    s3.IImageStore
	priceCache    rds.IPriceCache
	sseManager    sse.IConnectionManager[BidEvent]
	sessionStore  session.IStore
	relay         notify.Relay
	descPolicy    *bluemonday.Policy
	commentPolicy *bluemonday.Policy
	logger        *slog.Logger
	now           func() time.Time

	// starters 與 closers 由 bootstrap 依照建立順序登記
	starters  []func() error
	closers   []func()
	closeOnce sync.Once

	config ServerConfig
}

func NewServer(config ServerConfig, opts ...ServerOption) (*ServerImpl, error) {
	const op = "NewServer"
	options := serverOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	registerValidation()

	tokens, err := NewTokenIssuer(config.Auth)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create token issuer, err=%w", op, err)
	}
	tokens.now = options.now

	impl := &ServerImpl{
		tokens:        tokens,
		descPolicy:    bluemonday.UGCPolicy(),
		commentPolicy: bluemonday.StrictPolicy(),
		logger:        options.logger.With(slog.String("caller", "Server")),
		now:           options.now,
		config:        config,
	}
	if err := impl.bootstrap(context.Background(), options); err != nil {
		impl.Close()
		return nil, fmt.Errorf("[%s] Fail to bootstrap server, err=%w", op, err)
	}

	// 初始化通知分派器
	dispatcherOpts := []notify.DispatcherOption{
		notify.WithLogger(options.logger),
		notify.WithBaseURL(config.BaseURL),
		notify.WithClock(options.now),
	}
	if impl.relay != nil {
		dispatcherOpts = append(dispatcherOpts, notify.WithEmailRelay(impl.relay))
	}
	impl.dispatcher, err = notify.NewDispatcher(impl.store, dispatcherOpts...)
	if err != nil {
		impl.Close()
		return nil, fmt.Errorf("[%s] Fail to create notification dispatcher, err=%w", op, err)
	}
	impl.onStart(func() error {
		impl.dispatcher.Start()
		return nil
	})
	impl.onClose(impl.dispatcher.Close)

	// 初始化拍賣帳本
	impl.ledger, err = ledger.New(
		impl.store,
		ledger.WithLogger(options.logger),
		ledger.WithClock(options.now),
		ledger.WithNotifier(impl.dispatcher),
		ledger.WithObserver(&bidObserver{
			users:      impl.store,
			priceCache: impl.priceCache,
			sseManager: impl.sseManager,
			logger:     options.logger.With(slog.String("caller", "BidObserver")),
		}),
	)
	if err != nil {
		impl.Close()
		return nil, fmt.Errorf("[%s] Fail to create ledger, err=%w", op, err)
	}
	return impl, nil
}

func (impl *ServerImpl) onStart(fn func() error) {
	impl.starters = append(impl.starters, fn)
}

func (impl *ServerImpl) onClose(fn func()) {
	impl.closers = append(impl.closers, fn)
}

// Start 啟動背景元件，例如 SSE 管理器、通知分派器與寄信 worker
func (impl *ServerImpl) Start() error {
	const op = "Start"
	for _, start := range impl.starters {
		if err := start(); err != nil {
			return fmt.Errorf("[%s] Fail to start background worker, err=%w", op, err)
		}
	}
	impl.logger.Info("server started")
	return nil
}

// Close 以建立的相反順序關閉所有元件
func (impl *ServerImpl) Close() {
	impl.closeOnce.Do(func() {
		for i := len(impl.closers) - 1; i >= 0; i-- {
			impl.closers[i]()
		}
		impl.logger.Info("server closed")
	})
}

func (impl *ServerImpl) Router() *gin.Engine {
	router := gin.Default()
	router.Use(impl.Authenticate())

	auth := router.Group("/auth")
	auth.POST("/register", impl.PostAuthRegister)
	auth.POST("/login", impl.PostAuthLogin)
	auth.GET("/logout", impl.GetAuthLogout)
	sso := auth.Group("/sso/:provider", impl.SessionMiddleware())
	sso.GET("/login", impl.GetAuthSsoProviderLogin)
	sso.GET("/callback", impl.GetAuthSsoProviderCallback)

	user := router.Group("/user", impl.RequireLogin())
	user.GET("/info", impl.GetUserInfo)
	user.PATCH("/info", impl.PatchUserInfo)

	router.GET("/listings", impl.GetListings)
	router.POST("/listings", impl.RequireLogin(), impl.PostListing)
	router.GET("/listings/:id", impl.GetListing)
	router.GET("/listings/:id/events", impl.GetListingEvents)
	listing := router.Group("/listings/:id", impl.RequireLogin())
	listing.POST("/bids", impl.PostListingBid)
	listing.POST("/close", impl.PostListingClose)
	listing.POST("/watch", impl.PostListingWatch)
	listing.POST("/comments", impl.PostListingComment)

	router.GET("/categories", impl.GetCategories)
	router.GET("/categories/:id/listings", impl.GetCategoryListings)

	account := router.Group("", impl.RequireLogin())
	account.GET("/watchlist", impl.GetWatchlist)
	account.GET("/activity", impl.GetActivity)
	account.GET("/notifications", impl.GetNotifications)
	account.GET("/notifications/unread", impl.GetNotificationsUnread)
	account.POST("/notifications/read", impl.PostNotificationsRead)
	account.POST("/images", impl.PostImage)

	admin := router.Group("/admin", impl.RequireAdmin())
	admin.POST("/listings/close", impl.PostAdminListingsClose)
	admin.POST("/listings/reopen", impl.PostAdminListingsReopen)
	admin.POST("/categories", impl.PostAdminCategory)

	return router
}
