package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"commerce/models"
)

// Config 是連線 postgres 所需的參數
type Config struct {
	User         string
	Password     string
	Host         string
	Port         int
	Database     string
	Schema       string
	MaxOpenConns int
}

func (c Config) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
	if c.Schema != "" {
		dsn += "&search_path=" + c.Schema
	}
	return dsn
}

// GormConfig 回傳共用的 gorm 設定，資料表會加上 schema 前綴
func GormConfig(schemaName string) *gorm.Config {
	naming := schema.NamingStrategy{}
	if schemaName != "" {
		naming.TablePrefix = schemaName + "."
	}
	return &gorm.Config{
		TranslateError: true,
		NamingStrategy: naming,
	}
}

// Open 建立資料庫連線並設定連線池
func Open(config Config) (*gorm.DB, error) {
	const op = "postgres.Open"
	db, err := gorm.Open(postgres.Open(config.DSN()), GormConfig(config.Schema))
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to get sql.DB, err=%w", op, err)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxOpenConns / 2)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

type storeOptions struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*storeOptions)

func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// WithClock 替換寫入時間的來源
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		o.now = now
	}
}

// Store 是以 gorm 實作的資料儲存
// 商品鎖使用 SELECT ... FOR UPDATE，在同一個交易內完成驗證與寫入
type Store struct {
	db      *gorm.DB
	logger  *slog.Logger
	options storeOptions
}

func NewStore(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	options := storeOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{
		db:      db,
		logger:  options.logger.With(slog.String("caller", "PostgresStore")),
		options: options,
	}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.options.now()
	}
}

// translate 將 gorm 的錯誤轉換成儲存層共用的錯誤
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return models.ErrNotFound
	default:
		return err
	}
}
