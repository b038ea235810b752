package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"commerce/models"
)

// Store 是行程內的資料儲存，實作與 postgres store 相同的介面
// 商品鎖以每個商品一把 mutex 模擬 SELECT ... FOR UPDATE
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]models.User
	providers     map[uuid.UUID]models.SsoProvider
	identities    map[uuid.UUID]models.UserIdentity
	categories    map[uuid.UUID]models.Category
	listings      map[uuid.UUID]models.Listing
	bids          map[uuid.UUID][]models.Bid
	comments      map[uuid.UUID][]models.Comment
	watchlist     map[uuid.UUID]models.WatchlistEntry
	notifications map[uuid.UUID]models.Notification
	images        map[uuid.UUID]models.Image

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	now func() time.Time
}

type Option func(*Store)

// WithClock 替換寫入時間的來源
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		users:         make(map[uuid.UUID]models.User),
		providers:     make(map[uuid.UUID]models.SsoProvider),
		identities:    make(map[uuid.UUID]models.UserIdentity),
		categories:    make(map[uuid.UUID]models.Category),
		listings:      make(map[uuid.UUID]models.Listing),
		bids:          make(map[uuid.UUID][]models.Bid),
		comments:      make(map[uuid.UUID][]models.Comment),
		watchlist:     make(map[uuid.UUID]models.WatchlistEntry),
		notifications: make(map[uuid.UUID]models.Notification),
		images:        make(map[uuid.UUID]models.Image),
		locks:         make(map[uuid.UUID]*sync.Mutex),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now()
	}
}

// ---------- users ----------

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(user)
}

func (s *Store) createUserLocked(user *models.User) error {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return models.ErrDuplicate
		}
	}
	models.EnsureID(&user.ID)
	s.stamp(&user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userLocked(id)
}

func (s *Store) userLocked(id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) UpdateUserEmail(_ context.Context, id uuid.UUID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Email = email
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

func (s *Store) GetOrCreateSsoProvider(_ context.Context, name string) (*models.SsoProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.providers {
		if p.Name == name {
			return &p, nil
		}
	}
	p := models.SsoProvider{Name: name}
	models.EnsureID(&p.ID)
	s.providers[p.ID] = p
	return &p, nil
}

func (s *Store) GetUserByIdentity(_ context.Context, providerID uuid.UUID, identity string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.identities {
		if i.SsoProviderID == providerID && i.Identity == identity {
			return s.userLocked(i.UserID)
		}
	}
	return nil, models.ErrNotFound
}

// CreateUserWithIdentity 同時建立使用者與 SSO 身份
func (s *Store) CreateUserWithIdentity(_ context.Context, user *models.User, identity *models.UserIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.identities {
		if i.SsoProviderID == identity.SsoProviderID && i.Identity == identity.Identity {
			return models.ErrDuplicate
		}
	}
	if err := s.createUserLocked(user); err != nil {
		return err
	}
	identity.UserID = user.ID
	models.EnsureID(&identity.ID)
	s.identities[identity.ID] = *identity
	return nil
}

// ---------- categories ----------

func (s *Store) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := lo.Values(s.categories)
	slices.SortFunc(result, func(a, b models.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetCategory(_ context.Context, id uuid.UUID) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Name == category.Name {
			return models.ErrDuplicate
		}
	}
	models.EnsureID(&category.ID)
	s.categories[category.ID] = *category
	return nil
}

// EnsureCategories 建立尚不存在的分類
func (s *Store) EnsureCategories(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := s.CreateCategory(ctx, &models.Category{Name: name}); err != nil && !errors.Is(err, models.ErrDuplicate) {
			return err
		}
	}
	return nil
}
