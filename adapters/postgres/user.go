package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"commerce/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	const op = "Store.CreateUser"
	if err := s.createUser(s.db.WithContext(ctx), user); err != nil {
		return fmt.Errorf("[%s] Fail to create user %s, err=%w", op, user.Username, err)
	}
	return nil
}

// createUser 使用者名稱不分大小寫不可重複
func (s *Store) createUser(db *gorm.DB, user *models.User) error {
	var count int64
	if result := db.Model(&models.User{}).Where("LOWER(username) = LOWER(?)", user.Username).Count(&count); result.Error != nil {
		return translate(result.Error)
	}
	if count > 0 {
		return models.ErrDuplicate
	}
	s.stamp(&user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	return translate(db.Create(user).Error)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return getUser(s.db.WithContext(ctx), id)
}

func getUser(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	const op = "Store.GetUser"
	var user models.User
	if result := db.Where("id = ?", id).First(&user); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to get user %s, err=%w", op, id, translate(result.Error))
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "Store.GetUserByUsername"
	var user models.User
	if result := s.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username).First(&user); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to get user %s, err=%w", op, username, translate(result.Error))
	}
	return &user, nil
}

func (s *Store) UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) error {
	const op = "Store.UpdateUserEmail"
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"email":      email,
		"updated_at": s.options.now(),
	})
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update email of %s, err=%w", op, id, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("[%s] Fail to update email of %s, err=%w", op, id, models.ErrNotFound)
	}
	return nil
}

func (s *Store) GetOrCreateSsoProvider(ctx context.Context, name string) (*models.SsoProvider, error) {
	const op = "Store.GetOrCreateSsoProvider"
	provider := models.SsoProvider{Name: name}
	if result := s.db.WithContext(ctx).Where(models.SsoProvider{Name: name}).FirstOrCreate(&provider); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to find sso provider %s, err=%w", op, name, translate(result.Error))
	}
	return &provider, nil
}

func (s *Store) GetUserByIdentity(ctx context.Context, providerID uuid.UUID, identity string) (*models.User, error) {
	const op = "Store.GetUserByIdentity"
	var userIdentity models.UserIdentity
	result := s.db.WithContext(ctx).
		Preload("User").
		Where("sso_provider_id = ? AND identity = ?", providerID, identity).
		First(&userIdentity)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to get user identity, err=%w", op, translate(result.Error))
	}
	if userIdentity.User == nil {
		return nil, fmt.Errorf("[%s] Identity without user, err=%w", op, models.ErrNotFound)
	}
	return userIdentity.User, nil
}

// CreateUserWithIdentity 在同一個交易內建立使用者與 SSO 身份
func (s *Store) CreateUserWithIdentity(ctx context.Context, user *models.User, identity *models.UserIdentity) error {
	const op = "Store.CreateUserWithIdentity"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.createUser(tx, user); err != nil {
			return err
		}
		identity.UserID = user.ID
		identity.User = nil
		return translate(tx.Create(identity).Error)
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to create user with identity, err=%w", op, err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "Store.ListCategories"
	categories := make([]models.Category, 0)
	if result := s.db.WithContext(ctx).Order("name").Find(&categories); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list categories, err=%w", op, result.Error)
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	const op = "Store.GetCategory"
	var category models.Category
	if result := s.db.WithContext(ctx).Where("id = ?", id).First(&category); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to get category %s, err=%w", op, id, translate(result.Error))
	}
	return &category, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	const op = "Store.CreateCategory"
	if result := s.db.WithContext(ctx).Create(category); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create category %s, err=%w", op, category.Name, translate(result.Error))
	}
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
