package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commerce/models"
)

// ToggleWatch 切換關注狀態，回傳切換後是否關注中
func (s *Store) ToggleWatch(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	const op = "Store.ToggleWatch"
	watching := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if result := tx.Select("id").Where("id = ?", listingID).First(&listing); result.Error != nil {
			return translate(result.Error)
		}
		result := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&models.WatchlistEntry{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		entry := models.WatchlistEntry{UserID: userID, ListingID: listingID, AddedAt: s.options.now()}
		if result := tx.Omit(clause.Associations).Create(&entry); result.Error != nil {
			return translate(result.Error)
		}
		watching = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("[%s] Fail to toggle watch on %s, err=%w", op, listingID, err)
	}
	return watching, nil
}

func (s *Store) IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	const op = "Store.IsWatching"
	var count int64
	result := s.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("[%s] Fail to count watchlist, err=%w", op, result.Error)
	}
	return count > 0, nil
}

// ListWatchlist 依加入時間由新到舊
func (s *Store) ListWatchlist(ctx context.Context, userID uuid.UUID) ([]models.WatchlistEntry, error) {
	const op = "Store.ListWatchlist"
	entries := make([]models.WatchlistEntry, 0)
	result := s.db.WithContext(ctx).
		Preload("Listing").
		Preload("Listing.Owner").
		Preload("Listing.Category").
		Preload("Listing.Winner").
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list watchlist of %s, err=%w", op, userID, result.Error)
	}
	return entries, nil
}

func (s *Store) CreateNotification(ctx context.Context, notification *models.Notification) error {
	const op = "Store.CreateNotification"
	s.stamp(&notification.CreatedAt)
	if result := s.db.WithContext(ctx).Omit(clause.Associations).Create(notification); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create notification for %s, err=%w", op, notification.RecipientID, translate(result.Error))
	}
	return nil
}

// ListNotifications 依建立時間由新到舊，limit <= 0 代表不限制
func (s *Store) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	const op = "Store.ListNotifications"
	query := s.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	notifications := make([]models.Notification, 0)
	if result := query.Find(&notifications); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list notifications of %s, err=%w", op, recipientID, result.Error)
	}
	return notifications, nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	const op = "Store.CountUnread"
	var count int64
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to count unread notifications, err=%w", op, result.Error)
	}
	return count, nil
}

func (s *Store) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	const op = "Store.MarkAllRead"
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to mark notifications read, err=%w", op, result.Error)
	}
	return result.RowsAffected, nil
}

// MarkListingRead 將某個商品相關的通知標記為已讀，用於使用者瀏覽商品頁時
func (s *Store) MarkListingRead(ctx context.Context, recipientID, listingID uuid.UUID) (int64, error) {
	const op = "Store.MarkListingRead"
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND listing_id = ? AND read = ?", recipientID, listingID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to mark notifications of %s read, err=%w", op, listingID, result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) CreateImage(ctx context.Context, image *models.Image) error {
	const op = "Store.CreateImage"
	s.stamp(&image.CreatedAt)
	if result := s.db.WithContext(ctx).Omit(clause.Associations).Create(image); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create image, err=%w", op, translate(result.Error))
	}
	return nil
}

func (s *Store) CountImagesSince(ctx context.Context, uploaderID uuid.UUID, since time.Time) (int64, error) {
	const op = "Store.CountImagesSince"
	var count int64
	result := s.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("uploader_id = ? AND created_at >= ?", uploaderID, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to count uploaded images, err=%w", op, result.Error)
	}
	return count, nil
}

