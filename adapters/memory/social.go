package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"commerce/models"
)

func (s *Store) findWatchLocked(userID, listingID uuid.UUID) (uuid.UUID, bool) {
	for id, w := range s.watchlist {
		if w.UserID == userID && w.ListingID == listingID {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ToggleWatch 切換關注狀態，回傳切換後是否關注中
func (s *Store) ToggleWatch(_ context.Context, userID, listingID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[listingID]; !ok {
		return false, models.ErrNotFound
	}
	if id, ok := s.findWatchLocked(userID, listingID); ok {
		delete(s.watchlist, id)
		return false, nil
	}
	entry := models.WatchlistEntry{UserID: userID, ListingID: listingID, AddedAt: s.now()}
	models.EnsureID(&entry.ID)
	s.watchlist[entry.ID] = entry
	return true, nil
}

func (s *Store) IsWatching(_ context.Context, userID, listingID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.findWatchLocked(userID, listingID)
	return ok, nil
}

// ListWatchlist 依加入時間由新到舊
func (s *Store) ListWatchlist(_ context.Context, userID uuid.UUID) ([]models.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.WatchlistEntry, 0)
	for _, w := range s.watchlist {
		if w.UserID != userID {
			continue
		}
		w.Listing = s.hydrateLocked(s.listings[w.ListingID])
		result = append(result, w)
	}
	slices.SortFunc(result, func(a, b models.WatchlistEntry) int {
		return b.AddedAt.Compare(a.AddedAt)
	})
	return result, nil
}

func (s *Store) CreateNotification(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[notification.RecipientID]; !ok {
		return models.ErrNotFound
	}
	models.EnsureID(&notification.ID)
	s.stamp(&notification.CreatedAt)
	stored := *notification
	stored.Recipient, stored.Listing = models.User{}, nil
	s.notifications[notification.ID] = stored
	return nil
}

// ListNotifications 依建立時間由新到舊，limit <= 0 代表不限制
func (s *Store) ListNotifications(_ context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			result = append(result, n)
		}
	}
	slices.SortFunc(result, func(a, b models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) markRead(match func(models.Notification) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, n := range s.notifications {
		if !n.Read && match(n) {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count
}

func (s *Store) MarkAllRead(_ context.Context, recipientID uuid.UUID) (int64, error) {
	return s.markRead(func(n models.Notification) bool {
		return n.RecipientID == recipientID
	}), nil
}

// MarkListingRead 將某個商品相關的通知標記為已讀，用於使用者瀏覽商品頁時
func (s *Store) MarkListingRead(_ context.Context, recipientID, listingID uuid.UUID) (int64, error) {
	return s.markRead(func(n models.Notification) bool {
		return n.RecipientID == recipientID && n.ListingID != nil && *n.ListingID == listingID
	}), nil
}

func (s *Store) CreateImage(_ context.Context, image *models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	models.EnsureID(&image.ID)
	s.stamp(&image.CreatedAt)
	s.images[image.ID] = *image
	return nil
}

func (s *Store) CountImagesSince(_ context.Context, uploaderID uuid.UUID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, img := range s.images {
		if img.UploaderID == uploaderID && !img.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
