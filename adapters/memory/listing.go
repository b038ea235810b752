package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"commerce/models"
)

func (s *Store) CreateListing(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[listing.OwnerID]; !ok {
		return models.ErrNotFound
	}
	if listing.CategoryID != nil {
		if _, ok := s.categories[*listing.CategoryID]; !ok {
			return models.ErrNotFound
		}
	}
	models.EnsureID(&listing.ID)
	s.stamp(&listing.CreatedAt)
	stored := *listing
	stored.Owner = models.User{}
	stored.Category, stored.Winner, stored.Bids, stored.Comments = nil, nil, nil, nil
	s.listings[listing.ID] = stored
	return nil
}

// hydrateLocked 回傳載入關聯後的複本
func (s *Store) hydrateLocked(l models.Listing) models.Listing {
	l.Owner = s.users[l.OwnerID]
	if l.CategoryID != nil {
		if c, ok := s.categories[*l.CategoryID]; ok {
			l.Category = &c
		} else {
			l.CategoryID = nil
		}
	}
	if l.WinnerID != nil {
		if w, ok := s.users[*l.WinnerID]; ok {
			l.Winner = &w
		}
	}
	return l
}

func (s *Store) GetListing(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	l = s.hydrateLocked(l)
	return &l, nil
}

// GetListingDetail 與 GetListing 相同，關聯都已載入
func (s *Store) GetListingDetail(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.GetListing(ctx, id)
}

func newestFirst(a, b models.Listing) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

func (s *Store) filterListings(match func(models.Listing) bool) []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Listing, 0)
	for _, l := range s.listings {
		if match(l) {
			result = append(result, s.hydrateLocked(l))
		}
	}
	slices.SortFunc(result, newestFirst)
	return result
}

// ListActiveListings 列出進行中的商品，categoryID 不為 nil 時只列出該分類
func (s *Store) ListActiveListings(_ context.Context, categoryID *uuid.UUID) ([]models.Listing, error) {
	return s.filterListings(func(l models.Listing) bool {
		if !l.Active {
			return false
		}
		return categoryID == nil || (l.CategoryID != nil && *l.CategoryID == *categoryID)
	}), nil
}

func (s *Store) ListListingsByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	return s.filterListings(func(l models.Listing) bool {
		return l.OwnerID == ownerID
	}), nil
}

func (s *Store) ListListingsWonBy(_ context.Context, userID uuid.UUID) ([]models.Listing, error) {
	return s.filterListings(func(l models.Listing) bool {
		return !l.Active && l.WinnerID != nil && *l.WinnerID == userID
	}), nil
}

// CurrentPrices 回傳有出價商品的最高出價，沒有出價的商品不會出現在結果中
func (s *Store) CurrentPrices(_ context.Context, listingIDs []uuid.UUID) (map[uuid.UUID]models.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[uuid.UUID]models.Money, len(listingIDs))
	for _, id := range listingIDs {
		if highest := highestOf(s.bids[id]); highest != nil {
			result[id] = highest.Amount
		}
	}
	return result, nil
}

// ListBids 依金額由高到低、同金額時較新的在前
func (s *Store) ListBids(_ context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := lo.Map(s.bids[listingID], func(b models.Bid, _ int) models.Bid {
		if b.BidderID != nil {
			if u, ok := s.users[*b.BidderID]; ok {
				b.Bidder = &u
			}
		}
		return b
	})
	slices.SortFunc(result, func(a, b models.Bid) int {
		if a.Amount != b.Amount {
			if a.Amount > b.Amount {
				return -1
			}
			return 1
		}
		return b.Timestamp.Compare(a.Timestamp)
	})
	return result, nil
}

// ListBidsByBidder 依時間由新到舊，關聯的商品已載入
func (s *Store) ListBidsByBidder(_ context.Context, bidderID uuid.UUID) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Bid, 0)
	for listingID, bids := range s.bids {
		for _, b := range bids {
			if b.BidderID == nil || *b.BidderID != bidderID {
				continue
			}
			l := s.hydrateLocked(s.listings[listingID])
			b.Listing = &l
			result = append(result, b)
		}
	}
	slices.SortFunc(result, func(a, b models.Bid) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return result, nil
}

func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[comment.ListingID]; !ok {
		return models.ErrNotFound
	}
	models.EnsureID(&comment.ID)
	s.stamp(&comment.Timestamp)
	stored := *comment
	stored.Commenter = models.User{}
	s.comments[comment.ListingID] = append(s.comments[comment.ListingID], stored)
	return nil
}

// ListComments 依時間由舊到新
func (s *Store) ListComments(_ context.Context, listingID uuid.UUID) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := lo.Map(s.comments[listingID], func(c models.Comment, _ int) models.Comment {
		c.Commenter = s.users[c.CommenterID]
		return c
	})
	slices.SortStableFunc(result, func(a, b models.Comment) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return result, nil
}
