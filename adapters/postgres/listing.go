package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commerce/models"
)

var newestFirst = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "created_at"}, Desc: true},
	{Column: clause.Column{Name: "id"}, Desc: true},
}}

func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	const op = "Store.CreateListing"
	s.stamp(&listing.CreatedAt)
	result := s.db.WithContext(ctx).Omit(clause.Associations).Create(listing)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to create listing %s, err=%w", op, listing.Title, translate(result.Error))
	}
	return nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner").Preload("Category").Preload("Winner")
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	const op = "Store.GetListing"
	var listing models.Listing
	if result := withRelations(s.db.WithContext(ctx)).Where("id = ?", id).First(&listing); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to get listing %s, err=%w", op, id, translate(result.Error))
	}
	return &listing, nil
}

// GetListingDetail 額外載入出價者與留言者
func (s *Store) GetListingDetail(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	const op = "Store.GetListingDetail"
	var listing models.Listing
	result := withRelations(s.db.WithContext(ctx)).
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Order("amount DESC").Order("timestamp DESC")
		}).
		Preload("Bids.Bidder").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		Preload("Comments.Commenter").
		Where("id = ?", id).
		First(&listing)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to get listing %s, err=%w", op, id, translate(result.Error))
	}
	return &listing, nil
}

// ListActiveListings 列出進行中的商品，categoryID 不為 nil 時只列出該分類
func (s *Store) ListActiveListings(ctx context.Context, categoryID *uuid.UUID) ([]models.Listing, error) {
	const op = "Store.ListActiveListings"
	query := withRelations(s.db.WithContext(ctx)).Where("active = ?", true)
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	listings := make([]models.Listing, 0)
	if result := query.Order(newestFirst).Find(&listings); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list active listings, err=%w", op, result.Error)
	}
	return listings, nil
}

func (s *Store) ListListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	const op = "Store.ListListingsByOwner"
	listings := make([]models.Listing, 0)
	if result := withRelations(s.db.WithContext(ctx)).Where("owner_id = ?", ownerID).Order(newestFirst).Find(&listings); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list listings of %s, err=%w", op, ownerID, result.Error)
	}
	return listings, nil
}

func (s *Store) ListListingsWonBy(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	const op = "Store.ListListingsWonBy"
	listings := make([]models.Listing, 0)
	result := withRelations(s.db.WithContext(ctx)).
		Where("active = ? AND winner_id = ?", false, userID).
		Order(newestFirst).
		Find(&listings)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list listings won by %s, err=%w", op, userID, result.Error)
	}
	return listings, nil
}

type listingPrice struct {
	ListingID uuid.UUID
	Amount    models.Money
}

// CurrentPrices 回傳有出價商品的最高出價，沒有出價的商品不會出現在結果中
func (s *Store) CurrentPrices(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID]models.Money, error) {
	const op = "Store.CurrentPrices"
	prices := make(map[uuid.UUID]models.Money, len(listingIDs))
	if len(listingIDs) == 0 {
		return prices, nil
	}
	var rows []listingPrice
	result := s.db.WithContext(ctx).
		Model(&models.Bid{}).
		Select("listing_id, MAX(amount) AS amount").
		Where("listing_id IN ?", listingIDs).
		Group("listing_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to aggregate prices, err=%w", op, result.Error)
	}
	for _, row := range rows {
		prices[row.ListingID] = row.Amount
	}
	return prices, nil
}

// ListBids 依金額由高到低、同金額時較新的在前
func (s *Store) ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	const op = "Store.ListBids"
	bids := make([]models.Bid, 0)
	result := s.db.WithContext(ctx).
		Preload("Bidder").
		Where("listing_id = ?", listingID).
		Order("amount DESC").
		Order("timestamp DESC").
		Find(&bids)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list bids of %s, err=%w", op, listingID, result.Error)
	}
	return bids, nil
}

// ListBidsByBidder 依時間由新到舊，關聯的商品已載入
func (s *Store) ListBidsByBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error) {
	const op = "Store.ListBidsByBidder"
	bids := make([]models.Bid, 0)
	result := s.db.WithContext(ctx).
		Preload("Listing").
		Preload("Listing.Owner").
		Where("bidder_id = ?", bidderID).
		Order("timestamp DESC").
		Find(&bids)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list bids by %s, err=%w", op, bidderID, result.Error)
	}
	return bids, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	const op = "Store.CreateComment"
	s.stamp(&comment.Timestamp)
	if result := s.db.WithContext(ctx).Omit(clause.Associations).Create(comment); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create comment on %s, err=%w", op, comment.ListingID, translate(result.Error))
	}
	return nil
}

// ListComments 依時間由舊到新
func (s *Store) ListComments(ctx context.Context, listingID uuid.UUID) ([]models.Comment, error) {
	const op = "Store.ListComments"
	comments := make([]models.Comment, 0)
	result := s.db.WithContext(ctx).
		Preload("Commenter").
		Where("listing_id = ?", listingID).
		Order("timestamp ASC").
		Find(&comments)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list comments of %s, err=%w", op, listingID, result.Error)
	}
	return comments, nil
}
