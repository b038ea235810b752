package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commerce/ledger"
	"commerce/models"
)

var _ ledger.Store = (*Store)(nil)

func highestBid(db *gorm.DB, listingID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	result := db.
		Where("listing_id = ?", listingID).
		Order("amount DESC").
		Order("timestamp ASC").
		Order("id ASC").
		Limit(1).
		Find(&bid)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &bid, nil
}

// HighestBid 同金額時較早的出價優先，沒有出價時回傳 nil
func (s *Store) HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	const op = "Store.HighestBid"
	bid, err := highestBid(s.db.WithContext(ctx), listingID)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to get highest bid of %s, err=%w", op, listingID, err)
	}
	return bid, nil
}

// WithListingLock 在交易內以 SELECT ... FOR UPDATE 鎖定商品後執行 fn
// fn 回傳錯誤時整個交易回滾
func (s *Store) WithListingLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx ledger.Tx, listing *models.Listing) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var listing models.Listing
		result := db.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&listing)
		if result.Error != nil {
			return translate(result.Error)
		}
		owner, err := getUser(db, listing.OwnerID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if owner != nil {
			listing.Owner = *owner
		}
		return fn(ctx, &gormTx{store: s, db: db}, &listing)
	})
}

// gormTx 是持有商品鎖的交易
type gormTx struct {
	store *Store
	db    *gorm.DB
}

func (t *gormTx) HighestBid(_ context.Context, listingID uuid.UUID) (*models.Bid, error) {
	return highestBid(t.db, listingID)
}

func (t *gormTx) CreateBid(_ context.Context, bid *models.Bid) error {
	t.store.stamp(&bid.Timestamp)
	return translate(t.db.Omit(clause.Associations).Create(bid).Error)
}

func (t *gormTx) SetAuctionState(_ context.Context, listingID uuid.UUID, active bool, winnerID *uuid.UUID) error {
	values := map[string]any{"active": active, "winner_id": nil}
	if winnerID != nil {
		values["winner_id"] = *winnerID
	}
	result := t.db.Model(&models.Listing{}).Where("id = ?", listingID).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (t *gormTx) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	return getUser(t.db, id)
}
