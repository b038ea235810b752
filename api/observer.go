package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	rds "commerce/adapters/redis"
	"commerce/adapters/sse"
	"commerce/ledger"
	"commerce/models"
)

// BidEvent 是推送給商品頁面的即時出價
type BidEvent struct {
	Amount models.Money `json:"amount" msgpack:"amount"`
	Bidder string       `json:"bidder" msgpack:"bidder"`
	Time   time.Time    `json:"time" msgpack:"time"`
}

type userGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

var _ ledger.Observer = (*bidObserver)(nil)

// bidObserver 在出價成功後更新價格快取並推送事件，拍賣狀態改變時清除快取
type bidObserver struct {
	users      userGetter
	priceCache rds.IPriceCache
	sseManager sse.IConnectionManager[BidEvent]
	logger     *slog.Logger
}

func (o *bidObserver) BidAccepted(ctx context.Context, listing *models.Listing, bid *models.Bid) {
	logger := o.logger.With(slog.String("listing", listing.ID.String()))
	if o.priceCache != nil {
		if _, err := o.priceCache.Raise(ctx, listing.ID, bid.Amount); err != nil {
			logger.Warn("fail to raise cached price", slog.Any("error", err))
		}
	}
	if o.sseManager == nil {
		return
	}
	event := BidEvent{Amount: bid.Amount, Time: bid.Timestamp}
	if bid.BidderID != nil {
		if user, err := o.users.GetUser(ctx, *bid.BidderID); err == nil {
			event.Bidder = user.Username
		} else {
			logger.Warn("fail to load bidder", slog.Any("error", err))
		}
	}
	if err := o.sseManager.Publish(listing.ID.String(), event); err != nil {
		logger.Warn("fail to publish bid event", slog.Any("error", err))
	}
}

func (o *bidObserver) AuctionStateChanged(ctx context.Context, listing *models.Listing) {
	if o.priceCache == nil {
		return
	}
	if err := o.priceCache.Forget(ctx, listing.ID); err != nil {
		o.logger.Warn("fail to forget cached price", slog.String("listing", listing.ID.String()), slog.Any("error", err))
	}
}
