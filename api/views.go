package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"commerce/models"
)

type ListingSummary struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	ImageURL     string       `json:"image_url,omitempty"`
	StartingBid  models.Money `json:"starting_bid"`
	CurrentPrice models.Money `json:"current_price"`
	Category     string       `json:"category,omitempty"`
	Owner        string       `json:"owner"`
	Active       bool         `json:"active"`
	Winner       string       `json:"winner,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type BidView struct {
	ID        uuid.UUID    `json:"id"`
	ListingID uuid.UUID    `json:"listing_id"`
	Bidder    string       `json:"bidder"`
	Amount    models.Money `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type CommentView struct {
	ID        uuid.UUID `json:"id"`
	Commenter string    `json:"commenter"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ListingDetail struct {
	ListingSummary
	Description string        `json:"description"`
	Bids        []BidView     `json:"bids"`
	Comments    []CommentView `json:"comments"`
	Watching    bool          `json:"watching"`
	IsOwner     bool          `json:"is_owner"`
	IsWinner    bool          `json:"is_winner"`
}

type NotificationView struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ListingID *uuid.UUID `json:"listing_id,omitempty"`
	URL       string     `json:"url"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

func summarize(listing *models.Listing, price models.Money) ListingSummary {
	summary := ListingSummary{
		ID:           listing.ID,
		Title:        listing.Title,
		ImageURL:     listing.ImageURL,
		StartingBid:  listing.StartingBid,
		CurrentPrice: price,
		Owner:        listing.Owner.Username,
		Active:       listing.Active,
		CreatedAt:    listing.CreatedAt,
	}
	if listing.Category != nil {
		summary.Category = listing.Category.Name
	}
	if listing.Winner != nil {
		summary.Winner = listing.Winner.Username
	}
	return summary
}

func bidView(bid models.Bid) BidView {
	view := BidView{
		ID:        bid.ID,
		ListingID: bid.ListingID,
		Amount:    bid.Amount,
		Timestamp: bid.Timestamp,
	}
	// 出價者刪除帳號後保留出價紀錄
	if bid.Bidder != nil {
		view.Bidder = bid.Bidder.Username
	}
	return view
}

func notificationView(n models.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		ListingID: n.ListingID,
		URL:       n.URL,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// currentPrices 優先讀取 redis 快取，缺少的部分由資料庫補上並寫回快取
func (impl *ServerImpl) currentPrices(ctx context.Context, listings []models.Listing) (map[uuid.UUID]models.Money, error) {
	ids := lo.Map(listings, func(l models.Listing, _ int) uuid.UUID { return l.ID })
	prices := make(map[uuid.UUID]models.Money, len(ids))
	missing := ids
	if impl.priceCache != nil && len(ids) > 0 {
		cached, err := impl.priceCache.Get(ctx, ids...)
		if err != nil {
			impl.logger.Warn("fail to read cached prices", slog.Any("error", err))
		} else {
			prices = cached
			missing = lo.Filter(ids, func(id uuid.UUID, _ int) bool {
				_, ok := cached[id]
				return !ok
			})
		}
	}
	if len(missing) == 0 {
		return prices, nil
	}
	loaded, err := impl.store.CurrentPrices(ctx, missing)
	if err != nil {
		return nil, err
	}
	wanted := lo.SliceToMap(missing, func(id uuid.UUID) (uuid.UUID, struct{}) { return id, struct{}{} })
	for _, l := range listings {
		if _, ok := wanted[l.ID]; !ok {
			continue
		}
		price, ok := loaded[l.ID]
		if !ok {
			price = l.StartingBid
		}
		prices[l.ID] = price
		if impl.priceCache == nil {
			continue
		}
		// 價格只會上升，用 Raise 回填才不會蓋掉同時發生的出價
		if _, err := impl.priceCache.Raise(ctx, l.ID, price); err != nil {
			impl.logger.Warn("fail to backfill cached price", slog.String("listing", l.ID.String()), slog.Any("error", err))
		}
	}
	return prices, nil
}

func (impl *ServerImpl) summarizeAll(ctx context.Context, listings []models.Listing) ([]ListingSummary, error) {
	prices, err := impl.currentPrices(ctx, listings)
	if err != nil {
		return nil, err
	}
	return lo.Map(listings, func(l models.Listing, _ int) ListingSummary {
		return summarize(&l, prices[l.ID])
	}), nil
}
