package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"commerce/models"
	"commerce/notify"
)

type ledgerOptions struct {
	logger           *slog.Logger
	now              func() time.Time
	notifier         Notifier
	observers        []Observer
	strictOpeningBid bool
}

type Option func(*ledgerOptions)

// WithLogger 設置日誌記錄器
func WithLogger(logger *slog.Logger) Option {
	return func(o *ledgerOptions) {
		o.logger = logger
	}
}

// WithClock 替換出價時間的來源
func WithClock(now func() time.Time) Option {
	return func(o *ledgerOptions) {
		o.now = now
	}
}

// WithNotifier 設置交易提交後的通知出口
func WithNotifier(notifier Notifier) Option {
	return func(o *ledgerOptions) {
		o.notifier = notifier
	}
}

// WithObserver 加入一個狀態變化的觀察者，可以重複使用
func WithObserver(observer Observer) Option {
	return func(o *ledgerOptions) {
		o.observers = append(o.observers, observer)
	}
}

// WithStrictOpeningBid 第一筆出價也必須高於起標價
func WithStrictOpeningBid(strict bool) Option {
	return func(o *ledgerOptions) {
		o.strictOpeningBid = strict
	}
}

// Ledger 負責出價與結標
// 所有會改變拍賣狀態的操作都在商品鎖內完成，通知與觀察者在交易提交後才觸發
type Ledger struct {
	store   Store
	logger  *slog.Logger
	options ledgerOptions
}

func New(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store cannot be nil")
	}
	options := ledgerOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Ledger{
		store:   store,
		logger:  options.logger.With(slog.String("caller", "Ledger")),
		options: options,
	}, nil
}

// Price 是商品目前的價格：最高出價，沒有出價時為起標價
func Price(listing *models.Listing, highest *models.Bid) models.Money {
	if highest == nil {
		return listing.StartingBid
	}
	return highest.Amount
}

// CurrentPrice 讀取商品目前的價格，不會取得鎖
func (l *Ledger) CurrentPrice(ctx context.Context, listingID uuid.UUID) (models.Money, error) {
	const op = "Ledger.CurrentPrice"
	listing, err := l.store.GetListing(ctx, listingID)
	if err != nil {
		return 0, fmt.Errorf("[%s] Fail to get listing %s, err=%w", op, listingID, err)
	}
	highest, err := l.store.HighestBid(ctx, listingID)
	if err != nil {
		return 0, fmt.Errorf("[%s] Fail to get highest bid of %s, err=%w", op, listingID, err)
	}
	return Price(listing, highest), nil
}

func (l *Ledger) checkAmount(listing *models.Listing, highest *models.Bid, amount models.Money) error {
	if highest == nil {
		if amount < listing.StartingBid {
			return reject(ErrValidation, "Bid must be at least the starting bid.")
		}
		if l.options.strictOpeningBid && amount == listing.StartingBid {
			return reject(ErrValidation, "Bid must be greater than the starting bid.")
		}
		return nil
	}
	if amount <= highest.Amount {
		return reject(ErrValidation, "Bid must be greater than the current highest bid.")
	}
	return nil
}

// PlaceBid 在商品鎖內驗證並寫入出價
// 驗證失敗時不會有任何狀態改變
func (l *Ledger) PlaceBid(ctx context.Context, listingID uuid.UUID, bidder Actor, amount models.Money) (*models.Bid, error) {
	const op = "Ledger.PlaceBid"
	if bidder == nil {
		return nil, reject(ErrPermission, "You must be logged in to bid.")
	}
	if amount <= 0 {
		return nil, reject(ErrValidation, "Bid amount must be positive.")
	}
	if amount > models.MaxMoney {
		return nil, reject(ErrValidation, fmt.Sprintf("Bid amount cannot exceed $%s.", models.MaxMoney))
	}

	var (
		bid    *models.Bid
		locked *models.Listing
	)
	err := l.store.WithListingLock(ctx, listingID, func(ctx context.Context, tx Tx, listing *models.Listing) error {
		if !listing.Active {
			return reject(ErrInvalidState, "This auction is closed.")
		}
		highest, err := tx.HighestBid(ctx, listing.ID)
		if err != nil {
			return err
		}
		if err := l.checkAmount(listing, highest, amount); err != nil {
			return err
		}

		bidderID := bidder.UserID()
		bid = &models.Bid{
			ListingID: listing.ID,
			BidderID:  &bidderID,
			Amount:    amount,
			Timestamp: l.options.now(),
		}
		if err := tx.CreateBid(ctx, bid); err != nil {
			return err
		}
		locked = listing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to place bid on %s, err=%w", op, listingID, err)
	}

	l.logger.Info("bid accepted",
		slog.String("listing", listingID.String()),
		slog.String("bidder", bidder.Username()),
		slog.String("amount", amount.String()),
	)
	l.dispatch(notify.BidPlaced(locked, bidder.Username(), bid.Amount))
	for _, observer := range l.options.observers {
		observer.BidAccepted(ctx, locked, bid)
	}
	return bid, nil
}

// closeResult 是結標後需要在交易外處理的資料
type closeResult struct {
	listing *models.Listing
	winner  *models.User
	price   models.Money
}

// closeLocked 必須在商品鎖內呼叫
func (l *Ledger) closeLocked(ctx context.Context, tx Tx, listing *models.Listing) (*closeResult, error) {
	highest, err := tx.HighestBid(ctx, listing.ID)
	if err != nil {
		return nil, err
	}

	var winnerID *uuid.UUID
	if highest != nil {
		winnerID = highest.BidderID
	}
	if err := tx.SetAuctionState(ctx, listing.ID, false, winnerID); err != nil {
		return nil, err
	}
	listing.Active = false
	listing.WinnerID = winnerID

	result := &closeResult{listing: listing, price: Price(listing, highest)}
	if winnerID != nil {
		winner, err := tx.GetUser(ctx, *winnerID)
		if err != nil {
			return nil, err
		}
		listing.Winner = winner
		result.winner = winner
	}
	return result, nil
}

func (l *Ledger) afterClose(ctx context.Context, result *closeResult) {
	listing := result.listing
	attrs := []any{slog.String("listing", listing.ID.String())}
	if result.winner != nil {
		attrs = append(attrs, slog.String("winner", result.winner.Username), slog.String("price", result.price.String()))
		l.dispatch(notify.AuctionWon(listing, result.winner, result.price))
	}
	l.logger.Info("auction closed", attrs...)
	for _, observer := range l.options.observers {
		observer.AuctionStateChanged(ctx, listing)
	}
}

func canClose(actor Actor, listing *models.Listing) bool {
	return actor.IsAdmin() || listing.OwnerID == actor.UserID()
}

// CloseAuction 由擁有者或管理員結標，得標者為最高出價者，同價時取最早出價
func (l *Ledger) CloseAuction(ctx context.Context, listingID uuid.UUID, actor Actor) (*models.Listing, error) {
	const op = "Ledger.CloseAuction"
	if actor == nil {
		return nil, reject(ErrPermission, "You must be logged in to close an auction.")
	}

	var result *closeResult
	err := l.store.WithListingLock(ctx, listingID, func(ctx context.Context, tx Tx, listing *models.Listing) error {
		if !canClose(actor, listing) {
			return reject(ErrPermission, "Only the owner or an administrator can close this auction.")
		}
		if !listing.Active {
			return reject(ErrInvalidState, "This auction is already closed.")
		}
		var err error
		result, err = l.closeLocked(ctx, tx, listing)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to close auction %s, err=%w", op, listingID, err)
	}

	l.afterClose(ctx, result)
	return result.listing, nil
}

// ReopenAuction 只有管理員可以重新開放，出價紀錄會保留
func (l *Ledger) ReopenAuction(ctx context.Context, listingID uuid.UUID, actor Actor) (*models.Listing, error) {
	const op = "Ledger.ReopenAuction"
	if actor == nil || !actor.IsAdmin() {
		return nil, reject(ErrPermission, "Only an administrator can reopen an auction.")
	}

	var reopened *models.Listing
	err := l.store.WithListingLock(ctx, listingID, func(ctx context.Context, tx Tx, listing *models.Listing) error {
		if listing.Active {
			return reject(ErrInvalidState, "This auction is already open.")
		}
		if err := tx.SetAuctionState(ctx, listing.ID, true, nil); err != nil {
			return err
		}
		listing.Active = true
		listing.WinnerID = nil
		listing.Winner = nil
		reopened = listing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to reopen auction %s, err=%w", op, listingID, err)
	}

	l.logger.Info("auction reopened", slog.String("listing", listingID.String()), slog.String("admin", actor.Username()))
	for _, observer := range l.options.observers {
		observer.AuctionStateChanged(ctx, reopened)
	}
	return reopened, nil
}

// CloseAuctions 是管理員的批次結標，已結標或不存在的商品會被略過
// 回傳實際結標的數量
func (l *Ledger) CloseAuctions(ctx context.Context, listingIDs []uuid.UUID, actor Actor) (int, error) {
	const op = "Ledger.CloseAuctions"
	if actor == nil || !actor.IsAdmin() {
		return 0, reject(ErrPermission, "Only an administrator can close auctions in bulk.")
	}

	closed := 0
	for _, id := range listingIDs {
		var result *closeResult
		err := l.store.WithListingLock(ctx, id, func(ctx context.Context, tx Tx, listing *models.Listing) error {
			if !listing.Active {
				return nil
			}
			var err error
			result, err = l.closeLocked(ctx, tx, listing)
			return err
		})
		if errors.Is(err, models.ErrNotFound) {
			l.logger.Warn("skip missing listing", slog.String("listing", id.String()))
			continue
		}
		if err != nil {
			return closed, fmt.Errorf("[%s] Fail to close auction %s, err=%w", op, id, err)
		}
		if result != nil {
			closed++
			l.afterClose(ctx, result)
		}
	}
	return closed, nil
}

// ReopenAuctions 是管理員的批次重新開放，進行中或不存在的商品會被略過
// 回傳實際重新開放的數量
func (l *Ledger) ReopenAuctions(ctx context.Context, listingIDs []uuid.UUID, actor Actor) (int, error) {
	const op = "Ledger.ReopenAuctions"
	if actor == nil || !actor.IsAdmin() {
		return 0, reject(ErrPermission, "Only an administrator can reopen auctions in bulk.")
	}

	reopened := 0
	for _, id := range listingIDs {
		_, err := l.ReopenAuction(ctx, id, actor)
		switch {
		case err == nil:
			reopened++
		case errors.Is(err, ErrInvalidState):
		case errors.Is(err, models.ErrNotFound):
			l.logger.Warn("skip missing listing", slog.String("listing", id.String()))
		default:
			return reopened, fmt.Errorf("[%s] Fail to reopen auction %s, err=%w", op, id, err)
		}
	}
	return reopened, nil
}

func (l *Ledger) dispatch(notice notify.Notice) {
	if l.options.notifier == nil {
		return
	}
	l.options.notifier.Dispatch(notice)
}
