package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"commerce/ledger"
	"commerce/models"
)

var _ ledger.Store = (*Store)(nil)

func highestOf(bids []models.Bid) *models.Bid {
	var highest *models.Bid
	for i := range bids {
		if bids[i].Outranks(highest) {
			highest = &bids[i]
		}
	}
	if highest == nil {
		return nil
	}
	b := *highest
	return &b
}

func (s *Store) HighestBid(_ context.Context, listingID uuid.UUID) (*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return highestOf(s.bids[listingID]), nil
}

func (s *Store) listingLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// WithListingLock 持有商品鎖執行 fn，fn 成功時才一次寫入所有變更
func (s *Store) WithListingLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx ledger.Tx, listing *models.Listing) error) error {
	lock := s.listingLock(id)
	lock.Lock()
	defer lock.Unlock()

	listing, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	tx := &memTx{store: s}
	if err := fn(ctx, tx, listing); err != nil {
		return err
	}
	tx.commit(id)
	return nil
}

// memTx 暫存交易中的寫入，提交前其他讀取者看不到
type memTx struct {
	store    *Store
	bids     []models.Bid
	setState bool
	active   bool
	winnerID *uuid.UUID
}

func (t *memTx) HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	all := append(append([]models.Bid{}, t.store.bids[listingID]...), t.bids...)
	return highestOf(all), nil
}

func (t *memTx) CreateBid(_ context.Context, bid *models.Bid) error {
	models.EnsureID(&bid.ID)
	t.store.stamp(&bid.Timestamp)
	stored := *bid
	stored.Bidder, stored.Listing = nil, nil
	t.bids = append(t.bids, stored)
	return nil
}

func (t *memTx) SetAuctionState(_ context.Context, _ uuid.UUID, active bool, winnerID *uuid.UUID) error {
	t.setState = true
	t.active = active
	t.winnerID = winnerID
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return t.store.GetUser(ctx, id)
}

func (t *memTx) commit(listingID uuid.UUID) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[listingID] = append(s.bids[listingID], t.bids...)
	if t.setState {
		l := s.listings[listingID]
		l.Active = t.active
		l.WinnerID = t.winnerID
		s.listings[listingID] = l
	}
}
