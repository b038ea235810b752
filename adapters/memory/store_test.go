package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/ledger"
	"commerce/models"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func setupStore(t *testing.T) (*Store, *models.User, *models.Listing) {
	t.Helper()
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(WithClock(c.now))
	ctx := context.Background()

	owner := &models.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, s.CreateUser(ctx, owner))
	listing := &models.Listing{Title: "Camera", StartingBid: 10000, OwnerID: owner.ID, Active: true}
	require.NoError(t, s.CreateListing(ctx, listing))
	return s, owner, listing
}

func TestStore_Users(t *testing.T) {
	s, owner, _ := setupStore(t)
	ctx := context.Background()

	err := s.CreateUser(ctx, &models.User{Username: "ALICE"})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)

	require.NoError(t, s.UpdateUserEmail(ctx, owner.ID, "new@example.com"))
	got, err = s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_Identity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	provider, err := s.GetOrCreateSsoProvider(ctx, "google")
	require.NoError(t, err)
	again, err := s.GetOrCreateSsoProvider(ctx, "google")
	require.NoError(t, err)
	assert.Equal(t, provider.ID, again.ID)

	user := &models.User{Username: "bob"}
	identity := &models.UserIdentity{SsoProviderID: provider.ID, Identity: "sub-1"}
	require.NoError(t, s.CreateUserWithIdentity(ctx, user, identity))
	assert.Equal(t, user.ID, identity.UserID)

	got, err := s.GetUserByIdentity(ctx, provider.ID, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	err = s.CreateUserWithIdentity(ctx, &models.User{Username: "bob2"}, &models.UserIdentity{SsoProviderID: provider.ID, Identity: "sub-1"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestStore_WithListingLock_RollbackOnError(t *testing.T) {
	s, owner, listing := setupStore(t)
	ctx := context.Background()

	err := s.WithListingLock(ctx, listing.ID, func(ctx context.Context, tx ledger.Tx, l *models.Listing) error {
		assert.Equal(t, "alice", l.Owner.Username)
		require.NoError(t, tx.CreateBid(ctx, &models.Bid{ListingID: l.ID, BidderID: &owner.ID, Amount: 20000}))
		highest, err := tx.HighestBid(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Money(20000), highest.Amount, "pending writes are visible inside the transaction")
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	highest, err := s.HighestBid(ctx, listing.ID)
	require.NoError(t, err)
	assert.Nil(t, highest)

	err = s.WithListingLock(ctx, listing.ID, func(ctx context.Context, tx ledger.Tx, l *models.Listing) error {
		return tx.SetAuctionState(ctx, l.ID, false, &owner.ID)
	})
	require.NoError(t, err)
	got, err := s.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.Winner)
	assert.Equal(t, owner.ID, got.Winner.ID)

	err = s.WithListingLock(ctx, uuid.New(), func(context.Context, ledger.Tx, *models.Listing) error {
		t.Fatal("fn must not run for a missing listing")
		return nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_ListingQueries(t *testing.T) {
	s, owner, first := setupStore(t)
	ctx := context.Background()

	cat := &models.Category{Name: "Electronics"}
	require.NoError(t, s.CreateCategory(ctx, cat))
	assert.ErrorIs(t, s.CreateCategory(ctx, &models.Category{Name: "Electronics"}), models.ErrDuplicate)
	require.NoError(t, s.EnsureCategories(ctx, []string{"Electronics", "Books"}))
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Electronics"}, []string{cats[0].Name, cats[1].Name})

	second := &models.Listing{Title: "Phone", StartingBid: 100, OwnerID: owner.ID, Active: true, CategoryID: &cat.ID}
	require.NoError(t, s.CreateListing(ctx, second))
	closed := &models.Listing{Title: "Old", StartingBid: 100, OwnerID: owner.ID, Active: false}
	require.NoError(t, s.CreateListing(ctx, closed))

	active, err := s.ListActiveListings(ctx, nil)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID, "newest first")
	assert.Equal(t, first.ID, active[1].ID)
	assert.Equal(t, "Electronics", active[0].Category.Name)

	byCat, err := s.ListActiveListings(ctx, &cat.ID)
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, second.ID, byCat[0].ID)

	mine, err := s.ListListingsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	err = s.CreateListing(ctx, &models.Listing{Title: "x", OwnerID: uuid.New()})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_BidOrdering(t *testing.T) {
	s, owner, listing := setupStore(t)
	ctx := context.Background()
	bob := &models.User{Username: "bob"}
	require.NoError(t, s.CreateUser(ctx, bob))

	for _, amount := range []models.Money{10000, 15000, 12000} {
		err := s.WithListingLock(ctx, listing.ID, func(ctx context.Context, tx ledger.Tx, l *models.Listing) error {
			return tx.CreateBid(ctx, &models.Bid{ListingID: l.ID, BidderID: &bob.ID, Amount: amount})
		})
		require.NoError(t, err)
	}

	bids, err := s.ListBids(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	assert.Equal(t, []models.Money{15000, 12000, 10000}, []models.Money{bids[0].Amount, bids[1].Amount, bids[2].Amount})
	assert.Equal(t, "bob", bids[0].Bidder.Username)

	prices, err := s.CurrentPrices(ctx, []uuid.UUID{listing.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]models.Money{listing.ID: 15000}, prices)

	mine, err := s.ListBidsByBidder(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, models.Money(12000), mine[0].Amount, "newest first")
	assert.Equal(t, "Camera", mine[0].Listing.Title)

	none, err := s.ListBidsByBidder(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_WatchlistAndComments(t *testing.T) {
	s, owner, listing := setupStore(t)
	ctx := context.Background()

	watching, err := s.ToggleWatch(ctx, owner.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, watching)
	ok, err := s.IsWatching(ctx, owner.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := s.ListWatchlist(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Camera", entries[0].Listing.Title)

	watching, err = s.ToggleWatch(ctx, owner.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, watching)

	_, err = s.ToggleWatch(ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.CreateComment(ctx, &models.Comment{ListingID: listing.ID, CommenterID: owner.ID, Content: "first"}))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{ListingID: listing.ID, CommenterID: owner.ID, Content: "second"}))
	comments, err := s.ListComments(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "alice", comments[0].Commenter.Username)
}

func TestStore_Notifications(t *testing.T) {
	s, owner, listing := setupStore(t)
	ctx := context.Background()
	other := uuid.New()

	require.NoError(t, s.CreateNotification(ctx, &models.Notification{RecipientID: owner.ID, Title: "a", ListingID: &listing.ID}))
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{RecipientID: owner.ID, Title: "b", ListingID: &other}))
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{RecipientID: owner.ID, Title: "c"}))
	assert.ErrorIs(t, s.CreateNotification(ctx, &models.Notification{RecipientID: uuid.New()}), models.ErrNotFound)

	list, err := s.ListNotifications(ctx, owner.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Title)

	n, err := s.MarkListingRead(ctx, owner.ID, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	unread, err := s.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	n, err = s.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	unread, err = s.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestStore_Images(t *testing.T) {
	s, owner, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateImage(ctx, &models.Image{UploaderID: owner.ID, Url: "https://cdn/a.png", CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, s.CreateImage(ctx, &models.Image{UploaderID: owner.ID, Url: "https://cdn/b.png"}))

	count, err := s.CountImagesSince(ctx, owner.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	data := map[string]string{"state": "s1"}
	require.NoError(t, s.Save(ctx, "sid", data))
	data["state"] = "mutated"

	got, err := s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "s1", got["state"])

	require.NoError(t, s.Delete(ctx, "sid"))
	got, err = s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, got)
}
