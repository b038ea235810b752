package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"commerce/ledger"
	"commerce/models"
	"commerce/notify"
)

// Store 是 HTTP 層需要的所有資料操作，postgres 與 memory 兩種實作都滿足這個介面
type Store interface {
	ledger.Store
	notify.Store

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) error

	GetOrCreateSsoProvider(ctx context.Context, name string) (*models.SsoProvider, error)
	GetUserByIdentity(ctx context.Context, providerID uuid.UUID, identity string) (*models.User, error)
	CreateUserWithIdentity(ctx context.Context, user *models.User, identity *models.UserIdentity) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	EnsureCategories(ctx context.Context, names []string) error

	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListingDetail(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListActiveListings(ctx context.Context, categoryID *uuid.UUID) ([]models.Listing, error)
	ListListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error)
	ListListingsWonBy(ctx context.Context, userID uuid.UUID) ([]models.Listing, error)
	CurrentPrices(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID]models.Money, error)

	ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, listingID uuid.UUID) ([]models.Comment, error)

	ToggleWatch(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	ListWatchlist(ctx context.Context, userID uuid.UUID) ([]models.WatchlistEntry, error)

	ListNotifications(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkListingRead(ctx context.Context, recipientID, listingID uuid.UUID) (int64, error)

	CreateImage(ctx context.Context, image *models.Image) error
	CountImagesSince(ctx context.Context, uploaderID uuid.UUID, since time.Time) (int64, error)
}
