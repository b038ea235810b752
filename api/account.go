package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"commerce/models"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type patchUserInfoRequest struct {
	Email string `json:"email" binding:"omitempty,email,max=254"`
}

type markReadRequest struct {
	ListingID *uuid.UUID `json:"listing_id"`
}

type WatchlistItem struct {
	ListingSummary
	AddedAt time.Time `json:"added_at"`
}

type ActivityBid struct {
	BidView
	Title string `json:"title"`
}

// Get user information
// (GET /user/info)
func (impl *ServerImpl) GetUserInfo(c *gin.Context) {
	const op = "GetUserInfo"
	principal := CurrentPrincipal(c)
	user, err := impl.store.GetUser(c, principal.ID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	unread, err := impl.store.CountUnread(c, user.ID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                   user.ID,
		"username":             user.Username,
		"email":                user.Email,
		"is_admin":             user.IsAdmin,
		"unread_notifications": unread,
	})
}

// Update user information
// (PATCH /user/info)
func (impl *ServerImpl) PatchUserInfo(c *gin.Context) {
	const op = "PatchUserInfo"
	var req patchUserInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := impl.store.UpdateUserEmail(c, CurrentPrincipal(c).ID, strings.TrimSpace(req.Email)); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List watched listings
// (GET /watchlist)
func (impl *ServerImpl) GetWatchlist(c *gin.Context) {
	const op = "GetWatchlist"
	entries, err := impl.store.ListWatchlist(c, CurrentPrincipal(c).ID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	listings := lo.Map(entries, func(e models.WatchlistEntry, _ int) models.Listing { return e.Listing })
	prices, err := impl.currentPrices(c, listings)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	items := lo.Map(entries, func(e models.WatchlistEntry, _ int) WatchlistItem {
		return WatchlistItem{
			ListingSummary: summarize(&e.Listing, prices[e.ListingID]),
			AddedAt:        e.AddedAt,
		}
	})
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// Show won listings, own listings and own bids
// (GET /activity)
func (impl *ServerImpl) GetActivity(c *gin.Context) {
	const op = "GetActivity"
	userID := CurrentPrincipal(c).ID
	won, err := impl.store.ListListingsWonBy(c, userID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	owned, err := impl.store.ListListingsByOwner(c, userID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	bids, err := impl.store.ListBidsByBidder(c, userID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}

	all := append(append([]models.Listing{}, won...), owned...)
	prices, err := impl.currentPrices(c, lo.UniqBy(all, func(l models.Listing) uuid.UUID { return l.ID }))
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	toSummary := func(l models.Listing, _ int) ListingSummary { return summarize(&l, prices[l.ID]) }
	active, closed := lo.FilterReject(owned, func(l models.Listing, _ int) bool { return l.Active })

	// 每個商品只保留自己最高的一筆出價
	highest := make(map[uuid.UUID]models.Money)
	for _, b := range bids {
		if b.Amount > highest[b.ListingID] {
			highest[b.ListingID] = b.Amount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"won":             lo.Map(won, toSummary),
		"active_listings": lo.Map(active, toSummary),
		"closed_listings": lo.Map(closed, toSummary),
		"bids": lo.Map(bids, func(b models.Bid, _ int) ActivityBid {
			item := ActivityBid{BidView: bidView(b)}
			if b.Listing != nil {
				item.Title = b.Listing.Title
			}
			return item
		}),
		"highest_bids": lo.MapEntries(highest, func(id uuid.UUID, amount models.Money) (string, models.Money) {
			return id.String(), amount
		}),
	})
}

// List notifications, newest first
// (GET /notifications)
func (impl *ServerImpl) GetNotifications(c *gin.Context) {
	const op = "GetNotifications"
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "Invalid limit.")
			return
		}
		limit = min(n, maxNotificationLimit)
	}
	notifications, err := impl.store.ListNotifications(c, CurrentPrincipal(c).ID, limit)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(notifications),
		"items": lo.Map(notifications, func(n models.Notification, _ int) NotificationView { return notificationView(n) }),
	})
}

// Count unread notifications
// (GET /notifications/unread)
func (impl *ServerImpl) GetNotificationsUnread(c *gin.Context) {
	const op = "GetNotificationsUnread"
	unread, err := impl.store.CountUnread(c, CurrentPrincipal(c).ID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// Mark notifications as read, all of them or those of one listing
// (POST /notifications/read)
func (impl *ServerImpl) PostNotificationsRead(c *gin.Context) {
	const op = "PostNotificationsRead"
	var req markReadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	userID := CurrentPrincipal(c).ID
	var (
		updated int64
		err     error
	)
	if req.ListingID != nil {
		updated, err = impl.store.MarkListingRead(c, userID, *req.ListingID)
	} else {
		updated, err = impl.store.MarkAllRead(c, userID)
	}
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
