package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"commerce/models"
)

type createListingRequest struct {
	Title       string       `json:"title" binding:"required,max=128"`
	Description string       `json:"description" binding:"max=10000"`
	StartingBid models.Money `json:"starting_bid" binding:"required,money"`
	ImageURL    string       `json:"image_url" binding:"omitempty,url,max=2048"`
	CategoryID  *uuid.UUID   `json:"category_id"`
}

type bidRequest struct {
	Amount models.Money `json:"amount"`
}

type commentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Message: http.StatusText(http.StatusNotFound)})
		return uuid.Nil, false
	}
	return id, true
}

// List active listings
// (GET /listings)
func (impl *ServerImpl) GetListings(c *gin.Context) {
	const op = "GetListings"
	var categoryID *uuid.UUID
	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid category.")
			return
		}
		categoryID = &id
	}
	listings, err := impl.store.ListActiveListings(c, categoryID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	summaries, err := impl.summarizeAll(c, listings)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "items": summaries})
}

// List active listings of a category
// (GET /categories/{id}/listings)
func (impl *ServerImpl) GetCategoryListings(c *gin.Context) {
	const op = "GetCategoryListings"
	id, ok := pathID(c)
	if !ok {
		return
	}
	category, err := impl.store.GetCategory(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	listings, err := impl.store.ListActiveListings(c, &category.ID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	summaries, err := impl.summarizeAll(c, listings)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category.Name, "count": len(summaries), "items": summaries})
}

// List categories
// (GET /categories)
func (impl *ServerImpl) GetCategories(c *gin.Context) {
	const op = "GetCategories"
	categories, err := impl.store.ListCategories(c)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": lo.Map(categories, func(category models.Category, _ int) gin.H {
		return gin.H{"id": category.ID, "name": category.Name}
	})})
}

// Add a new listing
// (POST /listings)
func (impl *ServerImpl) PostListing(c *gin.Context) {
	const op = "PostListing"
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		badRequest(c, "Title cannot be empty.")
		return
	}
	principal := CurrentPrincipal(c)
	listing := &models.Listing{
		Title:       title,
		Description: impl.descPolicy.Sanitize(req.Description),
		StartingBid: req.StartingBid,
		ImageURL:    req.ImageURL,
		OwnerID:     principal.ID,
		CategoryID:  req.CategoryID,
		Active:      true,
	}
	if err := impl.store.CreateListing(c, listing); err != nil {
		if errors.Is(err, models.ErrNotFound) && req.CategoryID != nil {
			badRequest(c, "Invalid category.")
			return
		}
		impl.abortWithError(c, op, err)
		return
	}
	created, err := impl.store.GetListing(c, listing.ID)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.Header("Location", created.URL())
	c.JSON(http.StatusCreated, summarize(created, created.StartingBid))
}

// Get listing details
// (GET /listings/{id})
func (impl *ServerImpl) GetListing(c *gin.Context) {
	const op = "GetListing"
	id, ok := pathID(c)
	if !ok {
		return
	}
	listing, err := impl.store.GetListingDetail(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	bids, err := impl.store.ListBids(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	comments, err := impl.store.ListComments(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	// 出價依金額由高到低排列，第一筆就是目前價格
	price := listing.StartingBid
	if len(bids) > 0 {
		price = bids[0].Amount
	}
	detail := ListingDetail{
		ListingSummary: summarize(listing, price),
		Description:    listing.Description,
		Bids:           lo.Map(bids, func(b models.Bid, _ int) BidView { return bidView(b) }),
		Comments: lo.Map(comments, func(cm models.Comment, _ int) CommentView {
			return CommentView{
				ID:        cm.ID,
				Commenter: cm.Commenter.Username,
				Content:   cm.Content,
				Timestamp: cm.Timestamp,
			}
		}),
	}

	if principal := CurrentPrincipal(c); principal != nil {
		detail.IsOwner = listing.OwnerID == principal.ID
		detail.IsWinner = listing.WinnerID != nil && *listing.WinnerID == principal.ID
		if detail.Watching, err = impl.store.IsWatching(c, principal.ID, id); err != nil {
			impl.abortWithError(c, op, err)
			return
		}
		// 看過商品頁就視為已讀相關通知
		if _, err := impl.store.MarkListingRead(c, principal.ID, id); err != nil {
			impl.abortWithError(c, op, err)
			return
		}
	}
	c.JSON(http.StatusOK, detail)
}

// Place a bid on a listing
// (POST /listings/{id}/bids)
func (impl *ServerImpl) PostListingBid(c *gin.Context) {
	const op = "PostListingBid"
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid bid amount.")
		return
	}
	bid, err := impl.ledger.PlaceBid(c, id, CurrentPrincipal(c), req.Amount)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	view := bidView(*bid)
	view.Bidder = CurrentPrincipal(c).Name
	c.JSON(http.StatusCreated, view)
}

// Close an auction
// (POST /listings/{id}/close)
func (impl *ServerImpl) PostListingClose(c *gin.Context) {
	const op = "PostListingClose"
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := impl.ledger.CloseAuction(c, id, CurrentPrincipal(c)); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	listing, err := impl.store.GetListing(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	price, err := impl.ledger.CurrentPrice(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, summarize(listing, price))
}

// Toggle a listing in the watchlist
// (POST /listings/{id}/watch)
func (impl *ServerImpl) PostListingWatch(c *gin.Context) {
	const op = "PostListingWatch"
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := impl.store.GetListing(c, id); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	watching, err := impl.store.ToggleWatch(c, CurrentPrincipal(c).ID, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watching": watching})
}

// Comment on a listing
// (POST /listings/{id}/comments)
func (impl *ServerImpl) PostListingComment(c *gin.Context) {
	const op = "PostListingComment"
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	content := strings.TrimSpace(impl.commentPolicy.Sanitize(req.Content))
	if content == "" {
		badRequest(c, "Comment cannot be empty.")
		return
	}
	principal := CurrentPrincipal(c)
	comment := &models.Comment{
		ListingID:   id,
		CommenterID: principal.ID,
		Content:     content,
	}
	if err := impl.store.CreateComment(c, comment); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, CommentView{
		ID:        comment.ID,
		Commenter: principal.Name,
		Content:   comment.Content,
		Timestamp: comment.Timestamp,
	})
}
