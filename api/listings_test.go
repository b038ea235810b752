package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rds "commerce/adapters/redis"
	"commerce/models"
)

func unreadOf(t *testing.T, s *testServer, token string) float64 {
	t.Helper()
	w := s.do(t, http.MethodGet, "/notifications/unread", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode[map[string]float64](t, w)["unread"]
}

func TestListings_AuctionLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	_, ownerToken := s.createUser(t, "alice", false)
	_, bidderToken := s.createUser(t, "bob", false)
	_, otherToken := s.createUser(t, "carol", false)

	listing := s.createListing(t, ownerToken, gin.H{
		"title":        "  Vintage camera ",
		"description":  `<p>Works</p><script>alert(1)</script>`,
		"starting_bid": "10.00",
	})
	assert.Equal(t, "Vintage camera", listing.Title)
	assert.Equal(t, models.Money(1000), listing.CurrentPrice)
	assert.True(t, listing.Active)
	path := "/listings/" + listing.ID.String()

	t.Run("anonymous cannot bid", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path+"/bids", "", gin.H{"amount": "20.00"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected bids", func(t *testing.T) {
		cases := []struct {
			amount  string
			message string
		}{
			{"5.00", "Bid must be at least the starting bid."},
			{"0", "Bid amount must be positive."},
			{"-3.00", "Bid amount must be positive."},
		}
		for _, tc := range cases {
			w := s.do(t, http.MethodPost, path+"/bids", bidderToken, gin.H{"amount": tc.amount})
			assert.Equal(t, http.StatusBadRequest, w.Code, tc.amount)
			assert.Equal(t, tc.message, messageOf(t, w))
		}
		w := s.do(t, http.MethodPost, path+"/bids", bidderToken, gin.H{"amount": "1.234"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("accepted bids raise the price", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path+"/bids", bidderToken, gin.H{"amount": "10.00"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		bid := decode[BidView](t, w)
		assert.Equal(t, "bob", bid.Bidder)
		assert.Equal(t, models.Money(1000), bid.Amount)

		w = s.do(t, http.MethodPost, path+"/bids", otherToken, gin.H{"amount": "10.00"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Bid must be greater than the current highest bid.", messageOf(t, w))

		w = s.do(t, http.MethodPost, path+"/bids", bidderToken, gin.H{"amount": 12.5})
		require.Equal(t, http.StatusCreated, w.Code)

		w = s.do(t, http.MethodGet, "/listings", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		index := decode[struct {
			Items []ListingSummary `json:"items"`
		}](t, w)
		require.Len(t, index.Items, 1)
		assert.Equal(t, models.Money(1250), index.Items[0].CurrentPrice)
	})

	t.Run("owner is notified", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return unreadOf(t, s, ownerToken) == 2
		}, 2*time.Second, 10*time.Millisecond)

		w := s.do(t, http.MethodGet, "/notifications", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		items := decode[struct {
			Items []NotificationView `json:"items"`
		}](t, w).Items
		require.Len(t, items, 2)
		messages := lo.Map(items, func(n NotificationView, _ int) string { return n.Message })
		assert.Contains(t, messages, `bob placed a bid of $12.50 on your listing "Vintage camera".`)
		assert.Contains(t, messages, `bob placed a bid of $10.00 on your listing "Vintage camera".`)
		for _, n := range items {
			assert.Equal(t, "New bid on your listing: Vintage camera", n.Title)
			assert.Equal(t, path, n.URL)
			assert.False(t, n.Read)
		}

		// 看過商品頁後通知變成已讀
		w = s.do(t, http.MethodGet, path, ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		detail := decode[ListingDetail](t, w)
		assert.True(t, detail.IsOwner)
		assert.Equal(t, "<p>Works</p>", detail.Description)
		assert.Zero(t, unreadOf(t, s, ownerToken))
	})

	t.Run("only the owner can close", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path+"/close", otherToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Only the owner or an administrator can close this auction.", messageOf(t, w))

		w = s.do(t, http.MethodPost, path+"/close", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		closed := decode[ListingSummary](t, w)
		assert.False(t, closed.Active)
		assert.Equal(t, "bob", closed.Winner)
		assert.Equal(t, models.Money(1250), closed.CurrentPrice)

		w = s.do(t, http.MethodPost, path+"/close", ownerToken, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("winner is notified", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return unreadOf(t, s, bidderToken) == 1
		}, 2*time.Second, 10*time.Millisecond)
		w := s.do(t, http.MethodGet, "/notifications", bidderToken, nil)
		items := decode[struct {
			Items []NotificationView `json:"items"`
		}](t, w).Items
		require.Len(t, items, 1)
		assert.Equal(t, "You won the auction: Vintage camera", items[0].Title)

		w = s.do(t, http.MethodPost, "/notifications/read", bidderToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decode[map[string]float64](t, w)["updated"])
	})

	t.Run("closed auction", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path+"/bids", otherToken, gin.H{"amount": "100.00"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "This auction is closed.", messageOf(t, w))

		w = s.do(t, http.MethodGet, path, bidderToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		detail := decode[ListingDetail](t, w)
		assert.True(t, detail.IsWinner)
		require.Len(t, detail.Bids, 2)
		assert.Equal(t, models.Money(1250), detail.Bids[0].Amount)

		w = s.do(t, http.MethodGet, "/listings", "", nil)
		assert.Empty(t, decode[struct {
			Items []ListingSummary `json:"items"`
		}](t, w).Items)
	})

	t.Run("activity", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/activity", bidderToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		activity := decode[struct {
			Won         []ListingSummary        `json:"won"`
			Bids        []ActivityBid           `json:"bids"`
			HighestBids map[string]models.Money `json:"highest_bids"`
		}](t, w)
		require.Len(t, activity.Won, 1)
		assert.Equal(t, listing.ID, activity.Won[0].ID)
		assert.Len(t, activity.Bids, 2)
		assert.Equal(t, "Vintage camera", activity.Bids[0].Title)
		assert.Equal(t, models.Money(1250), activity.HighestBids[listing.ID.String()])

		w = s.do(t, http.MethodGet, "/activity", ownerToken, nil)
		owned := decode[struct {
			Active []ListingSummary `json:"active_listings"`
			Closed []ListingSummary `json:"closed_listings"`
		}](t, w)
		assert.Empty(t, owned.Active)
		assert.Len(t, owned.Closed, 1)
	})
}

func TestListings_CreateValidation(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	_, token := s.createUser(t, "alice", false)

	cases := map[string]gin.H{
		"missing starting bid": {"title": "Lamp"},
		"zero starting bid":    {"title": "Lamp", "starting_bid": "0"},
		"blank title":          {"title": "   ", "starting_bid": "1.00"},
		"bad image url":        {"title": "Lamp", "starting_bid": "1.00", "image_url": "not a url"},
		"unknown category":     {"title": "Lamp", "starting_bid": "1.00", "category_id": uuid.New()},
		"over max":             {"title": "Lamp", "starting_bid": "100000000.00"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/listings", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodPost, "/listings", "", gin.H{"title": "Lamp", "starting_bid": "1.00"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/listings/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/listings/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/listings/"+uuid.NewString()+"/bids", token, gin.H{"amount": "1.00"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListings_Categories(t *testing.T) {
	config := testConfig(t)
	config.SeedCategories = []string{"Books", "Toys"}
	s := newTestServer(t, config)
	_, token := s.createUser(t, "alice", false)

	w := s.do(t, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	categories := decode[struct {
		Items []models.Category `json:"items"`
	}](t, w).Items
	require.Len(t, categories, 2)
	books := categories[0]
	assert.Equal(t, "Books", books.Name)

	s.createListing(t, token, gin.H{"title": "Novel", "starting_bid": "3.00", "category_id": books.ID})
	s.createListing(t, token, gin.H{"title": "Robot", "starting_bid": "8.00"})

	w = s.do(t, http.MethodGet, "/categories/"+books.ID.String()+"/listings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[struct {
		Items []ListingSummary `json:"items"`
	}](t, w).Items
	require.Len(t, items, 1)
	assert.Equal(t, "Novel", items[0].Title)
	assert.Equal(t, "Books", items[0].Category)

	w = s.do(t, http.MethodGet, "/listings?category="+books.ID.String(), "", nil)
	assert.Len(t, decode[struct {
		Items []ListingSummary `json:"items"`
	}](t, w).Items, 1)

	w = s.do(t, http.MethodGet, "/categories/"+uuid.NewString()+"/listings", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListings_WatchAndComment(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	_, ownerToken := s.createUser(t, "alice", false)
	_, token := s.createUser(t, "bob", false)
	listing := s.createListing(t, ownerToken, gin.H{"title": "Desk", "starting_bid": "40.00"})
	path := "/listings/" + listing.ID.String()

	w := s.do(t, http.MethodPost, path+"/watch", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]bool](t, w)["watching"])

	w = s.do(t, http.MethodGet, "/watchlist", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	watchlist := decode[struct {
		Items []WatchlistItem `json:"items"`
	}](t, w).Items
	require.Len(t, watchlist, 1)
	assert.Equal(t, listing.ID, watchlist[0].ID)
	assert.Equal(t, models.Money(4000), watchlist[0].CurrentPrice)

	w = s.do(t, http.MethodGet, path, token, nil)
	assert.True(t, decode[ListingDetail](t, w).Watching)

	w = s.do(t, http.MethodPost, path+"/watch", token, nil)
	assert.Equal(t, false, decode[map[string]bool](t, w)["watching"])

	w = s.do(t, http.MethodPost, path+"/comments", token, gin.H{"content": "<b>Is it oak?</b>"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Is it oak?", decode[CommentView](t, w).Content)

	w = s.do(t, http.MethodPost, path+"/comments", token, gin.H{"content": "<script></script>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/listings/"+uuid.NewString()+"/comments", token, gin.H{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, path, "", nil)
	detail := decode[ListingDetail](t, w)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "bob", detail.Comments[0].Commenter)
	assert.False(t, detail.Watching)
}

func TestListings_PriceCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache, err := rds.NewPriceCache(client, rds.WithPriceCachePrefix("test:price:"))
	require.NoError(t, err)

	s := newTestServer(t, testConfig(t), WithPriceCache(cache))
	_, ownerToken := s.createUser(t, "alice", false)
	_, token := s.createUser(t, "bob", false)
	listing := s.createListing(t, ownerToken, gin.H{"title": "Bike", "starting_bid": "50.00"})

	// 第一次讀取列表時由資料層回填
	w := s.do(t, http.MethodGet, "/listings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cached, err := cache.Get(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(5000), cached[listing.ID])

	w = s.do(t, http.MethodPost, "/listings/"+listing.ID.String()+"/bids", token, gin.H{"amount": "75.00"})
	require.Equal(t, http.StatusCreated, w.Code)
	cached, err = cache.Get(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(7500), cached[listing.ID])

	w = s.do(t, http.MethodGet, "/listings", "", nil)
	items := decode[struct {
		Items []ListingSummary `json:"items"`
	}](t, w).Items
	require.Len(t, items, 1)
	assert.Equal(t, models.Money(7500), items[0].CurrentPrice)

	// 結標後快取被清除
	w = s.do(t, http.MethodPost, "/listings/"+listing.ID.String()+"/close", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cached, err = cache.Get(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.NotContains(t, cached, listing.ID)
}
