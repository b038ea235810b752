package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/models"
)

func fixtureListing() (*models.Listing, *models.User) {
	owner := &models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	listing := &models.Listing{
		ID:          uuid.New(),
		Title:       "Vintage Camera",
		StartingBid: 5000,
		OwnerID:     owner.ID,
		Owner:       *owner,
		Active:      true,
	}
	return listing, owner
}

func TestBidPlaced(t *testing.T) {
	listing, owner := fixtureListing()

	n := BidPlaced(listing, "bob", 7500)
	assert.Equal(t, KindBidPlaced, n.Kind)
	assert.Equal(t, owner.ID, n.RecipientID)
	assert.Equal(t, "alice@example.com", n.RecipientEmail)
	assert.Equal(t, "New bid on your listing: Vintage Camera", n.Title)
	assert.Equal(t, `bob placed a bid of $75.00 on your listing "Vintage Camera".`, n.Message)
	require.NotNil(t, n.ListingID)
	assert.Equal(t, listing.ID, *n.ListingID)
	assert.Equal(t, "/listings/"+listing.ID.String(), n.URL)
}

func TestAuctionWon(t *testing.T) {
	listing, _ := fixtureListing()
	winner := &models.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"}

	n := AuctionWon(listing, winner, 7500)
	assert.Equal(t, KindAuctionWon, n.Kind)
	assert.Equal(t, winner.ID, n.RecipientID)
	assert.Equal(t, "bob@example.com", n.RecipientEmail)
	assert.Equal(t, "You won the auction: Vintage Camera", n.Title)
	assert.Equal(t, `Congratulations - you won the auction "Vintage Camera" with a bid of $75.00.`, n.Message)
	assert.Equal(t, "alice@example.com", n.OwnerEmail)
}

func TestNotice_TitleTruncated(t *testing.T) {
	listing, _ := fixtureListing()
	listing.Title = strings.Repeat("é", 200)

	n := BidPlaced(listing, "bob", 100)
	assert.Len(t, []rune(n.Title), 140)
}

func TestNotice_EmailBody(t *testing.T) {
	listing, _ := fixtureListing()
	winner := &models.User{ID: uuid.New(), Email: "bob@example.com"}

	bid := BidPlaced(listing, "bob", 7500)
	assert.Equal(t,
		bid.Message+"\nView the listing: https://auctions.example.com/listings/"+listing.ID.String(),
		bid.EmailBody("https://auctions.example.com/"),
	)

	won := AuctionWon(listing, winner, 7500)
	body := won.EmailBody("https://auctions.example.com")
	lines := strings.Split(body, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, won.Message, lines[0])
	assert.Equal(t, "Auction owner (to contact): alice@example.com", lines[1])
	assert.Equal(t, "You can contact the auction owner to arrange payment/delivery.", lines[3])

	won.OwnerEmail = ""
	assert.NotContains(t, won.EmailBody(""), "Auction owner")
}

func TestNotice_Notification(t *testing.T) {
	listing, owner := fixtureListing()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	record := BidPlaced(listing, "bob", 7500).Notification(now)
	assert.Equal(t, owner.ID, record.RecipientID)
	assert.Equal(t, now, record.CreatedAt)
	assert.False(t, record.Read)
	assert.Equal(t, listing.URL(), record.URL)
}
