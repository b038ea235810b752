package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"commerce/models"
)

// Kind 區分通知的來源事件
type Kind string

const (
	KindBidPlaced  Kind = "bid_placed"
	KindAuctionWon Kind = "auction_won"
)

// Notice 是一則尚未寫入資料庫的通知，由拍賣帳本在交易提交後產生
type Notice struct {
	Kind           Kind
	RecipientID    uuid.UUID
	RecipientEmail string
	Title          string
	Message        string
	ListingID      *uuid.UUID
	URL            string
	OwnerEmail     string
}

// BidPlaced 建立「商品收到新出價」的通知，收件者為商品擁有者
// listing.Owner 必須已經載入
func BidPlaced(listing *models.Listing, bidderName string, amount models.Money) Notice {
	listingID := listing.ID
	return Notice{
		Kind:           KindBidPlaced,
		RecipientID:    listing.OwnerID,
		RecipientEmail: listing.Owner.Email,
		Title:          truncate("New bid on your listing: "+listing.Title, 140),
		Message:        fmt.Sprintf("%s placed a bid of $%s on your listing \"%s\".", bidderName, amount, listing.Title),
		ListingID:      &listingID,
		URL:            listing.URL(),
		OwnerEmail:     listing.Owner.Email,
	}
}

// AuctionWon 建立「得標」通知，收件者為得標者
// OwnerEmail 讓得標者可以聯絡賣家安排付款與運送
func AuctionWon(listing *models.Listing, winner *models.User, amount models.Money) Notice {
	listingID := listing.ID
	return Notice{
		Kind:           KindAuctionWon,
		RecipientID:    winner.ID,
		RecipientEmail: winner.Email,
		Title:          truncate("You won the auction: "+listing.Title, 140),
		Message:        fmt.Sprintf("Congratulations - you won the auction \"%s\" with a bid of $%s.", listing.Title, amount),
		ListingID:      &listingID,
		URL:            listing.URL(),
		OwnerEmail:     listing.Owner.Email,
	}
}

// Notification 轉換成要寫入資料庫的通知紀錄
func (n Notice) Notification(now time.Time) *models.Notification {
	return &models.Notification{
		RecipientID: n.RecipientID,
		Title:       n.Title,
		Message:     n.Message,
		ListingID:   n.ListingID,
		URL:         n.URL,
		OwnerEmail:  n.OwnerEmail,
		CreatedAt:   now,
	}
}

// EmailBody 組出 email 內文，空白行會被略過
func (n Notice) EmailBody(baseURL string) string {
	link := "View the listing: " + strings.TrimSuffix(baseURL, "/") + n.URL
	var lines []string
	switch n.Kind {
	case KindAuctionWon:
		lines = []string{n.Message}
		if n.OwnerEmail != "" {
			lines = append(lines, "Auction owner (to contact): "+n.OwnerEmail)
		}
		lines = append(lines, link, "You can contact the auction owner to arrange payment/delivery.")
	default:
		lines = []string{n.Message, link}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
