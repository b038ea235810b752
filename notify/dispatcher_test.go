package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"commerce/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewDispatcher_NilStore(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.Error(t, err)
}

func TestDispatcher_StoresAndRelays(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	relay := NewMockRelay(ctrl)
	listing, owner := fixtureListing()

	store.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *models.Notification) error {
			assert.Equal(t, owner.ID, n.RecipientID)
			assert.Equal(t, fixedNow, n.CreatedAt)
			return nil
		})
	relay.EXPECT().Relay(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job EmailJob) error {
			assert.Equal(t, "alice@example.com", job.To)
			assert.Equal(t, "New bid on your listing: Vintage Camera", job.Subject)
			assert.Contains(t, job.Body, "https://auctions.example.com/listings/")
			assert.Len(t, job.ID, 26)
			return nil
		})

	d, err := NewDispatcher(store,
		WithEmailRelay(relay),
		WithBaseURL("https://auctions.example.com"),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	d.Start()
	d.Dispatch(BidPlaced(listing, "bob", 7500))
	d.Close()
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	relay := NewMockRelay(ctrl)
	listing, _ := fixtureListing()

	store.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Return(errors.New("db down")).Times(2)
	relay.EXPECT().Relay(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))
	relay.EXPECT().Relay(gomock.Any(), gomock.Any()).Do(func(context.Context, EmailJob) {
		panic("relay exploded")
	})

	d, err := NewDispatcher(store, WithEmailRelay(relay))
	require.NoError(t, err)
	d.Start()
	d.Dispatch(BidPlaced(listing, "bob", 100))
	d.Dispatch(BidPlaced(listing, "bob", 200))
	d.Close()
}

func TestDispatcher_SkipsEmailWithoutAddress(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	relay := NewMockRelay(ctrl)
	listing, _ := fixtureListing()
	listing.Owner.Email = ""

	store.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Return(nil)

	d, err := NewDispatcher(store, WithEmailRelay(relay))
	require.NoError(t, err)
	d.Start()
	d.Dispatch(BidPlaced(listing, "bob", 100))
	d.Close()
}

func TestDispatcher_DropsWhenClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	listing, _ := fixtureListing()

	d, err := NewDispatcher(store)
	require.NoError(t, err)
	// 尚未啟動
	d.Dispatch(BidPlaced(listing, "bob", 100))

	d.Start()
	d.Close()
	d.Close()
	d.Dispatch(BidPlaced(listing, "bob", 100))
}

func TestDispatcher_DispatchDoesNotWaitForStore(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	listing, _ := fixtureListing()

	release := make(chan struct{})
	var stored sync.WaitGroup
	stored.Add(5)
	store.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *models.Notification) error {
			<-release
			stored.Done()
			return nil
		}).Times(5)

	d, err := NewDispatcher(store, WithBufferSize(1))
	require.NoError(t, err)
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Dispatch(BidPlaced(listing, "bob", models.Money(100+i)))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a slow store")
	}

	close(release)
	d.Close()
	stored.Wait()
}
