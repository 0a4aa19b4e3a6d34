package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dogenews/internal/format"
	"dogenews/internal/subscriber"
	"dogenews/pkg/coinmarketcap"
	"dogenews/pkg/newsdata"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errGone = errors.New("bot was blocked by the user")

type stubPrices struct {
	quote *coinmarketcap.Quote
	err   error
}

func (s stubPrices) Quote(context.Context) (*coinmarketcap.Quote, error) { return s.quote, s.err }

type stubNews struct {
	articles []newsdata.Article
	err      error
}

func (s stubNews) Articles(context.Context) ([]newsdata.Article, error) { return s.articles, s.err }

type fakeSender struct {
	mu       sync.Mutex
	failures map[int64]error
	sent     map[int64]format.Message
	attempts []int64
}

func newFakeSender(failures map[int64]error) *fakeSender {
	return &fakeSender{failures: failures, sent: map[int64]format.Message{}}
}

func (f *fakeSender) Send(_ context.Context, chatID int64, msg format.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, chatID)
	if err := f.failures[chatID]; err != nil {
		return err
	}
	f.sent[chatID] = msg
	return nil
}

var (
	okPrices = stubPrices{quote: &coinmarketcap.Quote{Symbol: "DOGE", Convert: "USD", Price: 0.1, MarketCap: 1}}
	okNews   = stubNews{articles: []newsdata.Article{
		{Title: "first", Link: "https://e.com/1"},
		{Title: "second", Link: "https://e.com/2"},
	}}
)

func newDispatcher(t *testing.T, store subscriber.Store, prices stubPrices, news stubNews, sender Sender) *Dispatcher {
	return New(store, prices, news, sender, format.New("Dogecoin"), Options{
		Concurrency: 2,
		SendTimeout: time.Second,
		NewsLimit:   1,
		Permanent:   func(err error) bool { return errors.Is(err, errGone) },
	}, zaptest.NewLogger(t))
}

func TestRunDeliversToEverySubscriber(t *testing.T) {
	store := subscriber.NewMemoryStore(1, 2, 3)
	sender := newFakeSender(nil)

	report, err := newDispatcher(t, store, okPrices, okNews, sender).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, report.Delivered)
	require.True(t, report.Sent)
	require.NotEmpty(t, report.RunID)
	require.Len(t, sender.sent, 3)

	msg := sender.sent[1]
	require.Contains(t, msg.Text, "Price Update")
	require.Contains(t, msg.Text, "first")
	require.NotContains(t, msg.Text, "second")
	require.Zero(t, store.Saves())
}

func TestRunRemovesUnreachableSubscriberOnly(t *testing.T) {
	store := subscriber.NewMemoryStore(1, 2, 3)
	sender := newFakeSender(map[int64]error{2: errGone})

	report, err := newDispatcher(t, store, okPrices, okNews, sender).Run(context.Background())
	require.NoError(t, err)

	require.ElementsMatch(t, []int64{1, 2, 3}, sender.attempts)
	require.Contains(t, sender.sent, int64(1))
	require.Contains(t, sender.sent, int64(3))
	require.Equal(t, 1, report.Removed)
	require.True(t, store.Snapshot().Equal(subscriber.NewSet(1, 3)))
}

func TestRunKeepsSubscriberOnTransientFailure(t *testing.T) {
	store := subscriber.NewMemoryStore(1, 2, 3)
	sender := newFakeSender(map[int64]error{2: errors.New("connection reset")})

	report, err := newDispatcher(t, store, okPrices, okNews, sender).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Delivered)
	require.Equal(t, 1, report.Failed)
	require.Zero(t, report.Removed)
	require.True(t, store.Snapshot().Equal(subscriber.NewSet(1, 2, 3)))
	require.Zero(t, store.Saves())
}

func TestRunTotalFetchFailureSendsNothing(t *testing.T) {
	store := subscriber.NewMemoryStore(1, 2)
	sender := newFakeSender(nil)

	report, err := newDispatcher(t, store,
		stubPrices{err: errors.New("cmc down")},
		stubNews{err: errors.New("newsdata down")},
		sender,
	).Run(context.Background())
	require.NoError(t, err)

	require.False(t, report.Sent)
	require.Empty(t, sender.attempts)
	require.True(t, store.Snapshot().Equal(subscriber.NewSet(1, 2)))
	require.Zero(t, store.Saves())
}

func TestRunPartialFetchFailure(t *testing.T) {
	store := subscriber.NewMemoryStore(1)

	sender := newFakeSender(nil)
	report, err := newDispatcher(t, store, stubPrices{err: errors.New("cmc down")}, okNews, sender).Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.PriceOK)
	require.True(t, report.NewsOK)
	require.NotContains(t, sender.sent[1].Text, "Price Update")
	require.Contains(t, sender.sent[1].Text, "first")

	sender = newFakeSender(nil)
	report, err = newDispatcher(t, store, okPrices, stubNews{}, sender).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.PriceOK)
	require.False(t, report.NewsOK)
	require.Contains(t, sender.sent[1].Text, "Price Update")
}

func TestRunWithoutSubscribersSkipsFetch(t *testing.T) {
	store := subscriber.NewMemoryStore()
	sender := newFakeSender(nil)

	report, err := newDispatcher(t, store, okPrices, okNews, sender).Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Sent)
	require.Empty(t, sender.attempts)
}

func TestRunLoadFailureIsFatal(t *testing.T) {
	store := subscriber.NewMemoryStore(1)
	store.LoadErr = errors.New("corrupt")

	_, err := newDispatcher(t, store, okPrices, okNews, newFakeSender(nil)).Run(context.Background())
	require.ErrorIs(t, err, subscriber.ErrPersistence)
}

func TestRunSaveFailureIsFatal(t *testing.T) {
	store := subscriber.NewMemoryStore(1, 2)
	store.SaveErr = errors.New("read-only fs")
	sender := newFakeSender(map[int64]error{1: errGone})

	report, err := newDispatcher(t, store, okPrices, okNews, sender).Run(context.Background())
	require.ErrorIs(t, err, subscriber.ErrPersistence)
	// Delivery to the healthy subscriber still happened.
	require.Contains(t, sender.sent, int64(2))
	require.Equal(t, 1, report.Removed)
}

type slowSender struct{}

func (slowSender) Send(ctx context.Context, _ int64, _ format.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunAppliesSendTimeout(t *testing.T) {
	store := subscriber.NewMemoryStore(1, 2, 3)
	d := New(store, okPrices, okNews, slowSender{}, format.New("Dogecoin"), Options{
		Concurrency: 3,
		SendTimeout: 20 * time.Millisecond,
		NewsLimit:   1,
	}, zaptest.NewLogger(t))

	start := time.Now()
	report, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Failed)
	require.Less(t, time.Since(start), 5*time.Second)
	require.True(t, store.Snapshot().Equal(subscriber.NewSet(1, 2, 3)))
}
