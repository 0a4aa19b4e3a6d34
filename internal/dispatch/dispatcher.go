// Package dispatch runs one scheduled broadcast to every subscriber.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"dogenews/internal/feed"
	"dogenews/internal/format"
	"dogenews/internal/subscriber"
	"dogenews/pkg/coinmarketcap"
	"dogenews/pkg/newsdata"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sender delivers one message to one chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, msg format.Message) error
}

type Options struct {
	Concurrency int           // parallel sends, at least 1
	SendTimeout time.Duration // per send; 0 means no extra deadline
	NewsLimit   int           // articles per broadcast

	// Permanent reports whether a send error means the chat will never accept
	// messages again. Such subscribers are removed after the run.
	Permanent func(error) bool
}

// Report summarises one run.
type Report struct {
	RunID       string
	Subscribers int
	PriceOK     bool
	NewsOK      bool
	Sent        bool // a message was formatted and delivery attempted
	Delivered   int
	Failed      int
	Removed     int
}

type Dispatcher struct {
	store  subscriber.Store
	prices feed.PriceSource
	news   feed.NewsSource
	sender Sender
	format *format.Formatter
	opts   Options
	logger *zap.Logger
}

func New(store subscriber.Store, prices feed.PriceSource, news feed.NewsSource, sender Sender,
	f *format.Formatter, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Permanent == nil {
		opts.Permanent = func(error) bool { return false }
	}
	return &Dispatcher{
		store:  store,
		prices: prices,
		news:   news,
		sender: sender,
		format: f,
		opts:   opts,
		logger: logger,
	}
}

// Run loads the subscribers, fetches fresh data, sends one message to each
// subscriber and drops the ones that can no longer be reached.
//
// Fetch and delivery failures are logged and absorbed. Only store failures are
// returned, since they leave the persisted set out of step with what happened.
func (d *Dispatcher) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := d.logger.With(zap.String("run_id", report.RunID))
	log.Info("starting scheduled update")

	subs, err := d.store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load subscribers: %w", err)
	}
	report.Subscribers = subs.Len()
	if subs.Len() == 0 {
		log.Info("no subscribed users")
		return report, nil
	}

	quote, articles := d.fetch(ctx, log)
	report.PriceOK = quote != nil
	report.NewsOK = len(articles) > 0

	msg, ok := d.format.Broadcast(quote, articles)
	if !ok {
		log.Error("price and news both unavailable, nothing sent")
		return report, nil
	}
	report.Sent = true

	ids := subs.IDs()
	errs := d.sendAll(ctx, ids, msg)

	for i, id := range ids {
		if errs[i] == nil {
			report.Delivered++
			continue
		}
		report.Failed++

		if d.opts.Permanent(errs[i]) {
			subs.Remove(id)
			report.Removed++
			log.Warn("removing unreachable subscriber", zap.Int64("chat_id", id), zap.Error(errs[i]))
			continue
		}
		log.Warn("failed to send update", zap.Int64("chat_id", id), zap.Error(errs[i]))
	}

	if report.Removed > 0 {
		if err := d.store.Save(ctx, subs); err != nil {
			return report, fmt.Errorf("save subscribers: %w", err)
		}
	}

	log.Info("scheduled update finished",
		zap.Int("subscribers", report.Subscribers),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Int("removed", report.Removed),
	)
	return report, nil
}

func (d *Dispatcher) fetch(ctx context.Context, log *zap.Logger) (*coinmarketcap.Quote, []newsdata.Article) {
	quote, err := d.prices.Quote(ctx)
	if err != nil {
		log.Warn("price fetch failed, omitting price", zap.Error(err))
		quote = nil
	}

	articles, err := d.news.Articles(ctx)
	if err != nil {
		log.Warn("news fetch failed, omitting news", zap.Error(err))
		articles = nil
	}
	if len(articles) > d.opts.NewsLimit {
		articles = articles[:d.opts.NewsLimit]
	}

	return quote, articles
}

// sendAll delivers msg to every id with bounded concurrency. errs[i] belongs to ids[i].
func (d *Dispatcher) sendAll(ctx context.Context, ids []int64, msg format.Message) []error {
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			sendCtx := ctx
			if d.opts.SendTimeout > 0 {
				var cancel context.CancelFunc
				sendCtx, cancel = context.WithTimeout(ctx, d.opts.SendTimeout)
				defer cancel()
			}
			errs[i] = d.sender.Send(sendCtx, id, msg)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
