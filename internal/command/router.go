// Package command answers user commands sent to the bot.
package command

import (
	"context"
	"fmt"
	"strings"

	"dogenews/internal/feed"
	"dogenews/internal/format"
	"dogenews/internal/subscriber"
	"dogenews/pkg/coinmarketcap"

	"go.uber.org/zap"
)

// Commands understood by the router.
const (
	Start = "/start"
	Help  = "/help"
	News  = "/news"
	Price = "/price"
	Stop  = "/stop"
)

// Request is one incoming command. ChatID is where replies go and what gets
// subscribed.
type Request struct {
	ChatID int64
	UserID int64
	Text   string
}

// Replier sends messages back to the requester only.
type Replier interface {
	Reply(ctx context.Context, msg format.Message) error
}

type Router struct {
	registry  *subscriber.Registry
	prices    feed.PriceSource
	news      feed.NewsSource
	format    *format.Formatter
	newsLimit int
	logger    *zap.Logger
}

func NewRouter(registry *subscriber.Registry, prices feed.PriceSource, news feed.NewsSource,
	f *format.Formatter, newsLimit int, logger *zap.Logger) *Router {
	return &Router{
		registry:  registry,
		prices:    prices,
		news:      news,
		format:    f,
		newsLimit: newsLimit,
		logger:    logger,
	}
}

// Parse extracts the command token from text: "/Price@dogebot now" -> "/price".
func Parse(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	token := fields[0]
	if i := strings.IndexByte(token, '@'); i > 0 {
		token = token[:i]
	}
	return strings.ToLower(token)
}

// Handle runs the command in req and replies through out. Unknown input gets
// the fallback text. The returned error is for logging; the user has already
// been answered where possible.
func (r *Router) Handle(ctx context.Context, req Request, out Replier) error {
	cmd := Parse(req.Text)
	log := r.logger.With(zap.String("command", cmd), zap.Int64("chat_id", req.ChatID))
	log.Info("command received", zap.Int64("user_id", req.UserID))

	var err error
	switch cmd {
	case Start:
		err = r.start(ctx, req, out)
	case Stop:
		err = r.stop(ctx, req, out)
	case Help:
		err = out.Reply(ctx, r.format.Help())
	case Price:
		err = r.price(ctx, out, log)
	case News:
		err = r.newsCmd(ctx, out, log)
	default:
		err = out.Reply(ctx, format.Plain(format.UnknownCommand))
	}

	if err != nil {
		log.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

// start persists the subscription before confirming it.
func (r *Router) start(ctx context.Context, req Request, out Replier) error {
	if _, err := r.registry.Subscribe(ctx, req.ChatID); err != nil {
		_ = out.Reply(ctx, format.Plain(format.Failure))
		return fmt.Errorf("subscribe %d: %w", req.ChatID, err)
	}
	return out.Reply(ctx, r.format.Welcome())
}

func (r *Router) stop(ctx context.Context, req Request, out Replier) error {
	if _, err := r.registry.Unsubscribe(ctx, req.ChatID); err != nil {
		_ = out.Reply(ctx, format.Plain(format.Failure))
		return fmt.Errorf("unsubscribe %d: %w", req.ChatID, err)
	}
	return out.Reply(ctx, r.format.Unsubscribed())
}

func (r *Router) price(ctx context.Context, out Replier, log *zap.Logger) error {
	if err := out.Reply(ctx, r.format.FetchingPrice()); err != nil {
		return err
	}
	return out.Reply(ctx, r.format.Price(r.fetchQuote(ctx, log)))
}

// newsCmd replies with the price first, then up to newsLimit articles.
func (r *Router) newsCmd(ctx context.Context, out Replier, log *zap.Logger) error {
	if err := out.Reply(ctx, r.format.FetchingNews()); err != nil {
		return err
	}
	if err := out.Reply(ctx, r.format.Price(r.fetchQuote(ctx, log))); err != nil {
		return err
	}

	articles, err := r.news.Articles(ctx)
	if err != nil {
		log.Warn("news fetch failed", zap.Error(err))
	}
	if len(articles) > r.newsLimit {
		articles = articles[:max(r.newsLimit, 0)]
	}
	if len(articles) == 0 {
		return out.Reply(ctx, r.format.NoNews())
	}
	for _, a := range articles {
		// One bad article must not hide the rest.
		if err := out.Reply(ctx, r.format.Article(a)); err != nil {
			log.Warn("failed to send article", zap.String("title", a.Title), zap.Error(err))
		}
	}
	return nil
}

func (r *Router) fetchQuote(ctx context.Context, log *zap.Logger) *coinmarketcap.Quote {
	q, err := r.prices.Quote(ctx)
	if err != nil {
		log.Warn("price fetch failed", zap.Error(err))
		return nil
	}
	return q
}
