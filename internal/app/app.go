// Package app assembles the bot from configuration.
package app

import (
	"context"
	"fmt"

	"dogenews/config"
	"dogenews/internal/command"
	"dogenews/internal/dispatch"
	"dogenews/internal/feed"
	"dogenews/internal/format"
	"dogenews/internal/subscriber"
	"dogenews/internal/telegram"
	"dogenews/pkg/coinmarketcap"
	"dogenews/pkg/newsdata"

	"go.uber.org/zap"
)

// App owns the long-lived clients shared by the bot and the broadcaster.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store      subscriber.Store
	closeStore func() error

	bot       *telegram.Client
	prices    *feed.Prices
	news      *feed.News
	formatter *format.Formatter
}

// New opens the subscriber store and connects to Telegram. Credentials must
// have been checked before calling it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriber store: %w", err)
	}

	bot, err := telegram.New(telegram.Options{
		Token:       cfg.Telegram.Token,
		Timeout:     cfg.Telegram.Timeout,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, logger.Named("telegram"))
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	cmc := coinmarketcap.NewRESTClient(cfg.CoinMarketCap.BaseURL, cfg.CoinMarketCap.APIKey, cfg.CoinMarketCap.Timeout)
	nd := newsdata.NewRESTClient(cfg.NewsData.BaseURL, cfg.NewsData.APIKey, cfg.NewsData.Timeout)

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		closeStore: closeStore,
		bot:        bot,
		prices:     feed.NewPrices(cmc, cfg.Asset.Symbol, cfg.Asset.Convert),
		news:       feed.NewNews(nd, cfg.NewsData.Query, cfg.NewsData.Language, cfg.Asset.Name, cfg.Asset.Symbol),
		formatter:  format.New(cfg.Asset.Name),
	}, nil
}

func (a *App) Router() *command.Router {
	return command.NewRouter(subscriber.NewRegistry(a.store), a.prices, a.news, a.formatter,
		a.cfg.NewsData.CommandLimit, a.logger.Named("command"))
}

func (a *App) Dispatcher() *dispatch.Dispatcher {
	return dispatch.New(a.store, a.prices, a.news, a.bot, a.formatter, dispatch.Options{
		Concurrency: a.cfg.Broadcast.Concurrency,
		SendTimeout: a.cfg.Telegram.Timeout,
		NewsLimit:   a.cfg.NewsData.BroadcastLimit,
		Permanent:   telegram.IsRecipientGone,
	}, a.logger.Named("dispatch"))
}

// Listen serves commands until ctx is cancelled.
func (a *App) Listen(ctx context.Context) error {
	return a.bot.Listen(ctx, a.Router(), a.cfg.Telegram.Timeout)
}

// Broadcast performs one broadcast run.
func (a *App) Broadcast(ctx context.Context) (dispatch.Report, error) {
	return a.Dispatcher().Run(ctx)
}

func (a *App) Close() error {
	return a.closeStore()
}
