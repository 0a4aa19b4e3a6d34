// Package telegram connects the bot to the Telegram Bot API through telebot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dogenews/internal/command"
	"dogenews/internal/format"

	"go.uber.org/zap"
	tb "gopkg.in/tucnak/telebot.v2"
)

// ErrRecipientGone wraps send errors after which the chat can never be
// reached again (blocked bot, deleted chat, deactivated user).
var ErrRecipientGone = errors.New("telegram: recipient unreachable")

// goneMarkers are lowercase fragments of Bot API descriptions for permanent failures.
var goneMarkers = []string{
	"chat not found",
	"bot was blocked by the user",
	"user is deactivated",
	"bot was kicked",
	"bot can't initiate conversation",
}

type Options struct {
	Token       string
	APIURL      string        // empty for the public Bot API
	Timeout     time.Duration // HTTP timeout of each API call
	PollTimeout time.Duration // long polling wait, command mode only
}

type Client struct {
	bot    *tb.Bot
	logger *zap.Logger
}

// New creates the bot client. It calls getMe, so a bad token fails here.
func New(opts Options, logger *zap.Logger) (*Client, error) {
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	// Long polling holds the request open, so the HTTP timeout must outlast it.
	httpTimeout := opts.Timeout
	if httpTimeout < pollTimeout+5*time.Second {
		httpTimeout = pollTimeout + 5*time.Second
	}

	bot, err := tb.NewBot(tb.Settings{
		URL:    opts.APIURL,
		Token:  opts.Token,
		Poller: &tb.LongPoller{Timeout: pollTimeout},
		Client: &http.Client{Timeout: httpTimeout},
		Reporter: func(err error) {
			logger.Warn("telebot error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("telegram bot ready", zap.String("username", bot.Me.Username))
	return &Client{bot: bot, logger: logger}, nil
}

// chat is a tb.Recipient for a raw chat id.
type chat int64

func (c chat) Recipient() string {
	return strconv.FormatInt(int64(c), 10)
}

// Send delivers msg to chatID. It returns when the API answers or ctx is done,
// whichever comes first. Permanent failures wrap ErrRecipientGone.
func (c *Client) Send(ctx context.Context, chatID int64, msg format.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := &tb.SendOptions{DisableWebPagePreview: msg.DisablePreview}
	if msg.Markdown {
		opts.ParseMode = tb.ModeMarkdown
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(chat(chatID), msg.Text, opts)
		done <- err
	}()

	select {
	case err := <-done:
		return classify(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRecipientGone reports whether err means the chat should be unsubscribed.
func IsRecipientGone(err error) bool {
	return errors.Is(err, ErrRecipientGone)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tb.ErrBlockedByUser) || errors.Is(err, tb.ErrChatNotFound) {
		return fmt.Errorf("%w: %v", ErrRecipientGone, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range goneMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrRecipientGone, err)
		}
	}
	return err
}

// chatReplier answers a single chat.
type chatReplier struct {
	client  *Client
	chatID  int64
	timeout time.Duration
}

func (r chatReplier) Reply(ctx context.Context, msg format.Message) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.client.Send(ctx, r.chatID, msg)
}

// Listen long-polls for messages and routes every text message through router
// until ctx is cancelled. Replies use replyTimeout per message.
func (c *Client) Listen(ctx context.Context, router *command.Router, replyTimeout time.Duration) error {
	c.bot.Handle(tb.OnText, func(m *tb.Message) {
		if m.Chat == nil {
			return
		}
		req := command.Request{ChatID: m.Chat.ID, Text: m.Text}
		if m.Sender != nil {
			req.UserID = int64(m.Sender.ID)
		}
		// Errors are logged by the router.
		_ = router.Handle(ctx, req, chatReplier{client: c, chatID: m.Chat.ID, timeout: replyTimeout})
	})

	if err := c.bot.SetCommands(botCommands); err != nil {
		c.logger.Warn("failed to register bot commands", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		c.bot.Stop()
	}()

	c.logger.Info("bot started, polling for updates")
	c.bot.Start()
	c.logger.Info("bot stopped")
	return nil
}

var botCommands = []tb.Command{
	{Text: "start", Description: "Start the bot and subscribe to updates"},
	{Text: "help", Description: "Show available commands"},
	{Text: "news", Description: "Get the latest news"},
	{Text: "price", Description: "Get the current price"},
	{Text: "stop", Description: "Unsubscribe from updates"},
}
