// Package format renders bot replies and broadcasts as Telegram Markdown.
package format

import (
	"fmt"
	"strings"

	"dogenews/pkg/coinmarketcap"
	"dogenews/pkg/newsdata"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message is one outgoing Telegram message.
type Message struct {
	Text           string
	Markdown       bool
	DisablePreview bool
}

func Plain(text string) Message {
	return Message{Text: text}
}

const (
	UnknownCommand = "Unknown command. Use /help to see available commands."
	Failure        = "Sorry, something went wrong. Please try again later."

	maxDescriptionRunes = 600
)

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes characters that start entities in Telegram's legacy Markdown.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Legacy Markdown has no escapes inside an entity, so entity markers are dropped instead.
var boldSanitizer = strings.NewReplacer(
	`*`, ``,
	`_`, ` `,
	"`", ``,
)

// bold wraps s in a bold entity.
func bold(s string) string {
	return "*" + boldSanitizer.Replace(s) + "*"
}

// Formatter builds the texts for one tracked asset.
type Formatter struct {
	name    string // display name, e.g. "Dogecoin"
	printer *message.Printer
}

func New(assetName string) *Formatter {
	return &Formatter{
		name:    assetName,
		printer: message.NewPrinter(language.English),
	}
}

func (f *Formatter) Welcome() Message {
	return Plain(fmt.Sprintf(
		"👋 Welcome to the %s News Bot!\n\n"+
			"I'll keep you updated with the latest news and price updates about %s. "+
			"Use /help to see available commands.", f.name, f.name))
}

func (f *Formatter) Help() Message {
	return Plain(fmt.Sprintf(
		"🤖 Available commands:\n\n"+
			"/start - Start the bot and subscribe to updates\n"+
			"/help - Show this help message\n"+
			"/news - Get the latest %s news\n"+
			"/price - Get current %s price\n"+
			"/stop - Unsubscribe from updates", f.name, f.name))
}

func (f *Formatter) Unsubscribed() Message {
	return Plain(fmt.Sprintf("You've been unsubscribed from %s updates. Send /start to subscribe again.", f.name))
}

func (f *Formatter) FetchingPrice() Message {
	return Plain(fmt.Sprintf("🔍 Fetching latest %s price...", f.name))
}

func (f *Formatter) FetchingNews() Message {
	return Plain(fmt.Sprintf("🔍 Fetching latest %s news...", f.name))
}

func (f *Formatter) NoNews() Message {
	return Plain(fmt.Sprintf("Sorry, I couldn't find any recent news about %s. Please try again later.", f.name))
}

// Price renders a quote. A nil quote yields the "unavailable" text.
func (f *Formatter) Price(q *coinmarketcap.Quote) Message {
	if q == nil {
		return Plain(fmt.Sprintf("Sorry, couldn't fetch %s price data at the moment.", f.name))
	}
	return Message{Text: f.priceSection(q), Markdown: true}
}

// Article renders one news item for a /news reply.
func (f *Formatter) Article(a newsdata.Article) Message {
	return Message{Text: articleSection(a), Markdown: true, DisablePreview: true}
}

// Broadcast combines whatever data is available into one message.
// It reports false when there is nothing to send.
func (f *Formatter) Broadcast(q *coinmarketcap.Quote, articles []newsdata.Article) (Message, bool) {
	var sections []string
	if q != nil {
		sections = append(sections, f.priceSection(q))
	}
	if len(articles) > 0 {
		sections = append(sections, fmt.Sprintf("🔄 Here's your %s news update:", f.name))
		for _, a := range articles {
			sections = append(sections, articleSection(a))
		}
	}
	if len(sections) == 0 {
		return Message{}, false
	}
	return Message{
		Text:           strings.Join(sections, "\n\n"),
		Markdown:       true,
		DisablePreview: true,
	}, true
}

func (f *Formatter) priceSection(q *coinmarketcap.Quote) string {
	return fmt.Sprintf(
		"🐕 %s\n\n"+
			"💰 Price: %s\n"+
			"📈 24h Change: %.2f%%\n"+
			"💎 Market Cap: %s",
		bold(f.name+" Price Update"),
		money(q.Convert, fmt.Sprintf("%.6f", q.Price)),
		q.PercentChange24h,
		money(q.Convert, f.printer.Sprintf("%.2f", q.MarketCap)),
	)
}

func articleSection(a newsdata.Article) string {
	description := a.Description
	if description == "" {
		description = "No description available."
	}
	pubDate := a.PubDate
	if pubDate == "" {
		pubDate = "Date not available"
	}

	return fmt.Sprintf(
		"📰 %s\n\n%s\n\n🔗 [Read more](%s)\n📅 Published: %s",
		bold(a.Title),
		EscapeMarkdown(truncateRunes(description, maxDescriptionRunes)),
		a.Link,
		EscapeMarkdown(pubDate),
	)
}

func money(currency, amount string) string {
	if currency == "USD" {
		return "$" + amount
	}
	return amount + " " + currency
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
