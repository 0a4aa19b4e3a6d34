package newsdata

import (
	"strings"

	"github.com/samber/lo"
)

// cryptoKeywords disambiguate a bare ticker mention ("doge" the meme vs. the coin).
var cryptoKeywords = []string{
	"cryptocurrency", "crypto", "coin", "token", "blockchain", "trading", "price", "market",
}

// FilterRelevant keeps articles that name the asset in the title or description,
// or mention its ticker together with a crypto keyword.
func FilterRelevant(articles []Article, name, symbol string) []Article {
	name = strings.ToLower(name)
	symbol = strings.ToLower(symbol)

	return lo.Filter(articles, func(a Article, _ int) bool {
		content := strings.ToLower(a.Title + " " + a.Description)
		if name != "" && strings.Contains(content, name) {
			return true
		}
		if symbol == "" || !strings.Contains(content, symbol) {
			return false
		}
		return lo.SomeBy(cryptoKeywords, func(k string) bool {
			return strings.Contains(content, k)
		})
	})
}
