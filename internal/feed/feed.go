// Package feed binds the REST clients to the configured asset.
package feed

import (
	"context"

	"dogenews/pkg/coinmarketcap"
	"dogenews/pkg/newsdata"
)

// PriceSource returns the current quote of the tracked asset.
type PriceSource interface {
	Quote(ctx context.Context) (*coinmarketcap.Quote, error)
}

// NewsSource returns recent articles about the tracked asset, newest first.
type NewsSource interface {
	Articles(ctx context.Context) ([]newsdata.Article, error)
}

type Prices struct {
	client  *coinmarketcap.RESTClient
	symbol  string
	convert string
}

func NewPrices(client *coinmarketcap.RESTClient, symbol, convert string) *Prices {
	return &Prices{client: client, symbol: symbol, convert: convert}
}

func (p *Prices) Quote(ctx context.Context) (*coinmarketcap.Quote, error) {
	return p.client.LatestQuote(ctx, p.symbol, p.convert)
}

type News struct {
	client   *newsdata.RESTClient
	query    string
	language string
	name     string
	symbol   string
}

func NewNews(client *newsdata.RESTClient, query, language, name, symbol string) *News {
	return &News{client: client, query: query, language: language, name: name, symbol: symbol}
}

// Articles fetches the latest news and drops items not about the asset.
func (n *News) Articles(ctx context.Context) ([]newsdata.Article, error) {
	articles, err := n.client.Latest(ctx, n.query, n.language)
	if err != nil {
		return nil, err
	}
	return newsdata.FilterRelevant(articles, n.name, n.symbol), nil
}
