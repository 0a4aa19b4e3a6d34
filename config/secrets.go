package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SecretsConfig names the SSM Parameter Store entries holding credentials.
// They are only consulted when environment is "prod" and the value is not set otherwise.
type SecretsConfig struct {
	TelegramTokenParam    string `mapstructure:"telegram_token_param"`
	CoinMarketCapKeyParam string `mapstructure:"coinmarketcap_key_param"`
	NewsDataKeyParam      string `mapstructure:"newsdata_key_param"`
	PostgresPasswordParam string `mapstructure:"postgres_password_param"`
}

// ParameterGetter is the subset of the SSM client used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewParameterStore builds an SSM client from the default AWS credential chain.
func NewParameterStore(ctx context.Context) (ParameterGetter, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// NeedsSecrets reports whether ResolveSecrets has anything to look up.
func (c *Config) NeedsSecrets() bool {
	if c.Environment != "prod" {
		return false
	}
	for _, t := range c.secretTargets() {
		if *t.dst == "" && t.param != "" {
			return true
		}
	}
	return false
}

// ResolveSecrets fills empty credentials from Parameter Store in prod.
func (c *Config) ResolveSecrets(ctx context.Context, store ParameterGetter) error {
	if c.Environment != "prod" {
		return nil
	}

	for _, t := range c.secretTargets() {
		if *t.dst != "" || t.param == "" {
			continue
		}
		value, err := getParameterStoreValue(ctx, store, t.param)
		if err != nil {
			return err
		}
		*t.dst = value
	}
	return nil
}

type secretTarget struct {
	param string
	dst   *string
}

func (c *Config) secretTargets() []secretTarget {
	return []secretTarget{
		{c.Secrets.TelegramTokenParam, &c.Telegram.Token},
		{c.Secrets.CoinMarketCapKeyParam, &c.CoinMarketCap.APIKey},
		{c.Secrets.NewsDataKeyParam, &c.NewsData.APIKey},
		{c.Secrets.PostgresPasswordParam, &c.Postgres.Password},
	}
}

func getParameterStoreValue(ctx context.Context, store ParameterGetter, name string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	input := &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	}

	result, err := store.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	return *result.Parameter.Value, nil
}
