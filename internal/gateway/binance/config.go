package binance

import (
	"net/http"
	"strings"
	"time"

	sdk "github.com/adshao/go-binance/v2"

	"tradepilot/internal/pkg/symbol"
)

const defaultRESTBaseURL = "https://api.binance.com"

type Config struct {
	RESTBaseURL string
	APIKey      string
	APISecret   string
	HTTPTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = defaultRESTBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.APISecret = strings.TrimSpace(out.APISecret)
	return out
}

func (c Config) newClient() *sdk.Client {
	client := sdk.NewClient(c.APIKey, c.APISecret)
	client.BaseURL = c.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: c.HTTPTimeout}
	return client
}

// exchangeSymbol 将 BTC/USDT 之类的写法转换为 BTCUSDT。
func exchangeSymbol(sym string) string {
	return symbol.Normalize(sym)
}
