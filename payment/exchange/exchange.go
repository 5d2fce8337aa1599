// Package exchange converts between the currencies exchange agents trade.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/imroc/req/v3"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const cacheDuration = 5 * time.Minute

var ErrUnsupported = errors.New("unsupported currency")

// defaultRates are USD per unit, used until a fetch succeeds.
var defaultRates = map[string]float64{
	"USD": 1.0,
	"NGN": 0.00065,
	"GBP": 1.27,
	"EUR": 1.08,
	"CAD": 0.73,
	"GHS": 0.065,
	"CNY": 0.14,
}

// Converter fetches ER-API style rates (units of each currency per USD)
// and caches them.
type Converter struct {
	http *req.Client
	url  string
	log  *logrus.Logger

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
	now       func() time.Time
}

func NewConverter(ratesURL string, log *logrus.Logger) *Converter {
	return &Converter{
		http:  req.C().SetTimeout(10 * time.Second),
		url:   ratesURL,
		log:   log,
		rates: copyRates(defaultRates),
		now:   time.Now,
	}
}

func copyRates(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (c *Converter) fetch(ctx context.Context) (map[string]float64, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("rates endpoint returned %s", resp.Status)
	}
	body := resp.Bytes()
	if result := gjson.GetBytes(body, "result"); result.Exists() && result.String() != "success" {
		return nil, fmt.Errorf("rates endpoint result %q", result.String())
	}

	rates := make(map[string]float64)
	gjson.GetBytes(body, "rates").ForEach(func(code, v gjson.Result) bool {
		// 1 USD = v units, so 1 unit = 1/v USD
		if f := v.Float(); f > 0 {
			rates[strings.ToUpper(code.String())] = 1.0 / f
		}
		return true
	})
	if len(rates) == 0 {
		return nil, errors.New("rates endpoint returned no rates")
	}
	rates["USD"] = 1.0
	for k, v := range defaultRates {
		if _, ok := rates[k]; !ok {
			rates[k] = v
		}
	}
	return rates, nil
}

// Rates returns the current table, refreshing it when stale. A failed
// refresh keeps the previous table.
func (c *Converter) Rates(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.now().Sub(c.fetchedAt) > cacheDuration {
		rates, err := c.fetch(ctx)
		if err != nil {
			c.log.WithError(err).Warn("exchange: using cached rates")
		} else {
			c.rates = rates
		}
		// back off either way
		c.fetchedAt = c.now()
	}
	return c.rates
}

// Convert converts amount of from into to.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	rates := c.Rates(ctx)
	rA, ok1 := rates[from]
	rB, ok2 := rates[to]
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%s or %s: %w", from, to, ErrUnsupported)
	}
	return amount * (rA / rB), nil
}
