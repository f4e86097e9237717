package anthropic

import (
	"strings"

	"go.uber.org/zap"
)

// Usage counts the tokens billed for one call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// price is USD per million tokens.
type price struct {
	input, output float64
}

// prices is keyed by model family; dated model IDs match by prefix.
var prices = []struct {
	family string
	price  price
}{
	{"claude-3-5-haiku", price{0.80, 4.00}},
	{"claude-haiku-4-5", price{1.00, 5.00}},
	{"claude-sonnet-4", price{3.00, 15.00}},
	{"claude-opus-4", price{15.00, 75.00}},
}

func priceOf(model string) (price, bool) {
	for _, p := range prices {
		if strings.HasPrefix(model, p.family) {
			return p.price, true
		}
	}
	return price{}, false
}

// CostUSD estimates the cost of u for model, or 0 when the model is unknown.
// Cache writes bill at 1.25x input and cache reads at 0.1x.
func (u Usage) CostUSD(model string) float64 {
	p, ok := priceOf(model)
	if !ok {
		return 0
	}
	const mtok = 1e6
	return float64(u.Input)/mtok*p.input +
		float64(u.Output)/mtok*p.output +
		float64(u.CacheWrite)/mtok*p.input*1.25 +
		float64(u.CacheRead)/mtok*p.input*0.1
}

// Log records u for one pipeline step.
func (u Usage) Log(model, step string) {
	zap.L().Info("llm usage",
		zap.String("provider", "anthropic"),
		zap.String("model", model),
		zap.String("step", step),
		zap.Int64("input_tokens", u.Input),
		zap.Int64("output_tokens", u.Output),
		zap.Int64("cache_write_tokens", u.CacheWrite),
		zap.Int64("cache_read_tokens", u.CacheRead),
		zap.Float64("estimated_cost_usd", u.CostUSD(model)),
	)
}
