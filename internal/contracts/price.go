package contracts

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale: bin prices are stored as integers scaled by 10^4.
const PriceScale = 10000

var priceScale = decimal.NewFromInt(PriceScale)

// NormalizePrice converts a stored integer price to its decimal value
// (123450 -> 12.345).
func NormalizePrice(raw int64) float64 {
	return decimal.NewFromInt(raw).Div(priceScale).InexactFloat64()
}

// NormalizePriceValue is NormalizePrice for untyped backend values.
func NormalizePriceValue(v interface{}) (float64, error) {
	if v == nil {
		return 0, nil
	}
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return 0, fmt.Errorf("normalize price %q: %w", x, err)
		}
		return d.Div(priceScale).InexactFloat64(), nil
	case float64:
		return decimal.NewFromFloat(x).Div(priceScale).InexactFloat64(), nil
	}
	raw, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("normalize price: unsupported type %T", v)
	}
	return NormalizePrice(raw), nil
}
