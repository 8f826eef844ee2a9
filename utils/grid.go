package utils

import (
	"github.com/shopspring/decimal"
)

// Grid cells are coordinates rounded to 4 decimal places, roughly 11m of
// resolution.
const gridPrecision = 4

// GridKey maps a coordinate pair to its grid cell identity. Decimal rounding
// keeps the key stable across input precision and float formatting: every
// detection landing in the same rounded bucket gets the same key.
func GridKey(lat, lon float64) string {
	la := decimal.NewFromFloat(lat).Round(gridPrecision)
	lo := decimal.NewFromFloat(lon).Round(gridPrecision)
	return la.StringFixed(gridPrecision) + ":" + lo.StringFixed(gridPrecision)
}
