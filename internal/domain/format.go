package domain

import "github.com/shopspring/decimal"

var volumeUnits = []struct {
	threshold decimal.Decimal
	suffix    string
}{
	{decimal.New(1, 9), "B"},
	{decimal.New(1, 6), "M"},
	{decimal.New(1, 3), "K"},
}

// FormatVolume abbreviates large numbers: 1.5e9 -> "1.50B", 45200000 -> "45.20M".
// Values below one thousand are printed as-is.
func FormatVolume(v decimal.Decimal) string {
	for _, u := range volumeUnits {
		if v.GreaterThanOrEqual(u.threshold) {
			return v.Div(u.threshold).StringFixed(2) + u.suffix
		}
	}
	return v.String()
}
