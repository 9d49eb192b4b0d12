// market/instruments.go
package market

import "fmt"

// Gold is the only instrument the sizer trades.
const Gold = "XAUUSD"

type InstrumentMeta struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string

	// Contract and tick constants. For XAUUSD one lot is 100 troy ounces
	// and one point is a 0.01 move in price.
	ContractSize float64
	TickSize     float64
	PointValue   float64

	MinLot     float64
	MaxLot     float64
	LotStep    float64
	MarginRate float64 // 0.005 -> 1:200 leverage
}

var Instruments = map[string]InstrumentMeta{
	"XAUUSD": {
		Name:          "XAUUSD",
		BaseCurrency:  "XAU",
		QuoteCurrency: "USD",
		ContractSize:  100,
		TickSize:      0.01,
		PointValue:    0.01,
		MinLot:        0.01,
		MaxLot:        10.0,
		LotStep:       0.01,
		MarginRate:    0.005,
	},
}

// Lookup returns the metadata for instrument. Broker suffixes such as
// "XAUUSD.v" are accepted.
func Lookup(instrument string) (InstrumentMeta, error) {
	if meta, ok := Instruments[instrument]; ok {
		return meta, nil
	}
	for name, meta := range Instruments {
		if len(instrument) > len(name) && instrument[:len(name)] == name && instrument[len(name)] == '.' {
			return meta, nil
		}
	}
	return InstrumentMeta{}, fmt.Errorf("unknown instrument %s", instrument)
}

// MarginPerLot is the margin, in quote currency, needed to hold one lot at price.
func (m InstrumentMeta) MarginPerLot(price float64) float64 {
	return m.ContractSize * price * m.MarginRate
}

// LotMargin returns the margin required for lots at price, converted to the
// account currency.
func LotMargin(lots, price float64, meta InstrumentMeta, quoteToAccount float64) float64 {
	if lots < 0 {
		lots = -lots
	}
	return lots * meta.MarginPerLot(price) * quoteToAccount
}
