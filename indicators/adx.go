package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/goldtrader/market"
)

// ADX is Wilder's Average Directional Index (trend strength, 0-100).
//
// It needs period candles to seed the smoothed TR/+DM/-DM and period more DX
// values to seed the ADX: 2*period+1 candles counting the first.
type ADX struct {
	period int

	prev     market.Candle
	havePrev bool

	tr, pdm, mdm float64
	adx, dxSum   float64

	count int
	ready bool
}

func NewADX(period int) *ADX {
	if period <= 0 {
		panic("ADX period must be > 0")
	}
	return &ADX{period: period}
}

func (a *ADX) Name() string {
	return fmt.Sprintf("ADX(%d)", a.period)
}

func (a *ADX) Warmup() int {
	return 2*a.period + 1
}

func (a *ADX) Reset() {
	*a = ADX{period: a.period}
}

func (a *ADX) Update(c market.Candle) {
	if !a.havePrev {
		a.prev = c
		a.havePrev = true
		a.count = 1
		return
	}

	upMove := c.High - a.prev.High
	downMove := a.prev.Low - c.Low

	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}
	tr := trueRange(c, a.prev)

	a.prev = c
	a.count++

	p := float64(a.period)
	if a.count <= a.period+1 {
		a.tr += tr
		a.pdm += pdm
		a.mdm += mdm
		if a.count == a.period+1 {
			a.tr /= p
			a.pdm /= p
			a.mdm /= p
		}
		return
	}

	a.tr = (a.tr*(p-1) + tr) / p
	a.pdm = (a.pdm*(p-1) + pdm) / p
	a.mdm = (a.mdm*(p-1) + mdm) / p

	// Flat data: no direction to measure.
	var dx float64
	if a.tr > 0 {
		pdi := 100 * a.pdm / a.tr
		mdi := 100 * a.mdm / a.tr
		if den := pdi + mdi; den > 0 {
			dx = 100 * math.Abs(pdi-mdi) / den
		}
	}

	if a.ready {
		a.adx = (a.adx*(p-1) + dx) / p
		return
	}
	a.dxSum += dx
	if a.count == a.Warmup() {
		a.adx = a.dxSum / p
		a.ready = true
	}
}

func (a *ADX) Ready() bool {
	return a.ready
}

func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}
