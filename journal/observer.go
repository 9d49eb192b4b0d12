package journal

import (
	"github.com/rs/zerolog"

	"github.com/rustyeddy/goldtrader/risk"
)

// Observer writes every sizing result to a journal. Write errors are logged,
// never returned to the sizer.
type Observer struct {
	j      Journal
	params func() risk.SizingParameters
	log    zerolog.Logger
}

// NewObserver journals results; params supplies the symbol and session
// recorded alongside them.
func NewObserver(j Journal, params func() risk.SizingParameters, log zerolog.Logger) *Observer {
	return &Observer{j: j, params: params, log: log.With().Str("component", "journal").Logger()}
}

func (o *Observer) SizingCalculated(res risk.SizingResult) {
	var p risk.SizingParameters
	if o.params != nil {
		p = o.params()
	}
	if err := o.j.RecordSizing(FromResult(res, p)); err != nil {
		o.log.Warn().Err(err).Msg("record sizing")
	}
}

func (o *Observer) RefreshFailed(error) {}
