package risk

import (
	"context"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/market"
)

// The refresher reads from these when they are set. Any of them may be nil;
// the fields they feed then keep their current values.

type AccountSource interface {
	GetAccount(ctx context.Context) (broker.Account, error)
}

type PositionSource interface {
	OpenPositions(ctx context.Context) ([]broker.Position, error)
}

type MarketSource interface {
	Snapshot(ctx context.Context) (market.Snapshot, error)
}

type RecoverySource interface {
	ActiveRecoveries(ctx context.Context) (int, error)
}

// Observer is notified of sizing and refresh events. Calls are synchronous.
type Observer interface {
	SizingCalculated(res SizingResult)
	RefreshFailed(err error)
}

type nopObserver struct{}

func (nopObserver) SizingCalculated(SizingResult) {}
func (nopObserver) RefreshFailed(error)           {}

type multiObserver []Observer

// MultiObserver fans events out to every non-nil observer, in order.
func MultiObserver(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) SizingCalculated(res SizingResult) {
	for _, o := range m {
		o.SizingCalculated(res)
	}
}

func (m multiObserver) RefreshFailed(err error) {
	for _, o := range m {
		o.RefreshFailed(err)
	}
}
