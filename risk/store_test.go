package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := NewStore(DefaultParameters())
	assert.True(t, s.UpdatedAt().IsZero())

	bad := DefaultParameters()
	bad.FreeMargin = math.Inf(1)
	assert.ErrorIs(t, s.Set(bad), ErrInvalidParameters)
	assert.Equal(t, DefaultParameters(), s.Get())

	good := DefaultParameters()
	good.FreeMargin = 5000
	require.NoError(t, s.Set(good))
	assert.InDelta(t, 5000, s.Get().FreeMargin, 1e-12)
	assert.False(t, s.UpdatedAt().IsZero())
}

func TestStoreGetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore(DefaultParameters())
	p := s.Get()
	p.AccountEquity = 1
	assert.InDelta(t, 10000, s.Get().AccountEquity, 1e-12)
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()

	s := NewStore(DefaultParameters())
	require.NoError(t, s.Update(func(p *SizingParameters) error { p.OpenPositions = 3; return nil }))
	assert.Equal(t, 3, s.Get().OpenPositions)

	err := s.Update(func(p *SizingParameters) error { p.DailyVolumeTarget = 0; return nil })
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.InDelta(t, 75, s.Get().DailyVolumeTarget, 1e-12)

	boom := errors.New("boom")
	err = s.Update(func(p *SizingParameters) error { p.OpenPositions = 9; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, s.Get().OpenPositions)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *SizingParameters)
	}{
		{"nan equity", func(p *SizingParameters) { p.AccountEquity = math.NaN() }},
		{"zero margin per lot", func(p *SizingParameters) { p.MarginPerLot = 0 }},
		{"zero max daily risk", func(p *SizingParameters) { p.MaxDailyRisk = 0 }},
		{"zero daily target", func(p *SizingParameters) { p.DailyVolumeTarget = 0 }},
		{"negative recovery count", func(p *SizingParameters) { p.RecoveryPositions = -1 }},
	}

	require.NoError(t, DefaultParameters().Validate())
	for _, tt := range tests {
		p := DefaultParameters()
		tt.mutate(&p)
		assert.ErrorIs(t, p.Validate(), ErrInvalidParameters, tt.name)
	}
}
