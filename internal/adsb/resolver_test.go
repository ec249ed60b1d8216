package adsb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bookEven = CPRReport{Kind: CPRAirborneBaro, Parity: Even, Lat: 93000, Lon: 51372}
	bookOdd  = CPRReport{Kind: CPRAirborneBaro, Parity: Odd, Lat: 74158, Lon: 50194}
)

func TestResolverNeedsBothParities(t *testing.T) {
	resolver := NewResolver(NewAircraftStore(0))
	now := time.Now()

	for i := 0; i < 3; i++ {
		fix, err := resolver.Observe("40621D", bookEven, now.Add(time.Duration(i)*time.Second))
		assert.NoError(t, err)
		assert.Nil(t, fix)
	}
}

func TestResolverCanonicalPair(t *testing.T) {
	store := NewAircraftStore(0)
	resolver := NewResolver(store, WithLogger(quietLogger()))
	now := time.Now()

	fix, err := resolver.Observe("40621D", bookOdd, now)
	require.NoError(t, err)
	assert.Nil(t, fix)

	fix, err = resolver.Observe("40621D", bookEven, now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, fix)

	assert.True(t, fix.Valid())
	assert.Equal(t, "40621D", fix.ICAO)
	assert.Equal(t, Even, fix.Parity)
	assert.InDelta(t, 52.2572, fix.Position.Latitude, 0.01)
	assert.InDelta(t, 3.9194, fix.Position.Longitude, 0.01)

	record, ok := store.lookup("40621D")
	require.True(t, ok)
	assert.Equal(t, StateHasBoth, record.State())
}

func TestResolverUsesNewerFrameAsReference(t *testing.T) {
	resolver := NewResolver(NewAircraftStore(0))
	now := time.Now()

	_, err := resolver.Observe("40621D", bookEven, now)
	require.NoError(t, err)

	fix, err := resolver.Observe("40621D", bookOdd, now.Add(500*time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.Equal(t, Odd, fix.Parity)
	assert.InDelta(t, 52.2658, fix.Position.Latitude, 0.001)
}

func TestResolverFreshness(t *testing.T) {
	tests := []struct {
		name    string
		gap     time.Duration
		maxAge  time.Duration
		expects bool
	}{
		{name: "within window", gap: 9 * time.Second, maxAge: DefaultMaxPairAge, expects: true},
		{name: "at the limit", gap: 10 * time.Second, maxAge: DefaultMaxPairAge, expects: true},
		{name: "stale", gap: 11 * time.Second, maxAge: DefaultMaxPairAge, expects: false},
		{name: "custom window", gap: 3 * time.Second, maxAge: 2 * time.Second, expects: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(NewAircraftStore(0), WithMaxPairAge(tt.maxAge))
			now := time.Now()

			_, err := resolver.Observe("40621D", bookOdd, now)
			require.NoError(t, err)

			fix, err := resolver.Observe("40621D", bookEven, now.Add(tt.gap))
			require.NoError(t, err)
			assert.Equal(t, tt.expects, fix != nil)
		})
	}
}

func TestResolverRejectsSamplesAfterEvaluation(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
	}{
		{name: "far ahead", gap: 20 * time.Second},
		{name: "slightly ahead", gap: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(NewAircraftStore(0))
			now := time.Now()

			_, err := resolver.Observe("40621D", bookEven, now.Add(tt.gap))
			require.NoError(t, err)

			// A report handled late, from an earlier buffer
			fix, err := resolver.Observe("40621D", bookOdd, now)
			require.NoError(t, err)
			assert.Nil(t, fix)
		})
	}
}

func TestResolverStalePairRecovers(t *testing.T) {
	resolver := NewResolver(NewAircraftStore(0))
	now := time.Now()

	_, _ = resolver.Observe("40621D", bookOdd, now)
	fix, _ := resolver.Observe("40621D", bookEven, now.Add(30*time.Second))
	assert.Nil(t, fix)

	// A fresh odd report pairs with the stored even one
	fix, err := resolver.Observe("40621D", bookOdd, now.Add(31*time.Second))
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.Equal(t, Odd, fix.Parity)
}

func TestResolverDegenerateKeepsState(t *testing.T) {
	store := NewAircraftStore(0)
	resolver := NewResolver(store)
	now := time.Now()

	_, err := resolver.Observe("ABCDEF", CPRReport{Parity: Even, Lat: 87380}, now)
	require.NoError(t, err)

	fix, err := resolver.Observe("ABCDEF", CPRReport{Parity: Odd, Lat: 55338}, now.Add(time.Second))
	assert.ErrorIs(t, err, ErrDegenerateLongitudeZone)
	require.NotNil(t, fix)
	assert.False(t, fix.Valid())
	assert.ErrorIs(t, fix.Err, ErrDegenerateLongitudeZone)
	assert.Contains(t, fix.Err.Error(), "ABCDEF")

	record, ok := store.lookup("ABCDEF")
	require.True(t, ok)
	assert.Equal(t, StateHasBoth, record.State())
}

func TestResolverSeparatesAircraft(t *testing.T) {
	resolver := NewResolver(NewAircraftStore(0))
	now := time.Now()

	_, _ = resolver.Observe("40621D", bookOdd, now)
	fix, err := resolver.Observe("4840D6", bookEven, now)
	require.NoError(t, err)
	assert.Nil(t, fix)
}
