package adsb

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// CPRSample is one stored CPR position report
type CPRSample struct {
	Lat  uint32
	Lon  uint32
	Time time.Time
}

// RecordState describes which CPR slots of an aircraft are populated
type RecordState uint8

const (
	StateEmpty RecordState = iota
	StateHasEven
	StateHasOdd
	StateHasBoth
)

// String returns a short label for the state
func (s RecordState) String() string {
	switch s {
	case StateHasEven:
		return "has-even"
	case StateHasOdd:
		return "has-odd"
	case StateHasBoth:
		return "has-both"
	default:
		return "empty"
	}
}

// AircraftRecord keeps the latest even and odd CPR sample of one aircraft.
// Updates are serialized per record.
type AircraftRecord struct {
	ICAO string

	mu   sync.Mutex
	even *CPRSample
	odd  *CPRSample
}

// Update overwrites the slot for the given parity and returns copies of
// both slots as they stand after the update. A sample older than the one
// already held in its slot is dropped.
func (r *AircraftRecord) Update(parity Parity, sample CPRSample) (even, odd *CPRSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := &r.even
	if parity == Odd {
		slot = &r.odd
	}
	if *slot == nil || !sample.Time.Before((*slot).Time) {
		s := sample
		*slot = &s
	}

	return r.snapshotLocked()
}

// Snapshot returns copies of both slots
func (r *AircraftRecord) Snapshot() (even, odd *CPRSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

func (r *AircraftRecord) snapshotLocked() (even, odd *CPRSample) {
	if r.even != nil {
		e := *r.even
		even = &e
	}
	if r.odd != nil {
		o := *r.odd
		odd = &o
	}
	return even, odd
}

// State reports which slots are populated
func (r *AircraftRecord) State() RecordState {
	even, odd := r.Snapshot()

	switch {
	case even != nil && odd != nil:
		return StateHasBoth
	case even != nil:
		return StateHasEven
	case odd != nil:
		return StateHasOdd
	default:
		return StateEmpty
	}
}

// AircraftStore owns the per-ICAO CPR state. With a zero TTL records are
// kept for the lifetime of the store; otherwise a record not seen for ttl
// is evicted.
type AircraftStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewAircraftStore creates an aircraft store
func NewAircraftStore(ttl time.Duration) *AircraftStore {
	if ttl <= 0 {
		return &AircraftStore{cache: cache.New(cache.NoExpiration, 0)}
	}

	return &AircraftStore{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

// Record returns the record for icao, creating it on first sighting.
// Seeing an aircraft again refreshes its TTL.
func (s *AircraftStore) Record(icao string) *AircraftRecord {
	for {
		if v, found := s.cache.Get(icao); found {
			rec := v.(*AircraftRecord)
			if s.ttl > 0 {
				s.cache.SetDefault(icao, rec)
			}
			return rec
		}

		rec := &AircraftRecord{ICAO: icao}
		if err := s.cache.Add(icao, rec, cache.DefaultExpiration); err == nil {
			return rec
		}
		// Another goroutine created it first
	}
}

// lookup returns the record for icao without creating it
func (s *AircraftStore) lookup(icao string) (*AircraftRecord, bool) {
	v, found := s.cache.Get(icao)
	if !found {
		return nil, false
	}
	return v.(*AircraftRecord), true
}

// Delete removes the record for icao
func (s *AircraftStore) Delete(icao string) {
	s.cache.Delete(icao)
}

// Len returns the number of tracked aircraft. Expired records that have
// not been swept yet are included.
func (s *AircraftStore) Len() int {
	return s.cache.ItemCount()
}
