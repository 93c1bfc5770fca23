package calendarview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/fetch"
)

var (
	weekStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd   = weekStart.AddDate(0, 0, 7)
)

// seedWindow gives the cache a distinct event set per key so every request
// settles synchronously from a cache hit.
func seedWindow(cache *fetch.Cache[[]clinicapi.Appointment], key WindowKey, n int) {
	events := make([]clinicapi.Appointment, n)
	for i := range events {
		events[i] = clinicapi.Appointment{ID: uuid.New(), Start: key.Start.Add(time.Duration(i) * time.Hour)}
	}
	cache.Put(key.Encode(), events)
}

func TestWindowKeyEncodeNormalizesZone(t *testing.T) {
	ist := time.FixedZone("IST", 3*3600)
	local := WindowKey{Start: weekStart.In(ist), End: weekEnd.In(ist), DoctorID: "all"}
	utc := WindowKey{Start: weekStart, End: weekEnd, DoctorID: "all"}
	if local.Encode() != utc.Encode() {
		t.Fatalf("same window, different keys: %q vs %q", local.Encode(), utc.Encode())
	}
}

func TestWindowKeyEmptyDoctorIsAll(t *testing.T) {
	k := WindowKey{Start: weekStart, End: weekEnd}
	decoded, ok := DecodeWindowKey(k.Encode())
	if !ok {
		t.Fatal("DecodeWindowKey failed")
	}
	if decoded.DoctorID != AllDoctors {
		t.Fatalf("DoctorID = %q, want %q", decoded.DoctorID, AllDoctors)
	}
}

func TestDecodeWindowKeyRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "a|b", "not-a-time|also-not|all"} {
		if _, ok := DecodeWindowKey(raw); ok {
			t.Fatalf("DecodeWindowKey(%q) accepted", raw)
		}
	}
}

func TestRangeChangeFetchesWindow(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	key := WindowKey{Start: weekStart, End: weekEnd, DoctorID: AllDoctors}
	seedWindow(cache, key, 3)

	c := NewController(context.Background(), cache, nil)
	c.OnRangeChange(weekStart, weekEnd)

	if c.ActiveKey() != key.Encode() {
		t.Fatalf("ActiveKey() = %q, want %q", c.ActiveKey(), key.Encode())
	}
	if c.SettledKey() != key.Encode() {
		t.Fatalf("SettledKey() = %q, want %q", c.SettledKey(), key.Encode())
	}
	if len(c.Events()) != 3 {
		t.Fatalf("Events() = %d, want 3", len(c.Events()))
	}
}

func TestSameWindowDoesNotRefetch(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	key := WindowKey{Start: weekStart, End: weekEnd, DoctorID: AllDoctors}
	seedWindow(cache, key, 1)

	fetches := 0
	c := NewController(context.Background(), cache, func(context.Context, string) ([]clinicapi.Appointment, error) {
		fetches++
		return nil, nil
	})
	c.OnRangeChange(weekStart, weekEnd)
	c.OnRangeChange(weekStart, weekEnd)

	// Both notifications resolved from the cache; the second was not even a
	// new key issue.
	if fetches != 0 {
		t.Fatalf("re-render issued %d fetch(es)", fetches)
	}
}

func TestDoctorFilterChangeRefetches(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	all := WindowKey{Start: weekStart, End: weekEnd, DoctorID: AllDoctors}
	one := WindowKey{Start: weekStart, End: weekEnd, DoctorID: "dr-1"}
	seedWindow(cache, all, 5)
	seedWindow(cache, one, 2)

	c := NewController(context.Background(), cache, nil)
	c.OnRangeChange(weekStart, weekEnd)
	c.SetDoctorFilter("dr-1")

	if c.DoctorFilter() != "dr-1" {
		t.Fatalf("DoctorFilter() = %q", c.DoctorFilter())
	}
	if c.ActiveKey() != one.Encode() {
		t.Fatalf("ActiveKey() = %q, want %q", c.ActiveKey(), one.Encode())
	}
	if len(c.Events()) != 2 {
		t.Fatalf("Events() = %d, want the doctor-scoped set of 2", len(c.Events()))
	}
}

func TestFilterChangeBeforeRangeIsDeferred(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	fetches := 0
	c := NewController(context.Background(), cache, func(context.Context, string) ([]clinicapi.Appointment, error) {
		fetches++
		return nil, nil
	})

	// No visible range yet; nothing to fetch.
	c.SetDoctorFilter("dr-1")
	if fetches != 0 {
		t.Fatalf("filter change before any range issued %d fetch(es)", fetches)
	}
}

// waitFor polls until cond holds, for settlements that arrive off the fetch
// goroutine.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestFailedFetchRetriesOnNextRangeNotification(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	var mu sync.Mutex
	attempts := 0
	c := NewController(context.Background(), cache, func(context.Context, string) ([]clinicapi.Appointment, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, errors.New("upstream down")
		}
		return []clinicapi.Appointment{{ID: uuid.New(), Start: weekStart}}, nil
	})

	c.OnRangeChange(weekStart, weekEnd)
	waitFor(t, func() bool { return c.Err() != nil })

	// The surface notifies the same visible window again; the failed key must
	// be eligible for another issue.
	c.OnRangeChange(weekStart, weekEnd)
	waitFor(t, func() bool { return c.Err() == nil && len(c.Events()) == 1 })

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Fatalf("attempts = %d, want a retry after the failure", attempts)
	}
}

type recordingStore struct {
	mu     sync.Mutex
	events []clinicapi.Appointment
}

func (s *recordingStore) Load(events []clinicapi.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]clinicapi.Appointment(nil), events...)
}

func (s *recordingStore) Snapshot() []clinicapi.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]clinicapi.Appointment(nil), s.events...)
}

func TestEventStoreReceivesSettlementsAndServesReads(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	key := WindowKey{Start: weekStart, End: weekEnd, DoctorID: AllDoctors}
	seedWindow(cache, key, 3)

	c := NewController(context.Background(), cache, nil)
	store := &recordingStore{}
	c.SetEventStore(store)
	c.OnRangeChange(weekStart, weekEnd)

	if len(store.Snapshot()) != 3 {
		t.Fatalf("store holds %d event(s), want the settled 3", len(store.Snapshot()))
	}

	// A change staged directly in the store is what the surface renders.
	store.Load(append(store.Snapshot(), clinicapi.Appointment{ID: uuid.New(), Start: weekStart.Add(time.Hour)}))
	if len(c.Events()) != 4 {
		t.Fatalf("Events() = %d, want the store's snapshot of 4", len(c.Events()))
	}
}

func TestReloadDropsCacheForActiveWindow(t *testing.T) {
	cache := fetch.NewCache[[]clinicapi.Appointment](time.Minute)
	key := WindowKey{Start: weekStart, End: weekEnd, DoctorID: AllDoctors}
	seedWindow(cache, key, 1)

	refetched := make(chan struct{}, 1)
	c := NewController(context.Background(), cache, func(context.Context, string) ([]clinicapi.Appointment, error) {
		refetched <- struct{}{}
		return nil, nil
	})
	c.OnRangeChange(weekStart, weekEnd)

	c.Reload()
	select {
	case <-refetched:
	case <-time.After(time.Second):
		t.Fatal("Reload did not refetch the active window")
	}
}
