package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Occupancy rotation parameters
const (
	RotationInterval = 10 * time.Minute
	MinOfflineRooms  = 5
	MaxOfflineRooms  = 6
)

// ErrCatalogTooSmall is returned when there are not enough rooms to draw an
// offline set from.
var ErrCatalogTooSmall = errors.New("simulator: catalog must hold more rooms than the offline maximum")

// OccupancyState is an immutable view of the offline set
type OccupancyState struct {
	offline     map[string]struct{}
	order       []string
	RefreshedAt time.Time
}

// IsActive reports whether a room is outside the offline set.
func (s OccupancyState) IsActive(roomID string) bool {
	_, off := s.offline[roomID]
	return !off
}

// Offline returns the offline room ids in draw order.
func (s OccupancyState) Offline() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// OfflineCount returns the size of the offline set.
func (s OccupancyState) OfflineCount() int {
	return len(s.order)
}

// OccupancyOption configures an Occupancy
type OccupancyOption func(*Occupancy)

// WithLogger sets the logger used to report rotations.
func WithLogger(l *slog.Logger) OccupancyOption {
	return func(o *Occupancy) {
		o.logger = l
	}
}

// WithRefreshHook registers a callback invoked after each rotation.
func WithRefreshHook(fn func(offline []string)) OccupancyOption {
	return func(o *Occupancy) {
		o.onRefresh = fn
	}
}

// Occupancy keeps the rotating set of offline rooms. The set is replaced as a
// whole under the lock, so readers see either the old or the new set.
type Occupancy struct {
	mu          sync.Mutex
	roomIDs     []string
	rng         Rand
	state       OccupancyState
	initialized bool

	logger    *slog.Logger
	onRefresh func(offline []string)
}

// NewOccupancy creates an occupancy model over the given room ids.
func NewOccupancy(roomIDs []string, rng Rand, opts ...OccupancyOption) (*Occupancy, error) {
	if len(roomIDs) <= MaxOfflineRooms {
		return nil, fmt.Errorf("%w: have %d rooms", ErrCatalogTooSmall, len(roomIDs))
	}

	ids := make([]string, len(roomIDs))
	copy(ids, roomIDs)

	o := &Occupancy{
		roomIDs: ids,
		rng:     rng,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RefreshIfDue draws a new offline set on first use or once more than
// RotationInterval has elapsed since the last draw. It reports whether a new
// set was drawn.
func (o *Occupancy) RefreshIfDue(now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshLocked(now)
}

// State refreshes if due and returns the current offline set.
func (o *Occupancy) State(now time.Time) OccupancyState {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshLocked(now)
	return o.state
}

// IsActive refreshes if due and reports whether the room is active.
func (o *Occupancy) IsActive(roomID string, now time.Time) bool {
	return o.State(now).IsActive(roomID)
}

func (o *Occupancy) refreshLocked(now time.Time) bool {
	if o.initialized && now.Sub(o.state.RefreshedAt) <= RotationInterval {
		return false
	}

	o.state = o.draw(now)
	o.initialized = true

	o.logger.Info("updated offline rooms", "offline", o.state.order, "count", len(o.state.order))
	if o.onRefresh != nil {
		o.onRefresh(o.state.Offline())
	}
	return true
}

// draw picks k in {5,6} distinct rooms with a partial Fisher-Yates shuffle.
func (o *Occupancy) draw(now time.Time) OccupancyState {
	k := MinOfflineRooms + o.rng.IntN(MaxOfflineRooms-MinOfflineRooms+1)

	pool := make([]string, len(o.roomIDs))
	copy(pool, o.roomIDs)
	for i := 0; i < k; i++ {
		j := i + o.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	order := pool[:k:k]
	offline := make(map[string]struct{}, k)
	for _, id := range order {
		offline[id] = struct{}{}
	}
	return OccupancyState{offline: offline, order: order, RefreshedAt: now}
}
