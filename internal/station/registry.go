package station

import (
	"fmt"
	"time"

	"line_supervisor/internal/models"
)

const defaultLogCapacity = 50

// Registry owns exactly one Station per index for the life of the process.
type Registry struct {
	stations  []*Station
	operators OperatorSource
}

// OperatorSource is the allocation table shown in station views.
// aggregator.Aggregator implements it.
type OperatorSource interface {
	OperatorAt(models.StationID) *models.Operator
	// Allocations is a copy of the whole table taken at one instant.
	Allocations() map[models.StationID]models.Operator
}

type registryOptions struct {
	logCapacity int
	operators   OperatorSource
	now         func() time.Time
}

// Option configures a Registry.
type Option func(*registryOptions)

// WithLogCapacity bounds each station's log ring.
func WithLogCapacity(n int) Option {
	return func(o *registryOptions) {
		if n > 0 {
			o.logCapacity = n
		}
	}
}

// WithOperators sets the source of the operator shown in station views.
func WithOperators(src OperatorSource) Option {
	return func(o *registryOptions) { o.operators = src }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *registryOptions) { o.now = now }
}

// NewRegistry creates n stations with ids 0..n-1.
func NewRegistry(n int, opts ...Option) *Registry {
	o := registryOptions{logCapacity: defaultLogCapacity, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	var lookup OperatorLookup
	if o.operators != nil {
		lookup = o.operators.OperatorAt
	}
	r := &Registry{stations: make([]*Station, n), operators: o.operators}
	for i := range r.stations {
		r.stations[i] = newStation(models.StationID(i), o.logCapacity, lookup, o.now)
		if i > 0 {
			r.stations[i].prev = r.stations[i-1]
		}
	}
	return r
}

// Get returns the station with the given id.
func (r *Registry) Get(id models.StationID) (*Station, error) {
	if !r.Has(id) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStation, int(id))
	}
	return r.stations[id], nil
}

// Has reports whether id names a station of this line.
func (r *Registry) Has(id models.StationID) bool {
	return id >= 0 && int(id) < len(r.stations)
}

// Len is the number of stations.
func (r *Registry) Len() int { return len(r.stations) }

// IDs lists station ids in order.
func (r *Registry) IDs() []models.StationID {
	ids := make([]models.StationID, len(r.stations))
	for i := range r.stations {
		ids[i] = models.StationID(i)
	}
	return ids
}

// Terminal is the last station of the line; its completions count as production.
func (r *Registry) Terminal() models.StationID {
	return models.StationID(len(r.stations) - 1)
}

// Snapshots returns a view of every station. Each view is consistent on its own,
// and operators are resolved from one copy of the allocation table so no
// operator shows up on two stations of the same listing.
func (r *Registry) Snapshots() []models.StationView {
	var lookup OperatorLookup
	if r.operators != nil {
		table := r.operators.Allocations()
		lookup = func(id models.StationID) *models.Operator {
			op, ok := table[id]
			if !ok {
				return nil
			}
			return &op
		}
	}
	out := make([]models.StationView, len(r.stations))
	for i, s := range r.stations {
		out[i] = s.snapshotWith(lookup)
	}
	return out
}
