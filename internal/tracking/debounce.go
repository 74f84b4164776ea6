package tracking

import (
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// MinDwell is how long a location reading must persist before it counts.
const MinDwell = 750 * time.Millisecond

// Debouncer filters a flickering location signal into stable transitions.
type Debouncer struct {
	dwell      time.Duration
	lastSeen   model.Location
	lastSeenAt time.Time
	hasSeen    bool
	stable     model.Location
	hasStable  bool
}

// NewDebouncer returns a debouncer with no stable location.
func NewDebouncer(dwell time.Duration) *Debouncer {
	return &Debouncer{dwell: dwell}
}

// NewSeededDebouncer returns a debouncer that already considers loc stable.
func NewSeededDebouncer(loc model.Location, at time.Time, dwell time.Duration) *Debouncer {
	return &Debouncer{
		dwell:      dwell,
		lastSeen:   loc,
		lastSeenAt: at,
		hasSeen:    true,
		stable:     loc,
		hasStable:  true,
	}
}

// Update feeds one reading and reports whether the stable location changed.
func (d *Debouncer) Update(loc model.Location, now time.Time) bool {
	if !d.hasSeen || loc != d.lastSeen {
		d.lastSeen = loc
		d.lastSeenAt = now
		d.hasSeen = true
		return false
	}
	if d.hasStable && d.stable == loc {
		return false
	}
	if now.Sub(d.lastSeenAt) >= d.dwell {
		d.stable = loc
		d.hasStable = true
		return true
	}
	return false
}

// Current returns the stable location, if any.
func (d *Debouncer) Current() (model.Location, bool) {
	return d.stable, d.hasStable
}

// Reset forgets all readings.
func (d *Debouncer) Reset() {
	*d = Debouncer{dwell: d.dwell}
}
