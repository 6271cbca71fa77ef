// Package session defines the per-request evaluation input.
package session

// Context carries the contextual signals and action sequence for a single
// user session. It is request-scoped and immutable once built.
type Context struct {
	UserID           string
	DeviceKnown      bool
	LocationChangeKm float64
	HourOfDay        int
	OpsLast24h       int
	SensitiveService bool
	ActionSequence   []string

	// Optional asset identifiers. Empty string means absent.
	NetworkAddress string
	DeviceID       string
	DocumentHash   string
}

// Signals are the five boolean red-flag signals derived from a Context.
// Both the behavioral layer and the ensemble boost rule read the same set.
type Signals struct {
	DeviceIsNew   bool
	LocationJump  bool
	UnusualTime   bool
	HighFrequency bool
	Sensitive     bool
}

// DefaultHourOfDay is used when a request omits the hour entirely.
const DefaultHourOfDay = 12

const (
	locationJumpKm   = 500
	highFrequencyOps = 8
	unusualHourStart = 2
	unusualHourEnd   = 5
)

// Signals derives the red-flag booleans from the context.
func (c *Context) Signals() Signals {
	return Signals{
		DeviceIsNew:   !c.DeviceKnown,
		LocationJump:  c.LocationChangeKm > locationJumpKm,
		UnusualTime:   c.HourOfDay >= unusualHourStart && c.HourOfDay <= unusualHourEnd,
		HighFrequency: c.OpsLast24h > highFrequencyOps,
		Sensitive:     c.SensitiveService,
	}
}

// Count returns how many signals are raised.
func (s Signals) Count() int {
	n := 0
	for _, b := range []bool{s.DeviceIsNew, s.LocationJump, s.UnusualTime, s.HighFrequency, s.Sensitive} {
		if b {
			n++
		}
	}
	return n
}
