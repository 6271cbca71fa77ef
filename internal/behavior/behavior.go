// Package behavior scores contextual request signals against configured
// thresholds.
//
// A signal on its own is weak evidence; the same signal alongside several
// other red flags is strong evidence. Each contribution is therefore tiered
// by how many of the five signals fire together, instead of a flat weight.
package behavior

import "github.com/malkaabi/fraudlens/internal/session"

// MaxRisk caps the behavioral layer so it cannot dominate the total score.
const MaxRisk = 50

const veryHighFrequencyOps = 15

// Score evaluates the five contextual signals and returns the capped layer
// score plus the triggered reason codes in signal order.
func Score(ctx *session.Context) (int, []string) {
	sig := ctx.Signals()
	redFlags := sig.Count()

	risk := 0
	var reasons []string

	if sig.DeviceIsNew {
		switch {
		case redFlags >= 3:
			risk += 20
		case sig.Sensitive:
			risk += 18
		default:
			risk += 12
		}
		reasons = append(reasons, "new_device")
	}

	if sig.LocationJump {
		switch {
		case sig.DeviceIsNew && sig.Sensitive:
			risk += 20
		case sig.DeviceIsNew || sig.Sensitive:
			risk += 12
		default:
			// Known device, ordinary service: could be legitimate travel.
			risk += 8
		}
		reasons = append(reasons, "big_location_jump")
	}

	if sig.UnusualTime {
		if sig.DeviceIsNew {
			risk += 12
		} else {
			risk += 8
		}
		reasons = append(reasons, "unusual_time")
	}

	if sig.HighFrequency {
		if ctx.OpsLast24h > veryHighFrequencyOps {
			risk += 15
		} else {
			risk += 8
		}
		reasons = append(reasons, "high_frequency_ops")
	}

	if sig.Sensitive {
		switch {
		case redFlags >= 4:
			risk += 18
		case redFlags >= 3:
			risk += 12
		case sig.DeviceIsNew || sig.LocationJump:
			risk += 10
		default:
			risk += 8
		}
		reasons = append(reasons, "sensitive_service")
	}

	if risk > MaxRisk {
		risk = MaxRisk
	}
	return risk, reasons
}
