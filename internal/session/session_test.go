package session

import "testing"

func TestSignalsDerivation(t *testing.T) {
	sc := &Context{
		DeviceKnown:      false,
		LocationChangeKm: 501,
		HourOfDay:        2,
		OpsLast24h:       9,
		SensitiveService: true,
	}

	sig := sc.Signals()
	if !sig.DeviceIsNew || !sig.LocationJump || !sig.UnusualTime || !sig.HighFrequency || !sig.Sensitive {
		t.Errorf("signals = %+v, want all raised", sig)
	}
	if sig.Count() != 5 {
		t.Errorf("count = %d, want 5", sig.Count())
	}
}

func TestSignalsThresholdsExclusive(t *testing.T) {
	sc := &Context{
		DeviceKnown:      true,
		LocationChangeKm: 500, // not a jump, threshold is exclusive
		HourOfDay:        6,   // just past the unusual window
		OpsLast24h:       8,   // not high frequency
	}

	sig := sc.Signals()
	if sig.Count() != 0 {
		t.Errorf("signals = %+v, want none raised", sig)
	}
}
