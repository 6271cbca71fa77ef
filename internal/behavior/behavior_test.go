package behavior

import (
	"reflect"
	"testing"

	"github.com/malkaabi/fraudlens/internal/session"
)

func calmContext() *session.Context {
	return &session.Context{
		UserID:      "U1",
		DeviceKnown: true,
		HourOfDay:   session.DefaultHourOfDay,
	}
}

func TestScoreCalmSession(t *testing.T) {
	risk, reasons := Score(calmContext())
	if risk != 0 || len(reasons) != 0 {
		t.Errorf("calm session scored %d %v, want 0 and no reasons", risk, reasons)
	}
}

func TestScoreNewDeviceAlone(t *testing.T) {
	sc := calmContext()
	sc.DeviceKnown = false

	risk, reasons := Score(sc)
	if risk != 12 {
		t.Errorf("risk = %d, want 12 (single weak signal)", risk)
	}
	if !reflect.DeepEqual(reasons, []string{"new_device"}) {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestScoreNewDeviceOnSensitiveService(t *testing.T) {
	sc := calmContext()
	sc.DeviceKnown = false
	sc.SensitiveService = true

	// new_device 18 (sensitive pairing) + sensitive_service 10 (with new device)
	risk, reasons := Score(sc)
	if risk != 28 {
		t.Errorf("risk = %d, want 28", risk)
	}
	want := []string{"new_device", "sensitive_service"}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("reasons = %v, want %v", reasons, want)
	}
}

func TestScoreLegitimateTravel(t *testing.T) {
	sc := calmContext()
	sc.LocationChangeKm = 800

	risk, reasons := Score(sc)
	if risk != 8 {
		t.Errorf("risk = %d, want 8 (known device, ordinary service)", risk)
	}
	if !reflect.DeepEqual(reasons, []string{"big_location_jump"}) {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestScoreVeryHighFrequency(t *testing.T) {
	sc := calmContext()
	sc.OpsLast24h = 20

	risk, _ := Score(sc)
	if risk != 15 {
		t.Errorf("risk = %d, want 15 for >15 ops", risk)
	}

	sc.OpsLast24h = 10
	risk, _ = Score(sc)
	if risk != 8 {
		t.Errorf("risk = %d, want 8 for moderate frequency", risk)
	}
}

func TestScoreAllSignalsCapped(t *testing.T) {
	sc := &session.Context{
		UserID:           "U1",
		DeviceKnown:      false,
		LocationChangeKm: 800,
		HourOfDay:        3,
		OpsLast24h:       20,
		SensitiveService: true,
	}

	// 20+20+12+15+18 = 85, capped at the layer maximum.
	risk, reasons := Score(sc)
	if risk != MaxRisk {
		t.Errorf("risk = %d, want cap %d", risk, MaxRisk)
	}
	want := []string{"new_device", "big_location_jump", "unusual_time", "high_frequency_ops", "sensitive_service"}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("reasons = %v, want %v", reasons, want)
	}
}

func TestScoreUnusualTimeBounds(t *testing.T) {
	for _, hour := range []int{2, 3, 4, 5} {
		sc := calmContext()
		sc.HourOfDay = hour
		if risk, _ := Score(sc); risk != 8 {
			t.Errorf("hour %d: risk = %d, want 8", hour, risk)
		}
	}
	for _, hour := range []int{0, 1, 6, 23} {
		sc := calmContext()
		sc.HourOfDay = hour
		if risk, _ := Score(sc); risk != 0 {
			t.Errorf("hour %d: risk = %d, want 0", hour, risk)
		}
	}
}
