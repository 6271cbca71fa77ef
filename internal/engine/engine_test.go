package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/malkaabi/fraudlens/internal/assetgraph"
	"github.com/malkaabi/fraudlens/internal/ensemble"
	"github.com/malkaabi/fraudlens/internal/session"
)

func newTestEngine(provider ensemble.Provider) (*Engine, *assetgraph.Graph) {
	graph := assetgraph.New(0)
	eng := New(graph, ensemble.New(provider), slog.Default())
	return eng, graph
}

func TestDecisionFor(t *testing.T) {
	tests := []struct {
		total int
		want  Decision
	}{
		{0, DecisionAllow},
		{30, DecisionAllow},
		{31, DecisionAlert},
		{60, DecisionAlert},
		{61, DecisionChallenge},
		{80, DecisionChallenge},
		{81, DecisionBlockReview},
		{100, DecisionBlockReview},
	}
	for _, tt := range tests {
		if got := DecisionFor(tt.total); got != tt.want {
			t.Errorf("DecisionFor(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestEvaluateCalmSession(t *testing.T) {
	eng, _ := newTestEngine(ensemble.StaticProvider{})

	sc := &session.Context{
		UserID:      "U1",
		DeviceKnown: true,
		HourOfDay:   session.DefaultHourOfDay,
	}

	res, err := eng.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalRisk != 0 {
		t.Errorf("total = %d, want 0", res.TotalRisk)
	}
	if res.Decision != DecisionAllow {
		t.Errorf("decision = %s, want ALLOW", res.Decision)
	}
	if len(res.Reasons) != 0 || len(res.ReasonDetails) != 0 {
		t.Errorf("reasons = %v / %v, want empty", res.Reasons, res.ReasonDetails)
	}
}

func TestEvaluateHighRiskSession(t *testing.T) {
	eng, _ := newTestEngine(ensemble.StaticProvider{})

	// All five behavioral signals plus a sensitive-too-early sequence. The
	// models stay silent, so the ensemble boost rule lifts that layer to 10.
	sc := &session.Context{
		UserID:           "U7",
		DeviceKnown:      false,
		LocationChangeKm: 800,
		HourOfDay:        3,
		OpsLast24h:       20,
		SensitiveService: true,
		ActionSequence:   []string{"login", "renew_id"},
	}

	res, err := eng.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BehaviorRisk != 50 {
		t.Errorf("behavior = %d, want cap 50", res.BehaviorRisk)
	}
	if res.EnsembleRisk != 10 {
		t.Errorf("ensemble = %d, want boost 10", res.EnsembleRisk)
	}
	if res.SequenceRisk != 10 {
		t.Errorf("sequence = %d, want 10", res.SequenceRisk)
	}
	if res.TotalRisk != 70 {
		t.Errorf("total = %d, want 70", res.TotalRisk)
	}
	if res.Decision != DecisionChallenge {
		t.Errorf("decision = %s, want CHALLENGE", res.Decision)
	}
	if len(res.Reasons) != len(res.ReasonDetails) {
		t.Errorf("reasons/details length mismatch: %d vs %d", len(res.Reasons), len(res.ReasonDetails))
	}
}

func TestEvaluateReasonOrder(t *testing.T) {
	eng, _ := newTestEngine(ensemble.StaticProvider{})

	sc := &session.Context{
		UserID:           "U2",
		DeviceKnown:      false,
		LocationChangeKm: 800,
		HourOfDay:        3,
		SensitiveService: true,
		ActionSequence:   []string{"login", "renew_id"},
	}

	res, err := eng.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Behavior codes first, then ensemble, then sequence.
	want := []string{
		"new_device",
		"big_location_jump",
		"unusual_time",
		"sensitive_service",
		"ml_models_boosted_by_behavioral_flags",
		"sensitive_too_early",
	}
	if len(res.Reasons) != len(want) {
		t.Fatalf("reasons = %v, want %v", res.Reasons, want)
	}
	for i := range want {
		if res.Reasons[i] != want[i] {
			t.Errorf("reasons[%d] = %q, want %q", i, res.Reasons[i], want[i])
		}
	}
}

func TestEvaluateGraphContribution(t *testing.T) {
	eng, graph := newTestEngine(ensemble.StaticProvider{})

	graph.RegisterFraudCase("", "dev-1", "", nil)
	graph.RegisterFraudCase("", "dev-1", "", nil)

	sc := &session.Context{
		UserID:      "U3",
		DeviceKnown: true,
		HourOfDay:   session.DefaultHourOfDay,
		DeviceID:    "dev-1",
	}

	res, err := eng.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GraphRisk != 36 {
		t.Errorf("graph = %d, want 36", res.GraphRisk)
	}
	if res.TotalRisk != 36 || res.Decision != DecisionAlert {
		t.Errorf("total = %d decision = %s, want 36 ALERT", res.TotalRisk, res.Decision)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != "shared_device_with_high_risk" {
		t.Errorf("reasons = %v", res.Reasons)
	}
	if len(res.ReasonDetails) != 1 {
		t.Errorf("details = %v", res.ReasonDetails)
	}
}

func TestEvaluateModelUnavailable(t *testing.T) {
	eng, _ := newTestEngine(ensemble.StaticProvider{Err: ensemble.ErrModelUnavailable})

	sc := &session.Context{UserID: "U4", DeviceKnown: true, HourOfDay: session.DefaultHourOfDay}

	res, err := eng.Evaluate(context.Background(), sc)
	if !errors.Is(err, ensemble.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil on failure", res)
	}
}

func TestEvaluateTotalClamped(t *testing.T) {
	eng, graph := newTestEngine(ensemble.StaticProvider{Scores: ensemble.ModelScores{
		SupervisedProb: 0.9,
		IsAnomaly:      true,
		AnomalyScore:   -0.5,
		NeuralProb:     0.9,
	}})

	for i := 0; i < 3; i++ {
		graph.RegisterFraudCase("10.0.0.1", "dev-1", "doc-1", nil)
	}

	sc := &session.Context{
		UserID:           "U5",
		DeviceKnown:      false,
		LocationChangeKm: 800,
		HourOfDay:        3,
		OpsLast24h:       20,
		SensitiveService: true,
		ActionSequence:   []string{"login", "renew_id", "issue_passport", "payment", "payment", "verify_otp", "verify_otp", "verify_otp"},
		NetworkAddress:   "10.0.0.1",
		DeviceID:         "dev-1",
		DocumentHash:     "doc-1",
	}

	res, err := eng.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalRisk != 100 {
		t.Errorf("total = %d, want clamp 100", res.TotalRisk)
	}
	if res.Decision != DecisionBlockReview {
		t.Errorf("decision = %s, want BLOCK_REVIEW", res.Decision)
	}
}
