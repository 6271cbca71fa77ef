// Package engine aggregates the four risk layers into a total score and a
// decision with explainable reasons.
package engine

import (
	"context"
	"log/slog"

	"github.com/malkaabi/fraudlens/internal/assetgraph"
	"github.com/malkaabi/fraudlens/internal/behavior"
	"github.com/malkaabi/fraudlens/internal/ensemble"
	"github.com/malkaabi/fraudlens/internal/reason"
	"github.com/malkaabi/fraudlens/internal/sequence"
	"github.com/malkaabi/fraudlens/internal/session"
	"github.com/malkaabi/fraudlens/internal/traces"
)

// Decision is the discrete outcome tier for an evaluation.
type Decision string

const (
	DecisionAllow       Decision = "ALLOW"
	DecisionAlert       Decision = "ALERT"
	DecisionChallenge   Decision = "CHALLENGE"
	DecisionBlockReview Decision = "BLOCK_REVIEW"
)

// Decision thresholds over the clamped total score.
const (
	allowMax     = 30
	alertMax     = 60
	challengeMax = 80
	maxTotalRisk = 100
)

// Result is the full evaluation output.
type Result struct {
	BehaviorRisk  int      `json:"behaviorRisk"`
	EnsembleRisk  int      `json:"ensembleRisk"`
	SequenceRisk  int      `json:"sequenceRisk"`
	GraphRisk     int      `json:"graphRisk"`
	TotalRisk     int      `json:"totalRisk"`
	Decision      Decision `json:"decision"`
	Reasons       []string `json:"reasons"`
	ReasonDetails []string `json:"reasonDetails"`
}

// Engine runs the layers in data-dependency order. All layers are pure
// given their inputs; the asset graph is the only shared state and is
// injected, never reached for globally.
type Engine struct {
	graph    *assetgraph.Graph
	ensemble *ensemble.Layer
	logger   *slog.Logger
}

// New creates an evaluation engine.
func New(graph *assetgraph.Graph, ens *ensemble.Layer, logger *slog.Logger) *Engine {
	return &Engine{graph: graph, ensemble: ens, logger: logger}
}

// Evaluate scores a session and maps the total to a decision. The error is
// non-nil only when the model provider is unavailable (wrapping
// ensemble.ErrModelUnavailable); the evaluation fails closed rather than
// guessing a model contribution.
func (e *Engine) Evaluate(ctx context.Context, sc *session.Context) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "engine.Evaluate", traces.UserID(sc.UserID))
	defer span.End()

	seq := sc.ActionSequence

	behaviorRisk, behaviorReasons := behavior.Score(sc)
	ensembleRisk, ensembleReasons, err := e.ensemble.Score(ctx, sc, seq)
	if err != nil {
		e.logger.Error("model provider scoring failed", "error", err, "user_id", sc.UserID)
		return nil, err
	}
	sequenceRisk, sequenceReasons := sequence.Risk(seq)
	graphRes := e.graph.Risk(sc.NetworkAddress, sc.DeviceID, sc.DocumentHash, seq)

	total := behaviorRisk + ensembleRisk + sequenceRisk + graphRes.Score
	if total > maxTotalRisk {
		total = maxTotalRisk
	}
	if total < 0 {
		total = 0
	}
	decision := DecisionFor(total)

	// Fixed layer order: behavior, ensemble, sequence, graph. Graph details
	// arrive pre-rendered; everything else goes through the catalog.
	codes := make([]string, 0,
		len(behaviorReasons)+len(ensembleReasons)+len(sequenceReasons)+len(graphRes.ReasonCodes))
	codes = append(codes, behaviorReasons...)
	codes = append(codes, ensembleReasons...)
	codes = append(codes, sequenceReasons...)

	details := reason.ExplainAll(codes)
	codes = append(codes, graphRes.ReasonCodes...)
	details = append(details, graphRes.ReasonDetails...)

	res := &Result{
		BehaviorRisk:  behaviorRisk,
		EnsembleRisk:  ensembleRisk,
		SequenceRisk:  sequenceRisk,
		GraphRisk:     graphRes.Score,
		TotalRisk:     total,
		Decision:      decision,
		Reasons:       codes,
		ReasonDetails: details,
	}

	span.SetAttributes(traces.Decision(string(decision)), traces.TotalRisk(total))
	e.logger.Info("session evaluated",
		"user_id", sc.UserID,
		"total_risk", total,
		"decision", decision,
		"behavior", behaviorRisk,
		"ensemble", ensembleRisk,
		"sequence", sequenceRisk,
		"graph", graphRes.Score,
	)
	return res, nil
}

// DecisionFor maps a clamped total score to its decision tier.
func DecisionFor(total int) Decision {
	switch {
	case total <= allowMax:
		return DecisionAllow
	case total <= alertMax:
		return DecisionAlert
	case total <= challengeMax:
		return DecisionChallenge
	default:
		return DecisionBlockReview
	}
}
