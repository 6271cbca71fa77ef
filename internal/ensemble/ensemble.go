// Package ensemble converts the external model ensemble's probabilities
// into a bounded risk contribution.
//
// The three models (supervised classifier, anomaly detector, neural
// classifier) live behind the Provider interface; training and persistence
// are entirely the provider's concern.
package ensemble

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/malkaabi/fraudlens/internal/sequence"
	"github.com/malkaabi/fraudlens/internal/session"
)

// ErrModelUnavailable indicates the Risk Model Provider could not be
// reached or returned an unusable response. The layer fails closed: the
// caller decides how to surface the degraded evaluation.
var ErrModelUnavailable = errors.New("risk model provider unavailable")

// FeatureCount is the fixed width of the model feature vector.
const FeatureCount = 8

// ModelScores is the Risk Model Provider's output for one feature vector.
type ModelScores struct {
	SupervisedProb float64 `json:"supervisedProbability"`
	IsAnomaly      bool    `json:"isAnomaly"`
	AnomalyScore   float64 `json:"anomalyScore"`
	NeuralProb     float64 `json:"neuralProbability"`
}

// Provider scores a feature vector with the pre-trained model ensemble.
// Implementations are stateless per call and may have latency or failure
// semantics of their own.
type Provider interface {
	Score(ctx context.Context, features [FeatureCount]float64) (ModelScores, error)
}

// Layer scoring constants.
const (
	maxModelRisk  = 40
	perModelScale = 25
	anomalyScale  = 80

	boostRedFlagMin = 3
	boostCeiling    = 20
	boostMax        = 10
	noiseFloor      = 3

	highProbThreshold = 0.5
)

// Layer computes the ensemble anomaly contribution.
type Layer struct {
	provider Provider
}

// New creates the ensemble layer around a model provider.
func New(provider Provider) *Layer {
	return &Layer{provider: provider}
}

// Features builds the 8-value model input in training order:
// deviceKnown, locationChangeKm, hourOfDay, opsLast24h, sensitiveService,
// sessionLength, sensitiveActionCount, repeatedFlag.
func Features(sc *session.Context, seq []string) [FeatureCount]float64 {
	repeated := 0.0
	if sequence.RepeatedFlag(seq) {
		repeated = 1
	}
	known := 0.0
	if sc.DeviceKnown {
		known = 1
	}
	sensitive := 0.0
	if sc.SensitiveService {
		sensitive = 1
	}
	return [FeatureCount]float64{
		known,
		sc.LocationChangeKm,
		float64(sc.HourOfDay),
		float64(sc.OpsLast24h),
		sensitive,
		float64(len(seq)),
		float64(sequence.SensitiveCount(seq)),
		repeated,
	}
}

// Score calls the provider and converts its probabilities into the layer
// score and reason codes. The error, when non-nil, wraps
// ErrModelUnavailable; no risk value is guessed on failure.
func (l *Layer) Score(ctx context.Context, sc *session.Context, seq []string) (int, []string, error) {
	scores, err := l.provider.Score(ctx, Features(sc, seq))
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return 0, nil, err
		}
		return 0, nil, errors.Join(ErrModelUnavailable, err)
	}

	var reasons []string

	supRisk := int(scores.SupervisedProb * perModelScale)
	if scores.SupervisedProb > highProbThreshold {
		reasons = append(reasons, "ml_supervised_high_risk_proba:"+formatProb(scores.SupervisedProb))
	}

	anomalyRisk := 0
	if scores.IsAnomaly {
		anomalyRisk = int(math.Abs(scores.AnomalyScore) * anomalyScale)
		if anomalyRisk > perModelScale {
			anomalyRisk = perModelScale
		}
		reasons = append(reasons, "ml_unsupervised_anomaly_detected")
	}

	nnRisk := int(scores.NeuralProb * perModelScale)
	if scores.NeuralProb > highProbThreshold {
		reasons = append(reasons, "ml_nn_high_risk_proba:"+formatProb(scores.NeuralProb))
	}

	total := supRisk + anomalyRisk + nnRisk
	if total > maxModelRisk {
		total = maxModelRisk
	}

	// When strong behavioral signals are present but the models under-react,
	// lift the contribution toward a 20-point ceiling so the layer still
	// participates in the decision.
	if sc.Signals().Count() >= boostRedFlagMin && total < boostCeiling {
		boost := boostCeiling - total
		if boost > boostMax {
			boost = boostMax
		}
		total += boost
		reasons = append(reasons, "ml_models_boosted_by_behavioral_flags")
	}

	// Anything below the noise floor is treated as no signal at all.
	if total < noiseFloor {
		return 0, nil, nil
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "ml_models_low_confidence_risk")
	}
	return total, reasons, nil
}

// formatProb renders a probability rounded to two decimals, without
// trailing zeros ("0.8", "0.83").
func formatProb(p float64) string {
	return strconv.FormatFloat(math.Round(p*100)/100, 'g', -1, 64)
}

// StaticProvider returns fixed scores on every call. Used in tests and as
// the neutral development provider when no model service is configured.
type StaticProvider struct {
	Scores ModelScores
	Err    error
}

func (s StaticProvider) Score(context.Context, [FeatureCount]float64) (ModelScores, error) {
	if s.Err != nil {
		return ModelScores{}, s.Err
	}
	return s.Scores, nil
}
