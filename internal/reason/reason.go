// Package reason renders machine reason codes into human-readable
// sentences for the explanation list.
//
// The catalog is closed: every code the behavioral, ensemble, and sequence
// layers can emit has an arm here. Unknown codes pass through unchanged so
// a new code never breaks explanations. Graph-layer details are composed in
// the graph package and bypass this catalog entirely.
package reason

import "strings"

const (
	supervisedPrefix = "ml_supervised_high_risk_proba:"
	neuralPrefix     = "ml_nn_high_risk_proba:"
)

// Explain maps a reason code to its human-readable sentence.
func Explain(code string) string {
	// Parameterized ML codes carry the probability after the colon.
	if p, ok := strings.CutPrefix(code, supervisedPrefix); ok {
		return "The supervised classifier reported a high risk probability (" + p + ")."
	}
	if p, ok := strings.CutPrefix(code, neuralPrefix); ok {
		return "The neural classifier reported a high risk probability (" + p + ")."
	}

	switch code {
	// Behavioral signals.
	case "new_device":
		return "The operation came from a new device never used by this account before."
	case "big_location_jump":
		return "There is a large geographic jump compared to previous usage."
	case "unusual_time":
		return "The operation time is unusual for this account's usage pattern."
	case "sensitive_service":
		return "The requested service is highly sensitive (such as an identity renewal or vehicle authorization)."
	case "high_frequency_ops":
		return "The number of operations in the last 24 hours is higher than usual."

	// Model ensemble.
	case "ml_unsupervised_anomaly_detected":
		return "The anomaly detector flagged this operation as an unusual pattern."
	case "ml_models_boosted_by_behavioral_flags":
		return "The models rated the risk as moderate, but strong behavioral signals (new device, location jump, unusual time) raise the overall risk."
	case "ml_models_low_confidence_risk":
		return "The models reported a moderate risk level based on the current signals."

	// Session sequence.
	case "repeated_actions":
		return "Steps such as login or payment repeat implausibly within the same session."
	case "too_many_otp_challenges":
		return "OTP verification attempts repeat suspiciously, suggesting account takeover or misuse."
	case "multiple_sensitive_services":
		return "More than one sensitive service was used in the same session, increasing the chance of abuse."
	case "sensitive_too_early":
		return "A sensitive service was reached immediately after login without any ordinary browsing."
	case "long_session_many_ops":
		return "The session contains an unusually large number of steps and operations."
	case "rare_navigation_pattern":
		return "The session path is linear with no exploration, closer to automated than human behavior."
	}

	return code
}

// ExplainAll renders a list of codes, preserving order.
func ExplainAll(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = Explain(c)
	}
	return out
}
