// Package sequence normalizes session action sequences and scores them for
// suspicious navigation patterns.
//
// A sequence is an ordered list of action tokens ("login", "renew_id", ...).
// Clients may submit either a token list or a single comma-separated string;
// Normalize accepts both and never fails.
package sequence

import (
	"fmt"
	"strings"
)

// SensitiveActions are high-value government-style service actions.
// Touching several of them in one session, or reaching one immediately
// after login, raises the sequence risk.
var SensitiveActions = map[string]bool{
	"renew_id":               true,
	"vehicle_registration":   true,
	"issue_passport":         true,
	"renew_passport":         true,
	"issue_work_permit":      true,
	"renew_work_permit":      true,
	"submit_tax_declaration": true,
	"view_tax_obligations":   true,
	"register_property":      true,
	"update_property_data":   true,
}

// explorationActions are ordinary navigation pages. A long session that
// never touches one looks scripted rather than human.
var explorationActions = map[string]bool{
	"home":               true,
	"view_personal_data": true,
	"services":           true,
}

// Normalize converts a raw action sequence into a clean token list.
// It accepts a []string, a []any of printable values, or a single
// comma-separated string. Whitespace is trimmed, empty tokens dropped,
// order preserved. Unparsable input yields an empty sequence.
func Normalize(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		return cleanTokens(v)
	case string:
		return cleanTokens(strings.Split(v, ","))
	case []any:
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			tokens = append(tokens, fmt.Sprint(item))
		}
		return cleanTokens(tokens)
	default:
		return nil
	}
}

func cleanTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Similarity returns the matching-blocks ratio between two sequences:
// 2*M/T where M is the total length of all matching blocks and T the sum
// of both lengths. Symmetric; 1 for identical non-empty sequences, 0 when
// either side is empty.
func Similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := matchingSize(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchingSize sums the sizes of all matching blocks: find the longest
// common contiguous run, then recurse on the pieces to its left and right.
func matchingSize(a, b []string) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingSize(a[:ai], b[:bi])
	total += matchingSize(a[ai+size:], b[bi+size:])
	return total
}

// longestMatch finds the longest contiguous run common to a and b,
// preferring the earliest occurrence in a, then in b.
func longestMatch(a, b []string) (bestA, bestB, bestSize int) {
	// runs[j] = length of the common run ending at a[i], b[j].
	runs := make([]int, len(b))
	for i := range a {
		newRuns := make([]int, len(b))
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := 1
			if j > 0 {
				k = runs[j-1] + 1
			}
			newRuns[j] = k
			if k > bestSize {
				bestA, bestB, bestSize = i-k+1, j-k+1, k
			}
		}
		runs = newRuns
	}
	return bestA, bestB, bestSize
}

// Layer caps and rule scores for the sequence analyzer.
const (
	maxSequenceRisk = 30

	repeatedActionsScore   = 8
	tooManyOTPScore        = 6
	multipleSensitiveScore = 8
	sensitiveTooEarlyScore = 10
	longSessionScore       = 4
	rareNavigationScore    = 7

	longSessionLength    = 7
	rareNavigationMinLen = 5
)

// Risk scores a normalized sequence against the pattern rules. Each rule is
// independently triggerable and additive; the sum is capped at 30.
// Returns the score and the triggered reason codes in rule order.
func Risk(seq []string) (int, []string) {
	risk := 0
	var reasons []string

	if count(seq, "login") >= 3 || count(seq, "payment") >= 2 {
		risk += repeatedActionsScore
		reasons = append(reasons, "repeated_actions")
	}

	if count(seq, "verify_otp") >= 3 {
		risk += tooManyOTPScore
		reasons = append(reasons, "too_many_otp_challenges")
	}

	if SensitiveCount(seq) >= 2 {
		risk += multipleSensitiveScore
		reasons = append(reasons, "multiple_sensitive_services")
	}

	if len(seq) > 1 && seq[0] == "login" && SensitiveActions[seq[1]] {
		risk += sensitiveTooEarlyScore
		reasons = append(reasons, "sensitive_too_early")
	}

	if len(seq) >= longSessionLength {
		risk += longSessionScore
		reasons = append(reasons, "long_session_many_ops")
	}

	if len(seq) >= rareNavigationMinLen && !hasExploration(seq) {
		risk += rareNavigationScore
		reasons = append(reasons, "rare_navigation_pattern")
	}

	if risk > maxSequenceRisk {
		risk = maxSequenceRisk
	}
	return risk, reasons
}

// SensitiveCount returns how many tokens belong to the sensitive-action set.
func SensitiveCount(seq []string) int {
	n := 0
	for _, a := range seq {
		if SensitiveActions[a] {
			n++
		}
	}
	return n
}

// RepeatedFlag reports the repeated-login/payment condition used both by
// the repeated_actions rule and the ensemble feature vector.
func RepeatedFlag(seq []string) bool {
	return count(seq, "login") >= 3 || count(seq, "payment") >= 2
}

func count(seq []string, token string) int {
	n := 0
	for _, a := range seq {
		if a == token {
			n++
		}
	}
	return n
}

func hasExploration(seq []string) bool {
	for _, a := range seq {
		if explorationActions[a] {
			return true
		}
	}
	return false
}
