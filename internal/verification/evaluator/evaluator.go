// Package evaluator applies the required verification checks to normalized
// observations. Evaluators are pure, side-effect-free functions of their
// observation set and may run fully in parallel.
package evaluator

import (
	"fmt"
	"sort"

	"veriterra/internal/verification/models"
)

// Evaluator evaluates one named check against the observations relevant to it.
type Evaluator interface {
	Name() models.CheckName
	Evaluate(obs []models.Observation) models.CheckResult
}

// ForPolicy builds the fixed required-check set, in verdict order.
func ForPolicy(p Policy) []Evaluator {
	return []Evaluator{
		&landOwnership{p},
		&gpsCoordinates{p},
		&carbonCalculations{p},
		&dataQuality{p},
		&speciesVerification{p},
		&imageAnalysis{p},
	}
}

// outcome is a check's verdict before confidence weighting: whether the
// policy test passed, and how decisive the evidence was in [0,1].
type outcome struct {
	pass      bool
	strength  float64
	rationale string
}

// scoreFunc evaluates one check's policy test over a subset of observations.
// ok=false means the subset cannot support a conclusion.
type scoreFunc func(obs []models.Observation) (outcome, bool)

// evaluate implements the shared check algorithm: select, score, weight by
// the weakest contributing source, band into the tri-level status.
func evaluate(name models.CheckName, p Policy, all []models.Observation, metrics []string, score scoreFunc) models.CheckResult {
	selected := selectMetrics(all, metrics)
	result := models.CheckResult{
		CheckName:                name,
		ContributingObservations: refs(selected),
	}

	if len(selected) == 0 {
		result.Status = models.StatusInconclusive
		result.Rationale = fmt.Sprintf("no evidence for %s", name)
		return result
	}

	out, ok := score(selected)
	if !ok {
		result.Status = models.StatusInconclusive
		result.Rationale = out.rationale
		return result
	}

	// A check is only as trustworthy as its weakest contributing source.
	minConf := minSourceConfidence(selected)
	weighted := clamp01(out.strength) * minConf

	result.ChannelScores = channelScores(selected, score)

	switch {
	case !out.pass:
		result.Status = models.StatusFailed
		result.Confidence = weighted
		result.Rationale = out.rationale
	case weighted >= p.PassConfidence:
		result.Status = models.StatusPassed
		result.Confidence = weighted
		result.Rationale = out.rationale
	case weighted <= p.FailConfidence:
		result.Status = models.StatusFailed
		result.Confidence = weighted
		result.Rationale = fmt.Sprintf("policy test met but weighted confidence %.2f is below the failure ceiling", weighted)
	default:
		result.Status = models.StatusInconclusive
		result.Rationale = fmt.Sprintf("weighted confidence %.2f falls in the indeterminate band; %s", weighted, out.rationale)
	}
	return result
}

// channelScores re-runs the check's scoring per contributing channel so the
// aggregator can compare channel-level sub-scores for discrepancies.
func channelScores(selected []models.Observation, score scoreFunc) map[models.Channel]float64 {
	byChannel := make(map[models.Channel][]models.Observation)
	for _, o := range selected {
		byChannel[o.Channel] = append(byChannel[o.Channel], o)
	}
	if len(byChannel) < 2 {
		return nil
	}
	scores := make(map[models.Channel]float64, len(byChannel))
	for ch, obs := range byChannel {
		out, ok := score(obs)
		if !ok {
			continue
		}
		scores[ch] = clamp01(out.strength) * minSourceConfidence(obs)
	}
	if len(scores) < 2 {
		return nil
	}
	return scores
}

// channelMeans computes the per-channel mean of one metric, for physical
// discrepancy tolerances.
func channelMeans(selected []models.Observation, metric string) map[models.Channel]float64 {
	sums := make(map[models.Channel]float64)
	counts := make(map[models.Channel]int)
	for _, o := range selected {
		if o.Metric != metric {
			continue
		}
		sums[o.Channel] += o.Value
		counts[o.Channel]++
	}
	if len(counts) < 2 {
		return nil
	}
	means := make(map[models.Channel]float64, len(counts))
	for ch, n := range counts {
		means[ch] = sums[ch] / float64(n)
	}
	return means
}

func selectMetrics(all []models.Observation, metrics []string) []models.Observation {
	wanted := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		wanted[m] = true
	}
	var selected []models.Observation
	for _, o := range all {
		if wanted[o.Metric] {
			selected = append(selected, o)
		}
	}
	return selected
}

func refs(obs []models.Observation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.Ref
	}
	return out
}

func minSourceConfidence(obs []models.Observation) float64 {
	min := 1.0
	for _, o := range obs {
		if o.SourceConfidence < min {
			min = o.SourceConfidence
		}
	}
	return min
}

// values returns the numeric values of observations matching a metric.
func values(obs []models.Observation, metric string) []float64 {
	var vs []float64
	for _, o := range obs {
		if o.Metric == metric && !o.IsCategorical() {
			vs = append(vs, o.Value)
		}
	}
	return vs
}

// labelSet returns the sorted distinct labels of a categorical metric.
func labelSet(obs []models.Observation, metric string) []string {
	seen := make(map[string]bool)
	for _, o := range obs {
		if o.Metric == metric && o.IsCategorical() {
			seen[o.Label] = true
		}
	}
	ls := make([]string, 0, len(seen))
	for l := range seen {
		ls = append(ls, l)
	}
	sort.Strings(ls)
	return ls
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// withinStrength scores a value that satisfied an upper bound: 1.0 for
// comfortable margins, tapering to 0.85 at the bound itself so marginal
// passes need strong sources to clear the pass band.
func withinStrength(v, bound float64) float64 {
	if bound <= 0 {
		return 1
	}
	ratio := clamp01(v / bound)
	if ratio <= 0.5 {
		return 1
	}
	return 1 - 0.15*(ratio-0.5)/0.5
}

// aboveStrength scores a value that satisfied a lower bound: 0.85 at the
// bound itself, reaching 1.0 once the margin exceeds 5% of the bound.
func aboveStrength(v, bound float64) float64 {
	if bound <= 0 {
		return 1
	}
	margin := (v - bound) / bound
	return 0.85 + 0.15*clamp01(margin/0.05)
}

// breachStrength scores how decisively a value violated its bound, given the
// breach expressed as a fraction of the bound. Small breaches yield middling
// failure confidence; gross breaches approach certainty.
func breachStrength(breachFraction float64) float64 {
	if breachFraction <= 0 {
		return 0.5
	}
	return clamp01(0.5 + breachFraction/6)
}
