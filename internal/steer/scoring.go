package steer

import "math"

// defaultNoise is the noise floor assumed when a node has not reported one
// (spec.md §4.5: "noise defaults to -95 dBm when unknown").
const defaultNoise = -95

// baseThroughput and bandPenalty are the scoring constants from spec.md
// §4.5's throughput estimate formula.
const (
	baseThroughput  = 400
	subGHzPenalty   = 0.6
	fullBandPenalty = 1.0
	subGHzCeilingHz = 3000
)

func noiseOrDefault(noise int) int {
	if noise == 0 {
		return defaultNoise
	}
	return noise
}

// snr returns signal - noise for node, using its configured noise floor or
// the default.
func snr(node *Node, signal int) int {
	return signal - noiseOrDefault(node.Noise)
}

// bandPenalty returns the throughput multiplier for node's operating band.
func bandPenalty(node *Node) float64 {
	if node.FreqMHz < subGHzCeilingHz {
		return subGHzPenalty
	}
	return fullBandPenalty
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// estimateThroughput implements spec.md §4.5's
//
//	throughput_est = base_tpt * min(1, snr/40) * (1 - load/100) * band_penalty
func estimateThroughput(node *Node, snrVal int) int {
	snrFactor := clamp01(float64(snrVal) / 40.0)
	loadFactor := clamp01(1 - float64(node.Load)/100.0)
	return int(float64(baseThroughput) * snrFactor * loadFactor * bandPenalty(node))
}

// agePenalty implements spec.md §4.5's information-age discount:
//
//	p = clamp(0, 1, 2 - 4^((a - T/2) / T))
//
// where a is the observation age in milliseconds and T is seen_policy_timeout.
// p is 1 for a fresh observation and decays toward 0 as a approaches T.
func agePenalty(age, seenPolicyTimeout int64) float64 {
	if seenPolicyTimeout <= 0 {
		return 1
	}
	t := float64(seenPolicyTimeout)
	a := float64(age)
	exp := (a - t/2) / t
	return clamp01(2 - math.Pow(4, exp))
}

// Score computes the full candidate score for sta at node, per spec.md
// §4.5. A score of 0 means the candidate is disqualified.
//
// Disqualification rules:
//   - node.NAssoc >= node.MaxAssoc, unless node is the station's current
//     node (a station already connected there doesn't get locked out of its
//     own AP by the admission cap)
//   - snr(node, signal) below cfg.MinSNR
func Score(cfg *Config, node *Node, currentNode *Node, signal int, informationAge int64) (score, snrOut, throughput int) {
	if node.MaxAssoc > 0 && node.NAssoc >= node.MaxAssoc && node != currentNode {
		return 0, 0, 0
	}

	s := snr(node, signal)
	if cfg.MinSNR != 0 && s < cfg.MinSNR {
		return 0, s, 0
	}

	tpt := estimateThroughput(node, s)
	penalty := agePenalty(informationAge, cfg.SeenPolicyTimeout)
	return int(float64(tpt) * penalty), s, tpt
}
