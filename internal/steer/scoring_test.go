package steer_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
	"pgregory.net/rapid"
)

func testConfig() *steer.Config {
	cfg := steer.DefaultConfig()
	cfg.MinSNR = 10
	cfg.SeenPolicyTimeout = 30_000
	return &cfg
}

func testNode(maxAssoc, nAssoc, load int, freqMHz int) *steer.Node {
	return &steer.Node{
		Key:      "node",
		FreqMHz:  freqMHz,
		MaxAssoc: maxAssoc,
		NAssoc:   nAssoc,
		Load:     load,
	}
}

func TestScoreDisqualifiesAtMaxAssoc(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	node := testNode(5, 5, 0, 5180)

	score, _, _ := steer.Score(cfg, node, nil, -40, 0)
	if score != 0 {
		t.Fatalf("expected disqualified score 0, got %d", score)
	}
}

func TestScoreAllowsCurrentNodeAtMaxAssoc(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	node := testNode(5, 5, 0, 5180)

	score, _, _ := steer.Score(cfg, node, node, -40, 0)
	if score == 0 {
		t.Fatalf("expected current node not disqualified at cap, got 0")
	}
}

func TestScoreDisqualifiesBelowMinSNR(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	node := testNode(0, 0, 0, 5180)

	// noise defaults to -95, so signal -90 gives snr=5 < MinSNR=10.
	score, snr, _ := steer.Score(cfg, node, nil, -90, 0)
	if score != 0 {
		t.Fatalf("expected disqualified, got score %d snr %d", score, snr)
	}
}

func TestScoreSubGHzPenaltyReducesThroughput(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MinSNR = 0
	subGHz := testNode(0, 0, 0, 900)
	fullBand := testNode(0, 0, 0, 5180)

	_, _, tptSub := steer.Score(cfg, subGHz, nil, -40, 0)
	_, _, tptFull := steer.Score(cfg, fullBand, nil, -40, 0)
	if tptSub >= tptFull {
		t.Fatalf("expected sub-GHz throughput %d < full-band throughput %d", tptSub, tptFull)
	}
}

func TestScoreLoadReducesThroughputMonotonically(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MinSNR = 0

	lowLoad := testNode(0, 0, 10, 5180)
	highLoad := testNode(0, 0, 90, 5180)

	_, _, tptLow := steer.Score(cfg, lowLoad, nil, -40, 0)
	_, _, tptHigh := steer.Score(cfg, highLoad, nil, -40, 0)
	if tptHigh >= tptLow {
		t.Fatalf("expected higher load to reduce throughput: low=%d high=%d", tptLow, tptHigh)
	}
}

// TestScoreAgePenaltyMonotoneDecreasing is testable property #4: as the age
// of the information backing a score increases toward seen_policy_timeout,
// the resulting score must never increase.
func TestScoreAgePenaltyMonotoneDecreasing(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		cfg := testConfig()
		cfg.MinSNR = 0
		cfg.SeenPolicyTimeout = rapid.Int64Range(1000, 120_000).Draw(rt, "timeout")
		node := testNode(0, 0, rapid.IntRange(0, 90).Draw(rt, "load"), 5180)
		signal := rapid.IntRange(-90, -20).Draw(rt, "signal")

		a1 := rapid.Int64Range(0, cfg.SeenPolicyTimeout).Draw(rt, "age1")
		a2 := rapid.Int64Range(a1, cfg.SeenPolicyTimeout).Draw(rt, "age2")

		s1, _, _ := steer.Score(cfg, node, nil, signal, a1)
		s2, _, _ := steer.Score(cfg, node, nil, signal, a2)
		if s2 > s1 {
			rt.Fatalf("score increased with age: age1=%d score=%d age2=%d score=%d", a1, s1, a2, s2)
		}
	})
}
