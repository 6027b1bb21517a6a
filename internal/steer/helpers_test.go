package steer_test

import (
	"io"
	"log/slog"

	"github.com/dantte-lp/steerd/internal/steer"
)

// testEngine returns an Engine with default config, a nil driver, and a
// discarding logger — enough to exercise the decision core's pure logic
// without a real radio stack.
func testEngine() *steer.Engine {
	cfg := steer.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return steer.NewEngine(&cfg, nil, nil, logger)
}
