// Command flush-replay runs the flush controller against a scripted presence
// trace from a YAML scenario file and checks the outcome against the
// scenario's expectations.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/flushworks/flushd/internal/replay"
)

func main() {
	logLevel := pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <scenario.yaml>\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	scenarioPath := pflag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(*logLevel),
	}))

	scenario, err := replay.LoadScenario(scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		os.Exit(1)
	}

	result, err := replay.Run(scenario, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Replay failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Replay finished",
		"scenario", scenario.Name,
		"flush_count", result.Metrics.FlushCount,
		"presence_events", result.Metrics.PresenceEvents,
		"final_state", result.FinalState)

	if !result.Passed() {
		for _, failure := range result.Failures {
			logger.Error("Expectation failed", "scenario", scenario.Name, "reason", failure)
		}
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
