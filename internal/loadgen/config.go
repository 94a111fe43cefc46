// Package loadgen drives a running hackscore service over HTTP with a
// generated challenge and checks its leaderboard against an offline recompute.
package loadgen

import (
	"runtime"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	ChallengeID string        // Challenge to create; generated when empty
	Teams       int           // Number of teams, one submission each
	Judges      int           // Judges scoring every team on every rubric
	Rubrics     int           // Rubrics sharing the 100% weight
	Replays     float64       // Fraction of evaluations posted twice, 0..1
	Workers     int           // Concurrent HTTP workers
	Timeout     time.Duration // HTTP request timeout
	Settle      time.Duration // Maximum wait for asynchronous processing
	Combiner    string        // Judge combiner configured on the server
	Seed        uint64        // Generator seed; 0 picks one from the clock
	OutputFile  string        // Snapshot file; empty skips writing
	Verbose     bool          // Log every failed request
}

// Default configuration values.
const (
	defaultTeams   = 50
	defaultJudges  = 3
	defaultRubrics = 4
	defaultTimeout = 30 * time.Second
	defaultSettle  = 2 * time.Minute
	pollInterval   = 250 * time.Millisecond

	workerMultiplier = 2 // multiplier for runtime.NumCPU()
)

// DefaultConfig returns a Config for a local service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:9080",
		Teams:   defaultTeams,
		Judges:  defaultJudges,
		Rubrics: defaultRubrics,
		Replays: 0.05,
		Workers: runtime.NumCPU() * workerMultiplier,
		Timeout: defaultTimeout,
		Settle:  defaultSettle,
	}
}

// Stats holds run statistics.
type Stats struct {
	EvaluationsGenerated int
	EvaluationsSubmitted int
	EvaluationsAccepted  int
	EvaluationsDuplicate int
	EvaluationsFailed    int
	ScoresRetrieved      int
	LeaderboardEntries   int
	Mismatches           []string
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
