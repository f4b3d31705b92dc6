package atomix

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config is the construction-time configuration surface: election_timeout,
// heartbeat_interval, storage, and the Cluster/Transport collaborators,
// modelled as a plain struct rather than a variadic functional-option list
// since every field here is required, not optional tuning.
type Config struct {
	// ElectionTimeout is the base Follower/Candidate timeout; the effective
	// timer is randomised within [ElectionTimeout, 2*ElectionTimeout).
	ElectionTimeout time.Duration
	// HeartbeatInterval is the Leader's AppendEntries cadence. Must be
	// strictly less than ElectionTimeout.
	HeartbeatInterval time.Duration

	Storage   LogStore
	Transport Transport
	Cluster   Cluster

	// CommitHandler is invoked, only on the context thread, once a command
	// entry commits and is ready to apply, and on every client Read.
	CommitHandler CommitHandler

	// MetricsRegistry, if non-nil, receives the role/term/commit gauges and
	// counters described in SPEC_FULL.md 6. A nil registry disables
	// collection entirely.
	MetricsRegistry *prometheus.Registry

	// LogLevel controls the zap logger Context builds for itself. Nil
	// selects zap.InfoLevel.
	LogLevel *zap.AtomicLevel

	// ReplicationFactor bounds the follower list TermProvider.GetTerm()
	// reports.
	ReplicationFactor int
}

func (c Config) validate() error {
	if c.ElectionTimeout <= 0 {
		return fmt.Errorf("atomix: election_timeout must be > 0")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("atomix: heartbeat_interval must be > 0")
	}
	if c.HeartbeatInterval >= c.ElectionTimeout {
		return fmt.Errorf("atomix: heartbeat_interval must be strictly less than election_timeout")
	}
	if c.Storage == nil {
		return fmt.Errorf("atomix: storage is required")
	}
	if c.Transport == nil {
		return fmt.Errorf("atomix: transport is required")
	}
	if c.Cluster == nil {
		return fmt.Errorf("atomix: cluster is required")
	}
	return nil
}
