package config

import "time"

// Relay tunes the outbox relay loop and the circuit breaker guarding the
// broker.
type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
	// Concurrency caps in-flight produce calls per batch.
	Concurrency int `env:"RELAY_CONCURRENCY" envDefault:"16"`

	BreakerFailureThreshold uint32        `env:"RELAY_BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerOpenTimeout      time.Duration `env:"RELAY_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}
