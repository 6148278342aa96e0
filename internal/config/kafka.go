package config

import "time"

// Kafka configures the outbox producer and the product event consumer.
type Kafka struct {
	Addresses []string `env:"KAFKA_ADDRESSES,required" envSeparator:","`
	ClientID  string   `env:"KAFKA_CLIENT_ID" envDefault:"inventory-service"`
	// Group is only used by the consumer.
	Group string `env:"KAFKA_GROUP" envDefault:"inventory-events"`

	// DeliveryTimeout bounds how long a produced record may be retried
	// before the relay records it as failed.
	DeliveryTimeout time.Duration `env:"KAFKA_DELIVERY_TIMEOUT" envDefault:"30s"`
}
