package config

import "time"

type Mongo struct {
	URI            string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	DB             string        `env:"MONGO_DB" envDefault:"inventory"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`

	// Transactions require a replica set or sharded cluster.
	Transactions bool `env:"MONGO_TRANSACTIONS" envDefault:"false"`
}
