package config

import (
	"fmt"
	"strings"
)

// StoreDriver selects the persistence backend.
type StoreDriver uint8

const (
	StoreDriverMongo StoreDriver = iota
	StoreDriverPostgres
)

func (d StoreDriver) String() string {
	return []string{"MONGO", "POSTGRES"}[d]
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *StoreDriver) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "MONGO", "MONGODB":
		*d = StoreDriverMongo
	case "POSTGRES", "POSTGRESQL":
		*d = StoreDriverPostgres
	default:
		return fmt.Errorf("unknown store driver: %s", text)
	}
	return nil
}

func (d StoreDriver) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Store struct {
	Driver StoreDriver `env:"STORE_DRIVER" envDefault:"MONGO"`
}
