package config

import "time"

const EnvDevelopment = "development"

type App struct {
	Env             string        `env:"APP_ENV" envDefault:"production"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// IsDevelopment reports whether error responses may expose internals.
func (a App) IsDevelopment() bool {
	return a.Env == EnvDevelopment
}
