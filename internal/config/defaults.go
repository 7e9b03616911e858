package config

import "time"

// Default configuration values.
const (
	// DefaultThreshold is the leaf threshold used when nothing is configured.
	DefaultThreshold = 1000
	DefaultWorkers   = 0
	DefaultMode      = modeDivide

	DefaultInputMaxSize = "256MB"

	DefaultLogLevel = "info"

	DefaultServerAddr         = ":8080"
	DefaultServerReadTimeout  = 30 * time.Second
	DefaultServerWriteTimeout = 60 * time.Second
	DefaultServerIdleTimeout  = 120 * time.Second
	DefaultServerMaxBody      = "64MB"
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Equalize: EqualizeConfig{
			Threshold: DefaultThreshold,
			Workers:   DefaultWorkers,
			Mode:      DefaultMode,
		},
		Input: InputConfig{
			MaxSize: DefaultInputMaxSize,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultServerReadTimeout,
			WriteTimeout: DefaultServerWriteTimeout,
			IdleTimeout:  DefaultServerIdleTimeout,
			MaxBody:      DefaultServerMaxBody,
		},
	}
}
