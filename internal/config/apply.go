package config

import (
	"github.com/Sumatoshi-tech/histeq/internal/observability"
)

// ApplyToObservability builds the telemetry configuration for a process
// running in mode at the given build version.
func (c *Config) ApplyToObservability(version string, mode observability.AppMode) observability.Config {
	obsCfg := observability.DefaultConfig()

	obsCfg.ServiceVersion = version
	obsCfg.Mode = mode
	obsCfg.Environment = c.Telemetry.Environment
	obsCfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = c.Telemetry.SampleRatio
	obsCfg.TraceLeaves = c.Telemetry.TraceLeaves
	obsCfg.LogLevel = observability.ParseLogLevel(c.Logging.Level)
	obsCfg.LogJSON = c.Logging.JSON

	return obsCfg
}
