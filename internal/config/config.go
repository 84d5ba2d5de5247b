package config

// RunConfig holds configuration for a scheduler run.
type RunConfig struct {
	LogLevel   string // Log level: debug, info, warn, error
	LogFormat  string // Log format: text, json, auto
	DBPath     string // SQLite trace database path ("" disables persistence, ":memory:" for testing)
	MonitorOn  string // Monitor listen address ("" disables the HTTP monitor)
	Frequency  int    // Timer Hz override; 0 keeps the scenario's setting
	TimeSlice  int    // Preemption quantum override; 0 keeps the scenario's setting
	MaxThreads int    // Thread table override; 0 keeps the scenario's setting
	MaxEvents  int    // Trace buffer cap; 0 uses the recorder default
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		LogLevel:  "info",
		LogFormat: "auto",
	}
}
