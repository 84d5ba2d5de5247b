// Package scenario describes and drives scheduler workloads. A scenario is
// a declarative list of threads, each with a step program (spin, sleep,
// yield, spawn); the runner creates the threads inside a booted kernel and
// waits for all of them to finish.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step operations.
const (
	OpSpin    = "spin"     // yield-poll the clock for Ticks ticks
	OpSleep   = "sleep"    // timer sleep for Ticks ticks
	OpSleepMS = "sleep_ms" // timer sleep for MS milliseconds
	OpYield   = "yield"    // give up the CPU Count times
	OpSpawn   = "spawn"    // create the named thread
	OpLog     = "log"      // emit Message at info level
)

// Step is one instruction in a thread's program.
type Step struct {
	Op      string `yaml:"op"`
	Ticks   int64  `yaml:"ticks,omitempty"`
	MS      int64  `yaml:"ms,omitempty"`
	Count   int    `yaml:"count,omitempty"`
	Thread  string `yaml:"thread,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// ThreadDef declares one scenario thread.
type ThreadDef struct {
	Name string `yaml:"name"`
	// Priority is advisory; 0 selects the scheduler default.
	Priority int `yaml:"priority,omitempty"`
	// Start controls whether the runner creates the thread at boot.
	// Threads with start=false exist only as spawn targets. Defaults to
	// true.
	Start *bool  `yaml:"start,omitempty"`
	Steps []Step `yaml:"steps"`
}

// StartsAtBoot reports whether the runner creates this thread itself.
func (t *ThreadDef) StartsAtBoot() bool { return t.Start == nil || *t.Start }

// Scenario is a complete workload description.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Frequency is the timer rate in Hz. 0 runs the scenario in manual
	// mode: the main thread pumps one interrupt per quiesce iteration,
	// which makes the run deterministic.
	Frequency int `yaml:"frequency,omitempty"`
	// TimeSlice overrides the preemption quantum; 0 keeps the default.
	TimeSlice int `yaml:"time_slice,omitempty"`
	// MaxThreads overrides the thread table size; 0 keeps the default.
	MaxThreads int         `yaml:"max_threads,omitempty"`
	Threads    []ThreadDef `yaml:"threads"`
}

// Parse unmarshals and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Validate checks structural constraints: unique thread names, known ops,
// sane parameters, resolvable spawn targets, and at least one thread
// started at boot.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if sc.Frequency < 0 {
		return fmt.Errorf("frequency must not be negative")
	}
	if sc.TimeSlice < 0 {
		return fmt.Errorf("time_slice must not be negative")
	}
	if sc.MaxThreads < 0 {
		return fmt.Errorf("max_threads must not be negative")
	}
	if len(sc.Threads) == 0 {
		return fmt.Errorf("scenario has no threads")
	}

	names := make(map[string]bool, len(sc.Threads))
	booted := false
	for i := range sc.Threads {
		t := &sc.Threads[i]
		if t.Name == "" {
			return fmt.Errorf("thread %d: name is required", i)
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate thread name %q", t.Name)
		}
		names[t.Name] = true
		if t.Priority < 0 || t.Priority > 63 {
			return fmt.Errorf("thread %q: priority %d outside [0,63]", t.Name, t.Priority)
		}
		if t.StartsAtBoot() {
			booted = true
		}
	}
	if !booted {
		return fmt.Errorf("no thread starts at boot")
	}

	for i := range sc.Threads {
		t := &sc.Threads[i]
		for j, step := range t.Steps {
			if err := validateStep(step, names); err != nil {
				return fmt.Errorf("thread %q step %d: %w", t.Name, j, err)
			}
		}
	}
	return nil
}

func validateStep(s Step, names map[string]bool) error {
	switch s.Op {
	case OpSpin, OpSleep:
		if s.Ticks < 1 {
			return fmt.Errorf("%s needs ticks >= 1", s.Op)
		}
	case OpSleepMS:
		if s.MS < 1 {
			return fmt.Errorf("sleep_ms needs ms >= 1")
		}
	case OpYield:
		if s.Count < 0 {
			return fmt.Errorf("yield count must not be negative")
		}
	case OpSpawn:
		if s.Thread == "" {
			return fmt.Errorf("spawn needs a thread name")
		}
		if !names[s.Thread] {
			return fmt.Errorf("spawn target %q is not defined", s.Thread)
		}
	case OpLog:
		if s.Message == "" {
			return fmt.Errorf("log needs a message")
		}
	case "":
		return fmt.Errorf("missing op")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}
