// Package script builds scenarios from JavaScript (goja). A script runs
// once, on a single goroutine, and must evaluate to a scenario object; it
// cannot call into a running kernel. Scripts earn their keep over plain
// YAML when a workload is generated: fifty staggered sleepers from a
// for-loop instead of fifty hand-written thread blocks.
package script

import (
	"fmt"
	"os"

	"github.com/dop251/goja"
	"gopkg.in/yaml.v3"

	"github.com/me/nanokern/internal/scenario"
)

// step constructors injected into the VM so scripts read declaratively:
//
//	({name: "burn", threads: [{name: "w", steps: [spin(8), sleep(20)]}]})
var helpers = map[string]any{
	"spin":    func(ticks int64) map[string]any { return map[string]any{"op": "spin", "ticks": ticks} },
	"sleep":   func(ticks int64) map[string]any { return map[string]any{"op": "sleep", "ticks": ticks} },
	"sleepMS": func(ms int64) map[string]any { return map[string]any{"op": "sleep_ms", "ms": ms} },
	"spawn":   func(name string) map[string]any { return map[string]any{"op": "spawn", "thread": name} },
	"log":     func(msg string) map[string]any { return map[string]any{"op": "log", "message": msg} },
	"yield": func(count ...int) map[string]any {
		n := 1
		if len(count) > 0 {
			n = count[0]
		}
		return map[string]any{"op": "yield", "count": n}
	},
}

// Eval runs src in a fresh JavaScript VM and converts the result value
// into a validated scenario. name is used for script stack traces.
func Eval(name string, src []byte) (*scenario.Scenario, error) {
	vm := goja.New()
	for ident, fn := range helpers {
		if err := vm.Set(ident, fn); err != nil {
			return nil, fmt.Errorf("set %s: %w", ident, err)
		}
	}

	val, err := vm.RunScript(name, string(src))
	if err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("script did not produce a scenario object")
	}

	// Round-trip the exported object through YAML so the scenario types
	// and validation stay the single source of truth.
	raw, err := yaml.Marshal(val.Export())
	if err != nil {
		return nil, fmt.Errorf("convert script result: %w", err)
	}
	sc, err := scenario.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("script result: %w", err)
	}
	return sc, nil
}

// Load reads and evaluates a scenario script file.
func Load(path string) (*scenario.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	sc, err := Eval(path, data)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return sc, nil
}
