package script

import (
	"strings"
	"testing"
)

func TestEvalObjectLiteral(t *testing.T) {
	src := `
({
    name: "pingpong",
    frequency: 0,
    threads: [
        {name: "ping", steps: [yield(3), log("ping done")]},
        {name: "pong", steps: [sleep(5)]},
    ],
})
`
	sc, err := Eval("test.js", []byte(src))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if sc.Name != "pingpong" {
		t.Errorf("name: got %q", sc.Name)
	}
	if len(sc.Threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(sc.Threads))
	}
	if got := sc.Threads[0].Steps[0]; got.Op != "yield" || got.Count != 3 {
		t.Errorf("yield helper produced %+v", got)
	}
	if got := sc.Threads[1].Steps[0]; got.Op != "sleep" || got.Ticks != 5 {
		t.Errorf("sleep helper produced %+v", got)
	}
}

func TestEvalGeneratedWorkload(t *testing.T) {
	// The point of the script frontend: loops generating threads.
	src := `
var threads = [];
for (var i = 0; i < 10; i++) {
    threads.push({
        name: "sleeper-" + i,
        steps: [sleep(10 + i), spin(2)],
    });
}
({name: "staggered", threads: threads})
`
	sc, err := Eval("gen.js", []byte(src))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(sc.Threads) != 10 {
		t.Fatalf("expected 10 generated threads, got %d", len(sc.Threads))
	}
	if sc.Threads[7].Name != "sleeper-7" {
		t.Errorf("thread 7 name: %q", sc.Threads[7].Name)
	}
	if sc.Threads[7].Steps[0].Ticks != 17 {
		t.Errorf("thread 7 deadline: %d", sc.Threads[7].Steps[0].Ticks)
	}
}

func TestEvalHelpers(t *testing.T) {
	src := `
({
    name: "helpers",
    threads: [{
        name: "w",
        steps: [spin(4), sleepMS(20), spawn("w2"), yield()],
    }, {
        name: "w2",
        start: false,
        steps: [log("hi")],
    }],
})
`
	sc, err := Eval("helpers.js", []byte(src))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	steps := sc.Threads[0].Steps
	if steps[1].Op != "sleep_ms" || steps[1].MS != 20 {
		t.Errorf("sleepMS helper produced %+v", steps[1])
	}
	if steps[2].Op != "spawn" || steps[2].Thread != "w2" {
		t.Errorf("spawn helper produced %+v", steps[2])
	}
	if steps[3].Op != "yield" || steps[3].Count != 1 {
		t.Errorf("yield() default count produced %+v", steps[3])
	}
}

func TestEvalSyntaxError(t *testing.T) {
	_, err := Eval("bad.js", []byte("this is not javascript"))
	if err == nil || !strings.Contains(err.Error(), "evaluate script") {
		t.Errorf("expected evaluation error, got %v", err)
	}
}

func TestEvalNoResult(t *testing.T) {
	_, err := Eval("empty.js", []byte("var x = 1;"))
	if err == nil || !strings.Contains(err.Error(), "scenario object") {
		t.Errorf("expected missing-object error, got %v", err)
	}
}

func TestEvalInvalidScenario(t *testing.T) {
	_, err := Eval("invalid.js", []byte(`({name: "x"})`))
	if err == nil || !strings.Contains(err.Error(), "no threads") {
		t.Errorf("expected validation error, got %v", err)
	}
}
