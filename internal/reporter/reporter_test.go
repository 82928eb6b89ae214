package reporter

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/sched"
)

type flag struct{ v bool }

func (f *flag) Playing() bool { return f.v }

func TestFirstTickAlwaysEmits(t *testing.T) {
	var got []bool
	r := New(&flag{}, &flag{}, 0, func(v bool) { got = append(got, v) }, zerolog.Nop())
	r.Tick()
	r.Tick()
	if len(got) != 1 || got[0] {
		t.Errorf("emitted %v, want [false]", got)
	}
}

func TestTruthTable(t *testing.T) {
	tests := []struct{ a, b, want bool }{
		{false, false, false},
		{true, false, false},
		{false, true, false},
		{true, true, true},
	}
	for _, tt := range tests {
		r := New(&flag{tt.a}, &flag{tt.b}, 0, nil, zerolog.Nop())
		r.Tick()
		if r.Playing() != tt.want {
			t.Errorf("a=%v b=%v: Playing = %v, want %v", tt.a, tt.b, r.Playing(), tt.want)
		}
	}
}

func TestRandomInterleavingsEmitChangesOnly(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		a, b := &flag{}, &flag{}
		var got []bool
		r := New(a, b, 0, func(v bool) { got = append(got, v) }, zerolog.Nop())

		for step := 0; step < 200; step++ {
			switch rng.Intn(3) {
			case 0:
				a.v = rng.Intn(2) == 1
			case 1:
				b.v = rng.Intn(2) == 1
			default:
				r.Tick()
				if last := got[len(got)-1]; last != (a.v && b.v) {
					t.Fatalf("run %d step %d: last emission %v, want %v", run, step, last, a.v && b.v)
				}
			}
		}
		for i := 1; i < len(got); i++ {
			if got[i] == got[i-1] {
				t.Fatalf("run %d: consecutive duplicate at %d: %v", run, i, got)
			}
		}
	}
}

func TestStartTicksOnInterval(t *testing.T) {
	clock := sched.NewManual(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	a, b := &flag{true}, &flag{}
	var got []bool
	r := New(a, b, time.Second, func(v bool) { got = append(got, v) }, zerolog.Nop())
	task := r.Start(clock)

	clock.Advance(time.Second)
	b.v = true
	clock.Advance(500 * time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("emitted %v before the next tick", got)
	}
	clock.Advance(500 * time.Millisecond)
	if len(got) != 2 || !got[1] {
		t.Fatalf("emitted %v, want [false true]", got)
	}

	task.Stop()
	b.v = false
	clock.Advance(5 * time.Second)
	if len(got) != 2 {
		t.Errorf("stopped reporter still emitting: %v", got)
	}
}
