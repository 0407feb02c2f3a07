package flock

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroPopulation", func(c *Config) { c.NumAgents = 0 }},
		{"NegativePopulation", func(c *Config) { c.NumAgents = -5 }},
		{"ZeroMaxSpeed", func(c *Config) { c.MaxSpeed = 0 }},
		{"NegativeRadius", func(c *Config) { c.NeighbourRadius = -1 }},
		{"NegativeWeight", func(c *Config) { c.SeparationWeight = -0.1 }},
		{"ZeroBoundary", func(c *Config) { c.BoundarySize = 0 }},
		{"MarginSwallowsWorld", func(c *Config) { c.BoundaryMargin = 2.5 }},
		{"DampingOverOne", func(c *Config) { c.BounceDamping = 1.1 }},
		{"NegativeWorkers", func(c *Config) { c.Workers = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if _, err := New(cfg); err == nil {
				t.Errorf("New() accepted invalid config %+v", cfg)
			}
		})
	}

	t.Run("NilConfig", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Error("New(nil) should fail")
		}
	})

	t.Run("DefaultIsValid", func(t *testing.T) {
		if _, err := New(DefaultConfig()); err != nil {
			t.Errorf("New(DefaultConfig()) failed: %v", err)
		}
	})
}

func TestNew_SeededInitialization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumAgents = 50

	f1, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f2, _ := New(cfg)

	half := cfg.BoundarySize / 2
	for i, a := range f1.agents {
		// Same seed, same flock.
		if !a.Position.Eq(f2.agents[i].Position) || !a.Velocity.Eq(f2.agents[i].Velocity) {
			t.Fatalf("agent %d differs between identically seeded flocks", i)
		}
		// Spawn bounds.
		for axis := 0; axis < 3; axis++ {
			if p := a.Position.Component(axis); math.Abs(p) > half {
				t.Errorf("agent %d spawned outside boundary: %v", i, a.Position)
			}
			if v := a.Velocity.Component(axis); math.Abs(v) > initialSpeed {
				t.Errorf("agent %d spawned too fast: %v", i, a.Velocity)
			}
		}
		if !a.Acceleration.Eq(geometry.Vector3D{}) {
			t.Errorf("agent %d spawned with non-zero acceleration", i)
		}
	}

	other := *cfg
	other.Seed = 7
	f3, _ := New(&other)
	if f1.agents[0].Position.Eq(f3.agents[0].Position) {
		t.Error("different seeds produced the same first agent position")
	}
}

func TestAccumulateNeighbours_NoSelf(t *testing.T) {
	// A lone agent has zero distance to itself but must never count itself.
	snapshot := []Agent{
		{Position: geometry.Vector3D{}, Velocity: geometry.Vector3D{X: 0.01}},
	}
	_, _, _, count := accumulateNeighbours(0, snapshot, 1.0)
	if count != 0 {
		t.Errorf("lone agent counted %d neighbours; want 0", count)
	}
}

func TestAccumulateNeighbours_CoincidentAgentsCount(t *testing.T) {
	// Two distinct agents on the same point are still neighbours of each
	// other: identity is the index, not the coordinates.
	pos := geometry.Vector3D{X: 1, Y: 1, Z: 1}
	snapshot := []Agent{
		{Position: pos},
		{Position: pos},
	}
	_, _, _, count := accumulateNeighbours(0, snapshot, 1.0)
	if count != 1 {
		t.Errorf("coincident pair counted %d neighbours; want 1", count)
	}
}

func TestAccumulateNeighbours_StrictRadius(t *testing.T) {
	radius := 1.0
	me := Agent{}

	t.Run("ExactlyAtRadius", func(t *testing.T) {
		snapshot := []Agent{me, {Position: geometry.Vector3D{X: radius}}}
		if _, _, _, count := accumulateNeighbours(0, snapshot, radius); count != 0 {
			t.Errorf("agent exactly at radius counted as neighbour (count=%d)", count)
		}
	})

	t.Run("InsideRadius", func(t *testing.T) {
		snapshot := []Agent{me, {Position: geometry.Vector3D{X: radius - 0.5}}}
		if _, _, _, count := accumulateNeighbours(0, snapshot, radius); count != 1 {
			t.Errorf("agent inside radius not counted (count=%d)", count)
		}
	})
}

func TestAccumulateNeighbours_Sums(t *testing.T) {
	snapshot := []Agent{
		{Position: geometry.Vector3D{}},
		{Position: geometry.Vector3D{X: 0.5}, Velocity: geometry.Vector3D{Y: 0.01}},
		{Position: geometry.Vector3D{X: -0.25}, Velocity: geometry.Vector3D{Y: 0.03}},
		{Position: geometry.Vector3D{Z: 50}}, // far away, ignored
	}
	separation, alignment, cohesion, count := accumulateNeighbours(0, snapshot, 1.0)

	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if !separation.Eq(geometry.Vector3D{X: -0.25}) {
		t.Errorf("separation = %v; want (-0.25, 0, 0)", separation)
	}
	if !alignment.Eq(geometry.Vector3D{Y: 0.04}) {
		t.Errorf("alignment = %v; want (0, 0.04, 0)", alignment)
	}
	if !cohesion.Eq(geometry.Vector3D{X: 0.25}) {
		t.Errorf("cohesion = %v; want (0.25, 0, 0)", cohesion)
	}
}

func TestFlock_Tick_SeparationScenario(t *testing.T) {
	// Two resting agents half a unit apart. The one at the origin must be
	// pushed away from the other (-X, separation beats cohesion at weight
	// 1.5 vs 1.0) and pulled down by gravity (-Y).
	cfg := DefaultConfig()
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.agents = []Agent{
		{Position: geometry.Vector3D{}},
		{Position: geometry.Vector3D{X: 0.5}},
	}

	f.Tick()

	v := f.agents[0].Velocity
	if v.X >= 0 {
		t.Errorf("Velocity.X = %v; want negative (pushed away)", v.X)
	}
	if v.Y >= 0 {
		t.Errorf("Velocity.Y = %v; want negative (gravity)", v.Y)
	}
	if !floatEquals(v.Z, 0) {
		t.Errorf("Velocity.Z = %v; want 0", v.Z)
	}

	// The second agent is pushed the other way.
	if f.agents[1].Velocity.X <= 0 {
		t.Errorf("other Velocity.X = %v; want positive", f.agents[1].Velocity.X)
	}
}

func TestFlock_Tick_SoftBoundaryPush(t *testing.T) {
	// A lone resting agent inside the soft margin gets pushed back toward
	// the center on that axis before it ever reaches the hard wall.
	cfg := DefaultConfig()
	cfg.Gravity = 0
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.agents = []Agent{
		{Position: geometry.Vector3D{X: 2.0}}, // inner edge is at 1.5
	}

	f.Tick()

	if v := f.agents[0].Velocity; v.X >= 0 {
		t.Errorf("Velocity.X = %v; want negative push toward center", v.X)
	}
	if v := f.agents[0].Velocity; v.Y != 0 || v.Z != 0 {
		t.Errorf("push must act on the crossed axis only, got %v", v)
	}
}

func TestFlock_Tick_DeterministicAcrossWorkers(t *testing.T) {
	const ticks = 100

	run := func(workers int) *Flock {
		cfg := DefaultConfig()
		cfg.NumAgents = 30
		cfg.Workers = workers
		f, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		for i := 0; i < ticks; i++ {
			f.Tick()
		}
		return f
	}

	sequential := run(1)
	parallel := run(4)
	saturated := run(13) // more workers than evenly divide the population

	for i := range sequential.agents {
		if sequential.agents[i] != parallel.agents[i] {
			t.Fatalf("agent %d diverged between 1 and 4 workers:\n  %+v\n  %+v",
				i, sequential.agents[i], parallel.agents[i])
		}
		if sequential.agents[i] != saturated.agents[i] {
			t.Fatalf("agent %d diverged between 1 and 13 workers", i)
		}
	}
}

func TestFlock_LongRun_BoundedAndFinite(t *testing.T) {
	cfg := DefaultConfig() // 10 agents
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	half := cfg.BoundarySize / 2
	for tick := 0; tick < 1000; tick++ {
		f.Tick()
		for i, a := range f.agents {
			for axis := 0; axis < 3; axis++ {
				p := a.Position.Component(axis)
				v := a.Velocity.Component(axis)
				if math.IsNaN(p) || math.IsInf(p, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("tick %d: agent %d has degenerate state %+v", tick, i, a)
				}
				if math.Abs(p) > half {
					t.Fatalf("tick %d: agent %d escaped boundary: %v", tick, i, a.Position)
				}
			}
			if !a.Acceleration.Eq(geometry.Vector3D{}) {
				t.Fatalf("tick %d: agent %d kept residual acceleration %v", tick, i, a.Acceleration)
			}
		}
	}
}

func TestFlock_Accessors_ReturnCopies(t *testing.T) {
	cfg := DefaultConfig()
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if f.Size() != cfg.NumAgents {
		t.Errorf("Size = %d; want %d", f.Size(), cfg.NumAgents)
	}

	positions := f.Positions()
	if len(positions) != cfg.NumAgents {
		t.Fatalf("Positions length = %d; want %d", len(positions), cfg.NumAgents)
	}
	before := f.agents[0].Position
	positions[0] = geometry.Vector3D{X: 999}
	if !f.agents[0].Position.Eq(before) {
		t.Error("mutating Positions() result leaked into the flock")
	}

	snapshot := f.Snapshot()
	snapshot[0].Velocity = geometry.Vector3D{X: 999}
	if f.agents[0].Velocity.X == 999 {
		t.Error("mutating Snapshot() result leaked into the flock")
	}

	velocities := f.Velocities()
	if len(velocities) != cfg.NumAgents {
		t.Errorf("Velocities length = %d; want %d", len(velocities), cfg.NumAgents)
	}
}

func BenchmarkFlock_Tick(b *testing.B) {
	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.NumAgents = 500
		cfg.Workers = workers
		f, err := New(cfg)
		if err != nil {
			b.Fatalf("New failed: %v", err)
		}

		name := "Sequential"
		if workers > 1 {
			name = "Parallel"
		}
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				f.Tick()
			}
		})
	}
}
