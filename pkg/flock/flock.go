package flock

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// initialSpeed is the half-width of the uniform velocity distribution used
// when seeding agents, per axis.
const initialSpeed = 0.01

// Flock owns a fixed population of agents and advances them tick by tick.
// Each tick computes the pairwise neighbour forces (separation, alignment,
// cohesion) plus gravity and the soft boundary push, then integrates every
// agent. The force pass reads a consistent pre-tick snapshot so the result
// is independent of both iteration order and parallelism.
type Flock struct {
	cfg     *Config
	agents  []Agent
	workers int
}

// AgentState is a read-only, point-in-time view of one agent, for renderers
// and other observers. Mutating it has no effect on the simulation.
type AgentState struct {
	Position geometry.Vector3D
	Velocity geometry.Vector3D
}

// New validates the configuration and seeds cfg.NumAgents agents with
// positions uniform in [-BoundarySize/2, BoundarySize/2] and velocities
// uniform in [-0.01, 0.01], per axis. The same cfg.Seed always produces the
// same initial flock.
func New(cfg *Config) (*Flock, error) {
	if cfg == nil {
		return nil, fmt.Errorf("flock: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flock: invalid config: %w", err)
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	agents := make([]Agent, cfg.NumAgents)
	for i := range agents {
		agents[i] = Agent{
			Position: randomVector(rng, cfg.BoundarySize),
			Velocity: randomVector(rng, 2*initialSpeed),
		}
	}

	return &Flock{
		cfg:     cfg,
		agents:  agents,
		workers: workers,
	}, nil
}

// randomVector draws each component uniformly from [-span/2, span/2].
func randomVector(rng *rand.Rand, span float64) geometry.Vector3D {
	return geometry.Vector3D{
		X: rng.Float64()*span - span/2,
		Y: rng.Float64()*span - span/2,
		Z: rng.Float64()*span - span/2,
	}
}

// Tick advances the simulation by one discrete step.
//
// The agents are first copied into an immutable snapshot. The per-agent
// force computation then only reads the snapshot and only writes its own
// agent, so the work is split across workers without any locking and without
// one agent ever observing another agent's in-progress update.
func (f *Flock) Tick() {
	snapshot := make([]Agent, len(f.agents))
	copy(snapshot, f.agents)

	if f.workers <= 1 || len(f.agents) == 1 {
		for i := range f.agents {
			f.stepAgent(i, snapshot)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (len(f.agents) + f.workers - 1) / f.workers
	for start := 0; start < len(f.agents); start += chunk {
		end := start + chunk
		if end > len(f.agents) {
			end = len(f.agents)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				f.stepAgent(i, snapshot)
			}
		}(start, end)
	}
	wg.Wait()
}

// stepAgent computes the forces on agent i against the snapshot and
// integrates it.
func (f *Flock) stepAgent(i int, snapshot []Agent) {
	a := &f.agents[i]
	me := &snapshot[i]

	separation, alignment, cohesion, neighbours := accumulateNeighbours(i, snapshot, f.cfg.NeighbourRadius)

	if neighbours > 0 {
		n := float64(neighbours)
		a.ApplyForce(separation.Mul(f.cfg.SeparationWeight))
		// Steer toward the average neighbour velocity / position.
		a.ApplyForce(alignment.Mul(1 / n).Sub(me.Velocity).Mul(f.cfg.AlignmentWeight))
		a.ApplyForce(cohesion.Mul(1 / n).Sub(me.Position).Mul(f.cfg.CohesionWeight))
	}

	a.ApplyForce(geometry.Vector3D{Y: -f.cfg.Gravity})

	// Soft boundary: push back toward the center before the hard wall.
	inner := f.cfg.BoundarySize/2 - f.cfg.BoundaryMargin
	for axis := 0; axis < 3; axis++ {
		p := me.Position.Component(axis)
		if math.Abs(p) > inner {
			push := geometry.Vector3D{}.WithComponent(axis, math.Copysign(f.cfg.BoundaryForce, -p))
			a.ApplyForce(push)
		}
	}

	a.Integrate(f.cfg)
}

// accumulateNeighbours sums the raw separation, alignment and cohesion
// contributions of every agent within radius of snapshot[i]. Agents are
// identified by index, never by coordinates, so two coincident agents still
// count each other while an agent never counts itself. The radius comparison
// is strict: an agent exactly radius away is not a neighbour.
func accumulateNeighbours(i int, snapshot []Agent, radius float64) (separation, alignment, cohesion geometry.Vector3D, count int) {
	me := &snapshot[i]
	for j := range snapshot {
		if j == i {
			continue
		}
		other := &snapshot[j]
		if me.DistanceTo(other) < radius {
			separation = separation.Add(me.Position.Sub(other.Position))
			alignment = alignment.Add(other.Velocity)
			cohesion = cohesion.Add(other.Position)
			count++
		}
	}
	return separation, alignment, cohesion, count
}

// Size returns the fixed population size.
func (f *Flock) Size() int {
	return len(f.agents)
}

// Positions returns a fresh slice with the current agent positions, in
// stable agent order.
func (f *Flock) Positions() []geometry.Vector3D {
	out := make([]geometry.Vector3D, len(f.agents))
	for i := range f.agents {
		out[i] = f.agents[i].Position
	}
	return out
}

// Velocities returns a fresh slice with the current agent velocities, in
// stable agent order.
func (f *Flock) Velocities() []geometry.Vector3D {
	out := make([]geometry.Vector3D, len(f.agents))
	for i := range f.agents {
		out[i] = f.agents[i].Velocity
	}
	return out
}

// Snapshot returns point-in-time copies of all agents for consumers that
// need position and velocity together.
func (f *Flock) Snapshot() []AgentState {
	out := make([]AgentState, len(f.agents))
	for i := range f.agents {
		out[i] = AgentState{
			Position: f.agents[i].Position,
			Velocity: f.agents[i].Velocity,
		}
	}
	return out
}
