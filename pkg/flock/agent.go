package flock

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Agent represents a single entity in the flock: a point mass with a
// velocity capped at Config.MaxSpeed and a per-tick force accumulator.
// Fields are exported so the renderer can read them, but agents are only
// ever handed out as copies; the Flock keeps exclusive ownership.
type Agent struct {
	Position     geometry.Vector3D
	Velocity     geometry.Vector3D
	Acceleration geometry.Vector3D
}

// ApplyForce accumulates a force into the acceleration for the current tick.
// May be called any number of times before Integrate.
func (a *Agent) ApplyForce(force geometry.Vector3D) {
	a.Acceleration = a.Acceleration.Add(force)
}

// DistanceTo gives the cartesian distance from this Agent to the other.
func (a *Agent) DistanceTo(other *Agent) float64 {
	return a.Position.DistanceTo(other.Position)
}

// Integrate consumes the accumulated acceleration and advances the agent by
// one time unit: velocity update, speed cap, position update, wall bounce.
// The acceleration is zeroed afterwards.
//
// The legacy cap (UniformSpeedLimit false) works axis by axis: each axis adds
// its acceleration, then the full vector norm is recomputed over the
// partially updated velocity and only that axis is scaled when the norm
// exceeds MaxSpeed. Later axes therefore see earlier axes already scaled.
// This matches the historical behavior of the simulation and is kept as a
// contract; the uniform mode rescales the whole vector once instead.
//
// The cap only fires when the speed exceeds MaxSpeed, so a zero velocity is
// never divided by its own (zero) norm.
func (a *Agent) Integrate(cfg *Config) {
	if cfg.UniformSpeedLimit {
		a.integrateUniform(cfg)
		return
	}

	half := cfg.BoundarySize / 2
	for i := 0; i < 3; i++ {
		a.Velocity = a.Velocity.WithComponent(i, a.Velocity.Component(i)+a.Acceleration.Component(i))

		speed := a.Velocity.Len()
		if speed > cfg.MaxSpeed {
			a.Velocity = a.Velocity.WithComponent(i, a.Velocity.Component(i)*cfg.MaxSpeed/speed)
		}

		a.advanceAxis(i, half, cfg.BounceDamping)
		a.Acceleration = a.Acceleration.WithComponent(i, 0)
	}
}

// integrateUniform is the corrected variant: all velocity components are
// updated first, then the vector is rescaled once if it is over the cap.
func (a *Agent) integrateUniform(cfg *Config) {
	a.Velocity = a.Velocity.Add(a.Acceleration)
	if speed := a.Velocity.Len(); speed > cfg.MaxSpeed {
		a.Velocity = a.Velocity.Mul(cfg.MaxSpeed / speed)
	}

	half := cfg.BoundarySize / 2
	for i := 0; i < 3; i++ {
		a.advanceAxis(i, half, cfg.BounceDamping)
	}
	a.Acceleration = geometry.Vector3D{}
}

// advanceAxis moves the agent along one axis and reflects it off the wall.
// On a bounce the velocity flips sign, loses energy, and the position is
// clamped exactly onto the wall it crossed.
func (a *Agent) advanceAxis(i int, half, damping float64) {
	p := a.Position.Component(i) + a.Velocity.Component(i)
	a.Position = a.Position.WithComponent(i, p)

	if math.Abs(p) > half {
		a.Velocity = a.Velocity.WithComponent(i, -a.Velocity.Component(i)*damping)
		a.Position = a.Position.WithComponent(i, math.Copysign(half, p))
	}
}
