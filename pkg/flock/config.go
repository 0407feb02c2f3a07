package flock

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Config struct {
	// Population
	NumAgents int `json:"numAgents"`

	// Physics / Behavior
	MaxSpeed        float64 `json:"maxSpeed"`        // Hard cap on velocity magnitude
	NeighbourRadius float64 `json:"neighbourRadius"` // How far can they see?

	// Flocking weights
	SeparationWeight float64 `json:"separationWeight"` // Crowd avoidance strength
	AlignmentWeight  float64 `json:"alignmentWeight"`  // Velocity matching strength
	CohesionWeight   float64 `json:"cohesionWeight"`   // Centering strength

	// World
	Gravity        float64 `json:"gravity"`        // Constant downward pull on Y
	BoundarySize   float64 `json:"boundarySize"`   // Full cube edge length, world spans [-size/2, size/2]
	BoundaryForce  float64 `json:"boundaryForce"`  // Push-back strength inside the soft margin
	BoundaryMargin float64 `json:"boundaryMargin"` // Soft margin inside the hard wall
	BounceDamping  float64 `json:"bounceDamping"`  // Velocity scale applied on wall reflection

	// UniformSpeedLimit selects the corrected speed cap: the full velocity
	// vector is rescaled once per integration step. The default (false) keeps
	// the legacy per-axis clamp, which recomputes the norm mid-loop over
	// partially updated components and therefore yields slightly different
	// dynamics. Zero-velocity agents are never renormalized in either mode.
	UniformSpeedLimit bool `json:"uniformSpeedLimit"`

	// Determinism / Scheduling
	Seed    uint64 `json:"seed"`    // RNG seed for initial agent placement
	Workers int    `json:"workers"` // Tick parallelism, 0 means GOMAXPROCS
}

func DefaultConfig() *Config {
	return &Config{
		NumAgents:        10,
		MaxSpeed:         0.02,
		NeighbourRadius:  1.0,
		SeparationWeight: 1.5,
		AlignmentWeight:  1.0,
		CohesionWeight:   1.0,
		Gravity:          0.0005,
		BoundarySize:     5.0,
		BoundaryForce:    0.1,
		BoundaryMargin:   1.0,
		BounceDamping:    0.8,
		Seed:             42,
		Workers:          0,
	}
}

// Validate reports the first invalid parameter. The simulation itself has no
// failure modes, so all sanity checking happens here, before construction.
func (c *Config) Validate() error {
	switch {
	case c.NumAgents <= 0:
		return fmt.Errorf("numAgents must be positive, got %d", c.NumAgents)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("maxSpeed must be positive, got %g", c.MaxSpeed)
	case c.NeighbourRadius < 0:
		return fmt.Errorf("neighbourRadius cannot be negative, got %g", c.NeighbourRadius)
	case c.SeparationWeight < 0 || c.AlignmentWeight < 0 || c.CohesionWeight < 0:
		return fmt.Errorf("flocking weights cannot be negative, got %g/%g/%g",
			c.SeparationWeight, c.AlignmentWeight, c.CohesionWeight)
	case c.BoundarySize <= 0:
		return fmt.Errorf("boundarySize must be positive, got %g", c.BoundarySize)
	case c.BoundaryForce < 0:
		return fmt.Errorf("boundaryForce cannot be negative, got %g", c.BoundaryForce)
	case c.BoundaryMargin < 0 || c.BoundaryMargin >= c.BoundarySize/2:
		return fmt.Errorf("boundaryMargin must be in [0, boundarySize/2), got %g", c.BoundaryMargin)
	case c.BounceDamping < 0 || c.BounceDamping > 1:
		return fmt.Errorf("bounceDamping must be in [0, 1], got %g", c.BounceDamping)
	case c.Workers < 0:
		return fmt.Errorf("workers cannot be negative, got %d", c.Workers)
	}
	return nil
}

// LoadConfig loads configuration from a JSON file and validates it against the schema.
func LoadConfig(configFile string, schemaFile string) (*Config, error) {
	// 1. Compile Schema
	sch, err := jsonschema.Compile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Read Config File
	f, err := os.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// 3. Validate
	var v interface{}
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Unmarshal into Struct
	// We already decoded into interface{} for schema validation, so read the
	// bytes once more to fill the typed struct.
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config values: %w", err)
	}

	return cfg, nil
}
