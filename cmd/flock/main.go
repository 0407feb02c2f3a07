package main

import (
	"flag"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"go.uber.org/zap"
)

const (
	screenWidth  = 800
	screenHeight = 600

	// Camera sits on the +Z axis looking at the origin, like the reference
	// view of the simulation cube.
	cameraZ     = 5.0
	focalLength = 600.0
)

type Game struct {
	flock  *flock.Flock
	logger *zap.Logger

	// Timing instrumentation
	lastUpdateDuration time.Duration
	lastDrawDuration   time.Duration
	updateAvg          float64 // Rolling average in ms
	drawAvg            float64 // Rolling average in ms
	tickCount          int
	lastLogTime        time.Time
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.lastUpdateDuration = time.Since(start)
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(g.lastUpdateDuration.Microseconds())/1000.0*0.05
	}()

	g.flock.Tick()
	g.tickCount++
	g.logBenchmarks()

	return nil
}

func (g *Game) logBenchmarks() {
	if time.Since(g.lastLogTime) >= time.Second {
		g.logger.Info("tick rate",
			zap.Int("ticksPerSecond", g.tickCount),
			zap.Int("agents", g.flock.Size()),
			zap.Float64("updateAvgMs", g.updateAvg),
			zap.Float64("drawAvgMs", g.drawAvg),
		)
		g.tickCount = 0
		g.lastLogTime = time.Now()
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.lastDrawDuration = time.Since(start)
		g.drawAvg = g.drawAvg*0.95 + float64(g.lastDrawDuration.Microseconds())/1000.0*0.05
	}()

	screen.Fill(color.RGBA{R: 10, G: 10, B: 30, A: 255})

	for _, state := range g.flock.Snapshot() {
		drawAgent(screen, state)
	}

	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nUpdate: %.2fms\nDraw:   %.2fms\nTotal:  %.2fms",
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		g.updateAvg,
		g.drawAvg,
		g.updateAvg+g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, screenWidth-150, 10)
}

// project maps a world-space point onto the screen with a simple perspective
// divide. The returned scale shrinks with depth so far agents draw smaller.
func project(p geometry.Vector3D) (sx, sy, scale float64) {
	depth := cameraZ - p.Z
	if depth < 0.1 {
		depth = 0.1
	}
	scale = focalLength / depth
	sx = screenWidth/2 + p.X*scale
	sy = screenHeight/2 - p.Y*scale
	return sx, sy, scale
}

func drawAgent(screen *ebiten.Image, state flock.AgentState) {
	// Heading in screen space: project the position and a point slightly
	// ahead along the velocity, then orient the triangle between them.
	sx, sy, scale := project(state.Position)
	hx, hy, _ := project(state.Position.Add(state.Velocity.Mul(10)))
	angle := math.Atan2(hy-sy, hx-sx)

	// Triangle size tracks depth so the flock reads as 3D.
	size := scale / 40

	tipX := sx + math.Cos(angle)*1.2*size
	tipY := sy + math.Sin(angle)*1.2*size
	rightX := sx + math.Cos(angle+2.5)*size
	rightY := sy + math.Sin(angle+2.5)*size
	leftX := sx + math.Cos(angle-2.5)*size
	leftY := sy + math.Sin(angle-2.5)*size

	// Define the 3 vertices of the triangle
	vertices := []ebiten.Vertex{
		{
			DstX: float32(tipX),
			DstY: float32(tipY),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		},
		{
			DstX: float32(rightX),
			DstY: float32(rightY),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		},
		{
			DstX: float32(leftX),
			DstY: float32(leftY),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		},
	}

	indices := []uint16{0, 1, 2}

	op := &ebiten.DrawTrianglesOptions{}

	screen.DrawTriangles(vertices, indices, whiteImage, op)
}

func (g *Game) Layout(w, h int) (int, int) {
	return screenWidth, screenHeight
}

var whiteImage = ebiten.NewImage(3, 3)

func init() {
	whiteImage.Fill(color.RGBA{R: 100, G: 200, B: 255, A: 255})
}

func main() {
	configFile := flag.String("config", "", "path to a JSON config file (default: built-in config)")
	schemaFile := flag.String("schema", "config/config.schema.json", "path to the config JSON schema")
	seed := flag.Uint64("seed", 0, "override the RNG seed (0 keeps the configured seed)")
	workers := flag.Int("workers", -1, "override tick parallelism (-1 keeps the configured value)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	cfg := flock.DefaultConfig()
	if *configFile != "" {
		cfg, err = flock.LoadConfig(*configFile, *schemaFile)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}

	f, err := flock.New(cfg)
	if err != nil {
		logger.Fatal("failed to create flock", zap.Error(err))
	}

	logger.Info("starting simulation",
		zap.Int("agents", cfg.NumAgents),
		zap.Uint64("seed", cfg.Seed),
		zap.Int("workers", cfg.Workers),
		zap.Bool("uniformSpeedLimit", cfg.UniformSpeedLimit),
	)

	game := &Game{
		flock:       f,
		logger:      logger,
		lastLogTime: time.Now(),
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Bird Flock Simulation")
	ebiten.SetTPS(60) // Target 60 ticks per second
	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("game loop exited", zap.Error(err))
	}
}
