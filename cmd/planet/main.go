package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"planet-lod/internal/config"
	"planet-lod/internal/frame"
	"planet-lod/internal/gpu"
	"planet-lod/internal/lod"
	"planet-lod/internal/profiling"
	"planet-lod/internal/spheremap"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
)

func init() {
	runtime.LockOSThread()
}

// Set at build.
var version = "v0.1.0"

var _ = reflect.TypeOf(options{})

type options struct {
	Radius        float32 `cli:"" env:"PLANET_RADIUS"         help:"Planet radius."`
	Altitude      float32 `cli:"" env:"PLANET_ALTITUDE"       help:"Initial camera altitude above the surface."`
	FOV           float32 `cli:"" env:"PLANET_FOV"            help:"Vertical field of view in degrees."`
	Spin          float32 `cli:"" env:"PLANET_SPIN"           help:"Planet rotation in degrees per second."`
	DistanceScale float32 `cli:"" env:"PLANET_DISTANCE_SCALE" help:"Split distance scale."`
	MaxLevel      int     `cli:"" env:"PLANET_MAX_LEVEL"      help:"Deepest level the engine may split to."`
	FrameLimit    int     `cli:"" env:"PLANET_FRAME_LIMIT"    help:"Frames per second, 0 disables the limiter."`
	LogLevel      string  `cli:"" env:"PLANET_LOG_LEVEL"      help:"Log level (debug|info|warning|error)."`
	Version       bool    `cli:"" env:"-"                     help:"Show version."`
	Help          bool    `cli:"" env:"-"                     help:"Show help."`
}

func main() {
	opts := options{
		Radius:        1000,
		Altitude:      2000,
		FOV:           60,
		Spin:          2,
		DistanceScale: config.GetLodDistanceScale(),
		MaxLevel:      config.GetMaxSplitLevel(),
		FrameLimit:    config.GetFrameLimit(),
		LogLevel:      logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Opens a window that renders the LOD node centres of a planet. Arrows orbit, scroll zooms, space pauses the spin.").
		Options(&opts)
	cli.Load()

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(opts.LogLevel))
	logs.Encoder = json.Marshal
	errors.Encoder = json.Marshal

	config.SetLodDistanceScale(opts.DistanceScale)
	config.SetMaxSplitLevel(opts.MaxLevel)
	config.SetFrameLimit(opts.FrameLimit)

	if err := glfw.Init(); err != nil {
		logs.Fatal(errors.New("initializing glfw failed").Wrap(err))
	}
	defer glfw.Terminate()

	window, err := setupWindow()
	if err != nil {
		logs.Fatal(errors.New("creating window failed").Wrap(err))
	}

	if err := run(ctx, window, opts); err != nil {
		logs.Fatal(err)
	}
}

func setupWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(1280, 720, "planet", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return nil, err
	}

	// The frame limiter paces the loop.
	glfw.SwapInterval(0)
	return window, nil
}

func run(ctx context.Context, window *glfw.Window, opts options) error {
	buffer, err := gpu.NewLayoutBuffer()
	if err != nil {
		return errors.New("creating layout buffer failed").Wrap(err)
	}
	defer buffer.Dispose()

	points, err := gpu.NewPointRenderer(buffer)
	if err != nil {
		return errors.New("creating point renderer failed").Wrap(err)
	}
	defer points.Dispose()

	engine := lod.NewEngine(spheremap.MapPointToSphere, buffer)
	buffer.Resync(engine.PackedLayout(), opts.Radius)

	camera := &orbitCamera{
		Altitude: opts.Altitude,
		Radius:   opts.Radius,
		FOV:      opts.FOV,
	}
	spinning := true

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		camera.Zoom(yoff)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			spinning = !spinning
		}
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
	})

	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(0.02, 0.02, 0.05, 1)

	limiter := frame.NewLimiter()
	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()

	var spin float32
	frames := 0
	last := time.Now()

	for !window.ShouldClose() && ctx.Err() == nil {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		orbitKeys(window, camera, dt)
		if spinning {
			spin += opts.Spin * dt
		}

		model := mgl32.HomogRotate3DY(mgl32.DegToRad(spin))
		engine.Update(lod.CameraLocal(camera.Position(), model), camera.FOV, opts.Radius)

		width, height := window.GetFramebufferSize()
		aspect := float32(width) / float32(max(height, 1))

		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		points.Render(camera.View().Mul4(model), camera.Projection(aspect))

		window.SwapBuffers()
		glfw.PollEvents()
		profiling.EndFrame()
		frames++

		select {
		case <-statsTicker.C:
			logs.WithTag("fps", frames).
				WithTag("altitude", camera.Altitude).
				WithTag("node_count", engine.NodeCount()).
				WithTag("profile", profiling.TopNAverage(3)).
				Debug("frame stats")
			frames = 0
		default:
		}

		limiter.Wait()
	}
	return nil
}

// orbitKeys rotates the camera with the arrow keys, faster when far away.
func orbitKeys(window *glfw.Window, camera *orbitCamera, dt float32) {
	speed := 60 * dt * mgl32.Clamp(camera.Altitude/camera.Radius, 0.01, 1)

	var dyaw, dpitch float32
	if window.GetKey(glfw.KeyLeft) == glfw.Press {
		dyaw -= speed
	}
	if window.GetKey(glfw.KeyRight) == glfw.Press {
		dyaw += speed
	}
	if window.GetKey(glfw.KeyUp) == glfw.Press {
		dpitch += speed
	}
	if window.GetKey(glfw.KeyDown) == glfw.Press {
		dpitch -= speed
	}
	camera.Rotate(dyaw, dpitch)
}
