package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"reflect"
	"syscall"

	"planet-lod/internal/config"
	"planet-lod/internal/frame"
	"planet-lod/internal/lod"
	"planet-lod/internal/profiling"
	"planet-lod/internal/spheremap"
	"planet-lod/internal/viz"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

// Set at build.
var version = "v0.1.0"

var _ = reflect.TypeOf(options{})

type options struct {
	Radius        float32 `cli:""        env:"LODSIM_RADIUS"         help:"Planet radius."`
	Frames        int     `cli:""        env:"LODSIM_FRAMES"         help:"Number of simulated frames."`
	Path          string  `cli:""        env:"LODSIM_PATH"           help:"Camera path (approach|dive|orbit)."`
	From          float32 `cli:""        env:"LODSIM_FROM"           help:"Starting camera altitude above the surface."`
	To            float32 `cli:""        env:"LODSIM_TO"             help:"Closest camera altitude above the surface."`
	DistanceScale float32 `cli:""        env:"LODSIM_DISTANCE_SCALE" help:"Split distance scale."`
	MaxLevel      int     `cli:""        env:"LODSIM_MAX_LEVEL"      help:"Deepest level the engine may split to."`
	FrameLimit    int     `cli:""        env:"LODSIM_FRAME_LIMIT"    help:"Frames per second, 0 runs unpaced."`
	AdminAddr     string  `cli:""        env:"LODSIM_ADMIN_ADDR"     help:"Admin listening address serving /metrics. Empty disables it."`
	Hold          bool    `cli:",hidden" env:"LODSIM_HOLD"           help:"Keep serving metrics after the run until interrupted."`
	PNG           string  `cli:""        env:"LODSIM_PNG"            help:"Write the final slot layout as a PNG to this file."`
	Summary       string  `cli:""        env:"LODSIM_SUMMARY"        help:"Write the JSON run summary to this file, - for stdout."`
	LogLevel      string  `cli:""        env:"LODSIM_LOG_LEVEL"      help:"Log level (debug|info|warning|error)."`
	LogIndent     bool    `cli:""        env:"LODSIM_LOG_INDENT"     help:"Indent logs."`
	Version       bool    `cli:""        env:"-"                     help:"Show version."`
	Help          bool    `cli:""        env:"-"                     help:"Show help."`
}

func main() {
	opts := options{
		Radius:        1000,
		Frames:        600,
		Path:          "approach",
		From:          4000,
		To:            0.5,
		DistanceScale: config.GetLodDistanceScale(),
		MaxLevel:      config.GetMaxSplitLevel(),
		Summary:       "-",
		LogLevel:      logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Flies a camera over a planet and reports how the LOD quadtree and its slot layout evolve.").
		Options(&opts)
	cli.Load()

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(opts.LogLevel))
	logs.Encoder = json.Marshal
	if opts.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	path, err := newCameraPath(opts.Path, opts.Radius, opts.From, opts.To)
	if err != nil {
		logs.Fatal(err)
	}
	if opts.Frames <= 0 {
		logs.Fatal(errors.New("frames must be positive").WithTag("frames", opts.Frames))
	}

	config.SetLodDistanceScale(opts.DistanceScale)
	config.SetMaxSplitLevel(opts.MaxLevel)
	config.SetFrameLimit(opts.FrameLimit)

	admin := startAdmin(ctx, opts.AdminAddr)

	logs.WithTag("version", version).
		WithTag("path", opts.Path).
		WithTag("frames", opts.Frames).
		WithTag("radius", opts.Radius).
		WithTag("distance_scale", config.GetLodDistanceScale()).
		WithTag("max_level", config.GetMaxSplitLevel()).
		Info("starting simulation")

	stats := &statsUpdater{}
	engine := lod.NewEngine(spheremap.MapPointToSphere, stats)
	res := simulate(ctx, engine, stats, path, opts)

	logs.WithTag("node_count", res.NodeCount).
		WithTag("batches", res.Batches).
		WithTag("allocations", res.Allocations).
		WithTag("frees", res.Frees).
		WithTag("profile", profiling.TopNAverage(5)).
		Info("simulation finished")

	if opts.PNG != "" {
		if err := writePNG(opts.PNG, engine.PackedLayout()); err != nil {
			logs.Warn(err)
		}
	}
	if opts.Summary != "" {
		if err := writeSummary(opts.Summary, res); err != nil {
			logs.Warn(err)
		}
	}

	if admin != nil && opts.Hold {
		logs.WithTag("addr", opts.AdminAddr).Info("holding metrics endpoint until interrupted")
		<-ctx.Done()
	}
	cancel()
	if admin != nil {
		<-admin
	}
}

func simulate(ctx context.Context, engine *lod.Engine, stats *statsUpdater, path cameraPath, opts options) summary {
	var limiter *frame.Limiter
	if opts.FrameLimit > 0 {
		limiter = frame.NewLimiter()
	}

	overflowFrames := 0
	frames := 0
	for i := 0; i < opts.Frames; i++ {
		if ctx.Err() != nil {
			logs.WithTag("frame", i).Info("simulation interrupted")
			break
		}

		camera := path(i, opts.Frames)
		batches := stats.batches
		engine.Update(camera, 0, opts.Radius)
		frames++

		if stats.batches != batches {
			logs.WithTag("frame", i).
				WithTag("altitude", camera.Len()-opts.Radius).
				WithTag("node_count", engine.NodeCount()).
				Debug("layout changed")
		}

		for _, face := range lod.Faces() {
			if engine.Overflow(face) > 0 {
				overflowFrames++
				break
			}
		}

		profiling.EndFrame()
		if limiter != nil {
			limiter.Wait()
		}
	}

	res := summarize(engine, stats)
	res.Path = opts.Path
	res.Frames = frames
	res.Radius = opts.Radius
	res.OverflowFrame = overflowFrames
	return res
}

// startAdmin serves /metrics until ctx is done. The returned channel is
// closed once the server stopped. It returns nil when addr is empty.
func startAdmin(ctx context.Context, addr string) <-chan struct{} {
	if addr == "" {
		return nil
	}

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	s := &http.Server{Addr: addr, Handler: &admin}

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			logs.Warn(errors.New("shutting down the admin server failed").
				WithTag("addr", addr).
				Wrap(err))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logs.WithTag("addr", addr).Info("starting admin server")

		switch err := s.ListenAndServe(); err {
		case nil, http.ErrServerClosed:
			logs.WithTag("addr", addr).Info("stopping admin server")
		default:
			logs.Warn(errors.New("admin server stopped").
				WithTag("addr", addr).
				Wrap(err))
		}
	}()
	return done
}

func writePNG(filename string, packed []lod.Code) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.New("creating layout image failed").
			WithTag("file", filename).
			Wrap(err)
	}
	defer f.Close()

	if err := png.Encode(f, viz.RenderLayout(packed)); err != nil {
		return errors.New("encoding layout image failed").
			WithTag("file", filename).
			Wrap(err)
	}
	return nil
}

func writeSummary(filename string, res summary) error {
	var w io.Writer = os.Stdout
	if filename != "-" {
		f, err := os.Create(filename)
		if err != nil {
			return errors.New("creating summary file failed").
				WithTag("file", filename).
				Wrap(err)
		}
		defer f.Close()
		w = f
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.New("encoding summary failed").Wrap(err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return errors.New("writing summary failed").
			WithTag("file", filename).
			Wrap(err)
	}
	return nil
}
