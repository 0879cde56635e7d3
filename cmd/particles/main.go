// Package main provides a headless tool for checking particle scripts and
// rendering particle effects to PNG snapshots.
//
// Usage:
//
//	go run ./cmd/particles [flags]
//
// Flags:
//
//	-data <dir>         Data directory (default: data)
//	-config <path>      Config file (default: config.yaml in the data dir)
//	-check              Parse every script, report errors and reference cycles
//	-list               List the loaded particle systems
//	-snapshot <out.png> Render an effect to a PNG file
//	-effect <name>      Effect to render (e.g., -effect=explosion)
//	-time <ms>          Simulated time before the snapshot is taken (default 500)
//	-yaw, -pitch        Camera angles in degrees
//	-distance <units>   Camera distance, 0 uses viewer.cameraDistance
//	-verbose            Enable debug logging
//
// Exit status is 1 when scripts fail to parse or reference each other in a
// cycle, and 2 on bad arguments.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/decker502/pfx/pkg/app"
	"github.com/decker502/pfx/pkg/config"
	"github.com/decker502/pfx/pkg/logging"
	"github.com/decker502/pfx/pkg/render"
	"github.com/decker502/pfx/pkg/utils"
)

// frameTime 快照模拟使用的固定帧时间（毫秒）
const frameTime = 16

// effectOrigin 快照中效果的生成位置，略高于地板
var effectOrigin = mgl64.Vec3{0, 0, 16}

type options struct {
	data     string
	config   string
	check    bool
	list     bool
	snapshot string
	effect   string
	time     int
	yaw      float64
	pitch    float64
	distance float64
	verbose  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fset := flag.NewFlagSet("particles", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&opts.data, "data", "data", "Data directory")
	fset.StringVar(&opts.config, "config", "", "Config file (default: config.yaml in the data dir)")
	fset.BoolVar(&opts.check, "check", false, "Parse every script and report errors and cycles")
	fset.BoolVar(&opts.list, "list", false, "List the loaded particle systems")
	fset.StringVar(&opts.snapshot, "snapshot", "", "Render -effect to this PNG file")
	fset.StringVar(&opts.effect, "effect", "", "Effect to render")
	fset.IntVar(&opts.time, "time", 500, "Simulated milliseconds before the snapshot")
	fset.Float64Var(&opts.yaw, "yaw", -135, "Camera yaw in degrees")
	fset.Float64Var(&opts.pitch, "pitch", 25, "Camera pitch in degrees")
	fset.Float64Var(&opts.distance, "distance", 0, "Camera distance, 0 uses the config")
	fset.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if !opts.check && !opts.list && opts.snapshot == "" {
		return nil, errors.New("nothing to do: pass -check, -list or -snapshot")
	}
	if opts.snapshot != "" && opts.effect == "" {
		return nil, errors.New("-snapshot needs -effect")
	}
	if opts.time < 0 {
		return nil, errors.New("-time must not be negative")
	}
	return opts, nil
}

func loadConfig(opts *options, data fs.FS) (*config.EngineConfig, error) {
	if opts.config != "" {
		return config.LoadEngineConfig(opts.config)
	}
	raw, err := fs.ReadFile(data, "config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return config.DefaultEngineConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.ParseEngineConfig(raw)
}

// run 执行命令并返回退出码
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}

	info, err := os.Stat(opts.data)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(stderr, "data directory %s not found\n", opts.data)
		return 2
	}
	data := os.DirFS(opts.data)

	cfg, err := loadConfig(opts, data)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 2
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer logger.Sync()

	engine, err := app.NewEngine(app.Options{Config: cfg, Data: data, Logger: logger})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	loadErr := engine.Reload()

	status := 0
	if opts.check {
		status = check(engine, loadErr, stdout)
	}
	if opts.list {
		for _, name := range engine.Templates() {
			fmt.Fprintln(stdout, name)
		}
	}
	if opts.snapshot != "" {
		if err := snapshot(engine, opts); err != nil {
			logger.Errorw("snapshot failed", zap.String("effect", opts.effect), zap.Error(err))
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", opts.snapshot)
	}
	return status
}

// check 打印解析错误和循环引用，有问题时返回 1
func check(engine *app.Engine, loadErr error, w io.Writer) int {
	status := 0
	if loadErr != nil {
		status = 1
		for _, line := range strings.Split(loadErr.Error(), "\n") {
			fmt.Fprintf(w, "error: %s\n", line)
		}
	}
	for _, cycle := range engine.Particles.Store().Cycles() {
		status = 1
		fmt.Fprintf(w, "cycle: %s\n", strings.Join(cycle, " -> "))
	}
	fmt.Fprintf(w, "%d particle systems loaded from %s\n",
		len(engine.Templates()), path.Clean(engine.Config().Scripts.Dir))
	return status
}

// snapshot 生成效果，模拟 opts.time 毫秒后保存一帧
func snapshot(engine *app.Engine, opts *options) error {
	if _, ok := engine.Spawn(opts.effect, effectOrigin, utils.Up); !ok {
		return fmt.Errorf("no particle system named %s", opts.effect)
	}

	viewer := engine.Config().Viewer
	distance := opts.distance
	if distance <= 0 {
		distance = viewer.CameraDistance
	}
	cam := render.NewCamera(viewer.Width, viewer.Height, viewer.FOV)
	cam.Orbit(effectOrigin, opts.yaw, opts.pitch, distance)

	view := app.View{Origin: cam.Origin, Axis: cam.Axis, ThirdPerson: true}
	for elapsed := 0; elapsed < opts.time; elapsed += frameTime {
		engine.Step(min(frameTime, opts.time-elapsed), view)
	}
	// 至少提交一帧
	if opts.time == 0 {
		engine.Step(0, view)
	}

	return render.NewSnapshotRenderer(engine.Resources).SavePNG(opts.snapshot, engine.Frame(cam, false))
}
