// pfx 是粒子效果查看器
//
// 启动后加载 data/ 中的粒子脚本，在一块带地板和柱子的场景里生成、附着和调试粒子系统。
// 按键说明显示在窗口底部（F1 切换）。
//
// 用法:
//
//	go run . [flags]
//
// 参数:
//
//	-config <path>      配置文件，默认使用数据目录中的 config.yaml
//	-data <dir>         从磁盘目录读取数据，而不是嵌入的 data/
//	-effect <name>      启动时选中的粒子系统
//	-debug-addr <addr>  启动调试 HTTP 服务器，覆盖配置中的 debug.addr
//	-verbose            输出 debug 级别日志
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"

	"github.com/decker502/pfx/pkg/app"
	"github.com/decker502/pfx/pkg/config"
	"github.com/decker502/pfx/pkg/embedded"
	"github.com/decker502/pfx/pkg/game"
	"github.com/decker502/pfx/pkg/logging"
)

var (
	configFlag    = flag.String("config", "", "Config file (default: config.yaml in the data dir)")
	dataFlag      = flag.String("data", "", "Read data from this directory instead of the embedded copy")
	effectFlag    = flag.String("effect", "", "Particle system selected at start")
	debugAddrFlag = flag.String("debug-addr", "", "Debug HTTP server address, overrides debug.addr")
	verboseFlag   = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// initData 选择数据根目录：-data 指定的磁盘目录或嵌入的 data/
func initData() error {
	if *dataFlag != "" {
		return embedded.InitDir(*dataFlag)
	}
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		return err
	}
	embedded.Init(sub)
	return nil
}

func loadConfig() (*config.EngineConfig, error) {
	if *configFlag != "" {
		return config.LoadEngineConfig(*configFlag)
	}
	data, err := embedded.ReadFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return config.DefaultEngineConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.ParseEngineConfig(data)
}

func run() error {
	if err := initData(); err != nil {
		return fmt.Errorf("failed to open data: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *verboseFlag {
		cfg.Log.Level = "debug"
	}
	if *debugAddrFlag != "" {
		cfg.Debug.Addr = *debugAddrFlag
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 存储不可用时降级为只在内存中保存设置
	store, err := gdata.Open(gdata.Config{AppName: "pfx"})
	if err != nil {
		logger.Warnf("settings storage unavailable: %v", err)
		store = nil
	}
	settings := game.NewSettingsManager(store, logger)

	data, _ := embedded.FS()
	engine, err := app.NewEngine(app.Options{
		Config:   cfg,
		Data:     data,
		Logger:   logger,
		Audio:    audio.NewContext(48000),
		Settings: settings,
	})
	if err != nil {
		return err
	}
	if err := engine.Reload(); err != nil {
		logger.Warnf("some particle scripts failed to load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Debug.Addr != "" {
		go func() {
			if err := engine.ServeDebug(ctx, cfg.Debug.Addr); err != nil {
				logger.Errorw("debug server stopped", zap.Error(err))
			}
		}()
	}

	viewer := app.NewApp(engine, logger.Named("viewer"))
	if *effectFlag != "" && !viewer.Select(*effectFlag) {
		logger.Warnf("no particle system named %s", *effectFlag)
	}

	ebiten.SetWindowSize(cfg.Viewer.Width, cfg.Viewer.Height)
	ebiten.SetWindowTitle(cfg.Viewer.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil && !errors.Is(err, app.ErrQuit) {
		return err
	}
	logger.Info("viewer closed")
	return nil
}
