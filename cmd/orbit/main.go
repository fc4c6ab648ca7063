// Command orbit is a standalone viewer for the friendly sphere gallery:
// point it at a list of media URLs and it opens a window with the
// interactive sphere.
package main

import (
	"flag"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/carol-liaocn/friendly"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		baseURL    = flag.String("base", "", "base address prepended to relative media identifiers")
		logFile    = flag.String("log", "", "log file path (rotated); empty logs to stderr only")
		fullscreen = flag.Bool("fullscreen", false, "start fullscreen")
		debug      = flag.Bool("debug", false, "enable engine debug output")
	)
	flag.Parse()

	logger := newLogger(*logFile, *debug)
	defer func() { _ = logger.Sync() }()

	ids := flag.Args()
	if len(ids) == 0 {
		logger.Fatal("no media identifiers given",
			zap.String("usage", "orbit [flags] media [media...]"))
	}

	cfg := friendly.DefaultConfig()
	if *configPath != "" {
		loaded, err := friendly.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("loading config", zap.Error(err))
		}
		cfg = loaded
	}

	friendly.SetDebug(*debug)

	base := strings.TrimRight(*baseURL, "/")
	resolver := func(id string) string {
		if base == "" || strings.Contains(id, "://") {
			return id
		}
		return base + "/" + strings.TrimLeft(id, "/")
	}

	engine := friendly.NewEngine(cfg, ids, resolver)
	engine.OnAdvance = func() {
		logger.Info("advance gesture")
	}

	logger.Info("starting orbit",
		zap.Int("media", len(ids)),
		zap.String("base", base))

	if err := friendly.Run(engine, friendly.RunConfig{
		Title:      "orbit",
		Width:      1280,
		Height:     720,
		Fullscreen: *fullscreen,
	}); err != nil {
		logger.Fatal("engine exited", zap.Error(err))
	}
}

// newLogger builds a console logger, optionally teed into a rotated file.
func newLogger(logFile string, debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	if logFile != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, level))
	}

	return zap.New(zapcore.NewTee(cores...))
}
