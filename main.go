package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Dig-pestroyer/NyxPatch/cmd/nyxpatcher"
	"github.com/Dig-pestroyer/NyxPatch/internal/config"
	"github.com/Dig-pestroyer/NyxPatch/internal/lifecycle"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/Dig-pestroyer/NyxPatch/internal/telemetry"
)

const (
	perfLifecycleStartup  = "app.lifecycle.startup"
	perfLifecycleExecute  = "app.lifecycle.execute"
	perfLifecycleShutdown = "app.lifecycle.shutdown"
)

type shutdownTrigger string

const (
	shutdownTriggerNormal shutdownTrigger = "normal"
	shutdownTriggerSignal shutdownTrigger = "signal"
)

type runDeps struct {
	execute           func(context.Context) error
	telemetryInit     func()
	telemetryShutdown func(context.Context)
	register          func(lifecycle.Handler) lifecycle.HandlerID
	unregister        func(lifecycle.HandlerID)
	args              []string
}

type perfExportConfig struct {
	enabled bool
	debug   bool
	baseDir string
	outDir  string
}

// perfExportConfigFromArgs sniffs the raw arguments before cobra parses
// them so the span pipeline can be wired ahead of command execution.
// Relative paths resolve against the config file's directory.
func perfExportConfigFromArgs(args []string, cwd string) perfExportConfig {
	cfg := perfExportConfig{}
	configPath := config.DefaultConfigFile
	outDir := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--perf":
			cfg.enabled = true
		case arg == "--debug":
			cfg.debug = true
		case arg == "--config" || arg == "-c":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--perf-out-dir":
			if i+1 < len(args) {
				outDir = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--perf-out-dir="):
			outDir = strings.TrimPrefix(arg, "--perf-out-dir=")
		}
	}

	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(cwd, configPath)
	}
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		absConfig = configPath
	}
	cfg.baseDir = filepath.Dir(absConfig)

	switch {
	case outDir == "":
		cfg.outDir = cfg.baseDir
	case filepath.IsAbs(outDir):
		cfg.outDir = outDir
	default:
		cfg.outDir = filepath.Join(cfg.baseDir, outDir)
	}

	return cfg
}

func runWithDeps(deps runDeps) int {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	exportCfg := perfExportConfigFromArgs(deps.args, cwd)
	_ = perf.Init(perf.Config{Enabled: exportCfg.enabled})

	ctx := context.Background()

	_, startupSpan := perf.StartSpan(ctx, perfLifecycleStartup)
	deps.telemetryInit()

	var shutdownOnce sync.Once
	shutdown := func(trigger shutdownTrigger, sig os.Signal) {
		shutdownOnce.Do(func() {
			attrs := []attribute.KeyValue{
				attribute.String("trigger", string(trigger)),
			}
			if sig != nil {
				attrs = append(attrs, attribute.String("signal", sig.String()))
			}
			_, shutdownSpan := perf.StartSpan(ctx, perfLifecycleShutdown, perf.WithAttributes(attrs...))
			deps.telemetryShutdown(ctx)
			shutdownSpan.End()
		})
	}

	handlerID := deps.register(func(sig os.Signal) {
		shutdown(shutdownTriggerSignal, sig)
	})
	startupSpan.End()

	execCtx, executeSpan := perf.StartSpan(ctx, perfLifecycleExecute)
	execErr := deps.execute(execCtx)
	executeSpan.End()

	shutdown(shutdownTriggerNormal, nil)
	deps.unregister(handlerID)

	if execErr != nil {
		return 1
	}
	return 0
}

func exportPerfIfEnabled(args []string) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg := perfExportConfigFromArgs(args, cwd)
	if !cfg.enabled {
		return
	}

	spans, err := perf.GetSpans()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to snapshot performance spans: %v\n", err)
		return
	}

	path, err := perf.ExportToFile(afero.NewOsFs(), cfg.outDir, cfg.baseDir, spans)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to export performance spans: %v\n", err)
		return
	}
	if cfg.debug {
		fmt.Fprintf(os.Stderr, "performance spans written to %s\n", path)
	}
}

func main() {
	deps := runDeps{
		execute: func(ctx context.Context) error {
			return nyxpatcher.Command().ExecuteContext(ctx)
		},
		telemetryInit: telemetry.Init,
		telemetryShutdown: func(ctx context.Context) {
			telemetry.Flush()
			_ = perf.Shutdown(ctx)
		},
		register:   lifecycle.Register,
		unregister: lifecycle.Unregister,
		args:       os.Args[1:],
	}

	exitCode := runWithDeps(deps)
	exportPerfIfEnabled(deps.args)
	os.Exit(exitCode)
}
