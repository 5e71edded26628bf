// Package check implements the update check command.
package check

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/Dig-pestroyer/NyxPatch/internal/cache"
	"github.com/Dig-pestroyer/NyxPatch/internal/config"
	"github.com/Dig-pestroyer/NyxPatch/internal/download"
	"github.com/Dig-pestroyer/NyxPatch/internal/engine"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/i18n"
	"github.com/Dig-pestroyer/NyxPatch/internal/logger"
	"github.com/Dig-pestroyer/NyxPatch/internal/minecraft"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/nyxignore"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
	"github.com/Dig-pestroyer/NyxPatch/internal/report"
	"github.com/Dig-pestroyer/NyxPatch/internal/telemetry"
	"github.com/Dig-pestroyer/NyxPatch/internal/tui"
)

// modrinthRateLimit keeps well under the public API allowance.
var modrinthRateLimit = rate.NewLimiter(rate.Every(time.Second/2), 4)

type dependencies struct {
	fs       afero.Fs
	clients  provider.Clients
	artifact httpclient.Doer
	manifest httpclient.Doer
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
}

type options struct {
	configPath    string
	debug         bool
	quiet         bool
	force         bool
	dryRun        bool
	noInteraction bool
	downloadAll   bool
}

func Command() *cobra.Command {
	opts := options{}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: i18n.T("cmd.check.short"),
		Long:  i18n.T("cmd.check.long"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := dependencies{
				fs:       afero.NewOsFs(),
				clients:  provider.DefaultClients(modrinthRateLimit),
				artifact: httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0)),
				manifest: httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0)),
				in:       cmd.InOrStdin(),
				out:      cmd.OutOrStdout(),
				errOut:   cmd.ErrOrStderr(),
			}
			return run(cmd.Context(), deps, opts)
		},
	}

	flags := checkCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, i18n.T("cmd.check.flag.config"))
	flags.BoolVar(&opts.debug, "debug", false, i18n.T("cmd.check.flag.debug"))
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, i18n.T("cmd.check.flag.quiet"))
	flags.BoolVarP(&opts.force, "force", "f", false, i18n.T("cmd.check.flag.force"))
	flags.BoolVar(&opts.dryRun, "dry-run", false, i18n.T("cmd.check.flag.dryRun"))
	flags.BoolVar(&opts.noInteraction, "no-interaction", false, i18n.T("cmd.check.flag.noInteraction"))
	flags.BoolVarP(&opts.downloadAll, "download-all", "y", false, i18n.T("cmd.check.flag.downloadAll"))

	return checkCmd
}

func run(ctx context.Context, deps dependencies, opts options) error {
	started := time.Now()
	ctx, span := perf.StartSpan(ctx, "cmd.check",
		perf.WithAttributes(attribute.Bool("dryRun", opts.dryRun)),
	)
	defer span.End()

	log := logger.New(deps.out, deps.errOut, opts.quiet, opts.debug)

	meta := config.NewMetadata(opts.configPath)
	cfg, err := config.ReadConfig(deps.fs, meta)
	if err != nil {
		var notFound *config.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			bootstrapErr := bootstrapConfig(ctx, deps, meta, log)
			recordTelemetry(started, opts, bootstrapErr, nil)
			return bootstrapErr
		}
		recordTelemetry(started, opts, err, nil)
		return err
	}

	if cfg.CurseforgeAPIKey != "" && os.Getenv("CURSEFORGE_API_KEY") == "" {
		_ = os.Setenv("CURSEFORGE_API_KEY", cfg.CurseforgeAPIKey)
	}

	store := cache.NewStore(time.Duration(cfg.CacheTTLHours) * time.Hour)
	if err := store.Load(deps.fs, meta.CachePath()); err != nil {
		log.Debugf("cache load failed: %v", err)
	}

	scans, err := scanMods(ctx, deps.fs, meta, cfg, log)
	if err != nil {
		recordTelemetry(started, opts, err, nil)
		return err
	}

	providers := map[models.Platform]provider.Provider{
		models.MODRINTH:   provider.For(models.MODRINTH, deps.clients),
		models.CURSEFORGE: provider.For(models.CURSEFORGE, deps.clients),
	}

	resolver := engine.New(providers, store, log, engine.Options{
		GameVersion:      cfg.GameVersion,
		Loader:           cfg.Loader,
		DefaultProvider:  cfg.DefaultProvider,
		FallbackProvider: cfg.FallbackProvider,
		IgnoreMods:       cfg.IgnoreMods,
		ForceRefresh:     opts.force,
	})
	decisions := resolver.Check(ctx, scans)

	if err := report.Write(deps.out, decisions, cfg.GameVersion, cfg.Loader); err != nil {
		recordTelemetry(started, opts, err, decisions)
		return err
	}

	reportPath, reportErr := report.WriteFile(deps.fs, meta.ReportsDir(), decisions, cfg.GameVersion, cfg.Loader, time.Now())
	if reportErr != nil {
		log.Debugf("report file write failed: %v", reportErr)
	} else if reportPath != "" {
		log.Log(i18n.T("cmd.check.report.saved", i18n.Tvars{
			Data: &i18n.TData{"path": reportPath},
		}), false)
	}

	downloadErr := downloadUpdates(ctx, deps, opts, meta, cfg, providers, decisions, log)

	if saveErr := store.Save(deps.fs, meta.CachePath()); saveErr != nil {
		log.Error(i18n.T("cmd.check.cacheSaveFailed", i18n.Tvars{
			Data: &i18n.TData{"error": saveErr.Error()},
		}))
	}

	recordTelemetry(started, opts, downloadErr, decisions)
	return downloadErr
}

// bootstrapConfig writes a default configuration where none exists and
// asks the user to review it. The run stops there; the next invocation
// picks the edited file up.
func bootstrapConfig(ctx context.Context, deps dependencies, meta config.Metadata, log *logger.Logger) error {
	gameVersion, err := minecraft.GetLatestVersion(ctx, deps.manifest)
	if err != nil {
		log.Debugf("could not determine the latest game version: %v", err)
		gameVersion = ""
	}

	if _, err := config.InitConfig(deps.fs, meta, gameVersion); err != nil {
		return err
	}

	log.Log(i18n.T("cmd.check.configCreated", i18n.Tvars{
		Data: &i18n.TData{"path": meta.ConfigPath},
	}), true)
	return nil
}

func scanMods(ctx context.Context, fs afero.Fs, meta config.Metadata, cfg config.Config, log *logger.Logger) ([]engine.Scan, error) {
	ctx, span := perf.StartSpan(ctx, "check.scan")
	defer span.End()

	extractor := modfile.NewExtractor(fs, cfg.Loader)
	scans := make([]engine.Scan, 0)

	for _, dir := range meta.ModDirectoryPaths(cfg) {
		ignored, err := nyxignore.IgnoredFiles(fs, dir)
		if err != nil {
			return nil, err
		}

		jars, err := modfile.ListJarFiles(fs, dir)
		if err != nil {
			log.Error(i18n.T("cmd.check.scanFailed", i18n.Tvars{
				Data: &i18n.TData{"dir": dir, "error": err.Error()},
			}))
			continue
		}

		for _, path := range jars {
			if ignored[path] {
				continue
			}
			identity, err := extractor.Extract(ctx, path)
			scans = append(scans, engine.Scan{Path: path, Identity: identity, Err: err})
		}
	}

	span.SetAttributes(attribute.Int("mods", len(scans)))
	return scans, nil
}

func downloadUpdates(
	ctx context.Context,
	deps dependencies,
	opts options,
	meta config.Metadata,
	cfg config.Config,
	providers map[models.Platform]provider.Provider,
	decisions []engine.Decision,
	log *logger.Logger,
) error {
	updates := make([]engine.Decision, 0)
	for _, decision := range decisions {
		if decision.Reason == engine.UpdateAvailable {
			updates = append(updates, decision)
		}
	}
	if len(updates) == 0 {
		return nil
	}

	if opts.noInteraction && !opts.downloadAll && !opts.dryRun {
		return nil
	}

	destDir := meta.DownloadDirectoryPath(cfg)
	executor := download.NewExecutor(deps.fs, deps.artifact, nil, opts.dryRun)

	selected := updates
	if !opts.downloadAll && !opts.dryRun && !opts.noInteraction {
		selected = promptSelection(ctx, bufio.NewReader(deps.in), deps.out, updates)
	}

	var lastErr error
	for _, decision := range selected {
		fileName := decision.Selected.FileName

		backend, ok := providers[decision.Reference.Platform]
		if !ok {
			continue
		}

		result, err := runDownload(ctx, deps, opts, executor, backend, decision, destDir)
		if err != nil {
			log.Error(i18n.T("cmd.check.download.failed", i18n.Tvars{
				Data: &i18n.TData{"file": fileName, "error": err.Error()},
			}))
			lastErr = err
			continue
		}

		messageKey := "cmd.check.download.done"
		if result.DryRun {
			messageKey = "cmd.check.download.dryRun"
		}
		log.Log(i18n.T(messageKey, i18n.Tvars{
			Data: &i18n.TData{"file": result.FileName},
		}), false)
	}

	return lastErr
}

// runDownload executes a single download, with a progress bar when the
// session is interactive.
func runDownload(
	ctx context.Context,
	deps dependencies,
	opts options,
	executor *download.Executor,
	backend provider.Provider,
	decision engine.Decision,
	destDir string,
) (download.Result, error) {
	ctx, span := perf.StartSpan(ctx, "check.download",
		perf.WithAttributes(attribute.String("mod", decision.Identity.Slug)),
	)
	defer span.End()

	if opts.dryRun || !tui.ShouldUseTUI(opts.quiet, deps.in, deps.out) {
		return executor.Execute(ctx, backend, decision, destDir)
	}

	model := tui.NewDownloadModel(decision.Selected.FileName)
	program := tea.NewProgram(model, tui.ProgramOptions(deps.in, deps.out)...)
	progressExecutor := download.NewExecutor(deps.fs, deps.artifact, program, false)

	return runWithProgress(ctx, program, func(ctx context.Context) (download.Result, error) {
		return progressExecutor.Execute(ctx, backend, decision, destDir)
	})
}

// progressProgram is the slice of *tea.Program the download view needs.
type progressProgram interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

type downloadOutcome struct {
	result download.Result
	err    error
}

// runWithProgress runs execute alongside the progress program. When the
// program quits early the execute context is cancelled, and the result
// is always received from the worker so the return never races it.
func runWithProgress(
	ctx context.Context,
	program progressProgram,
	execute func(context.Context) (download.Result, error),
) (download.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcome := make(chan downloadOutcome, 1)
	go func() {
		result, err := execute(ctx)
		program.Send(tui.DownloadDoneMsg{Err: err})
		outcome <- downloadOutcome{result: result, err: err}
	}()

	final, runErr := program.Run()
	cancel()
	got := <-outcome

	if runErr != nil {
		return download.Result{}, runErr
	}
	if model, ok := final.(tui.DownloadModel); ok && model.Err != nil {
		return download.Result{}, model.Err
	}
	return got.result, got.err
}

// promptSelection shows the numbered update list once and reads a
// single answer: all, none, or a comma separated set of numbers.
func promptSelection(ctx context.Context, reader *bufio.Reader, out io.Writer, updates []engine.Decision) []engine.Decision {
	_, span := perf.StartSpan(ctx, "prompt.download",
		perf.WithAttributes(attribute.Int("updates", len(updates))),
	)
	defer span.End()

	for index, decision := range updates {
		_, _ = fmt.Fprintf(out, "  %d) %s\n", index+1, tui.FileNameStyle.Render(decision.Selected.FileName))
	}
	_, _ = io.WriteString(out, tui.QuestionStyle.Render(i18n.T("cmd.check.prompt.select", i18n.Tvars{
		Data: &i18n.TData{"count": len(updates)},
	})))

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil
	}

	picks := parseSelection(line, len(updates))
	selected := make([]engine.Decision, 0, len(picks))
	for _, pick := range picks {
		selected = append(selected, updates[pick-1])
	}
	return selected
}

// parseSelection turns the menu answer into 1-based indexes. Anything
// unintelligible selects nothing; that is the safe direction.
func parseSelection(line string, count int) []int {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "a", "all":
		picks := make([]int, count)
		for i := range picks {
			picks[i] = i + 1
		}
		return picks
	case "", "n", "none":
		return nil
	}

	seen := make(map[int]bool)
	picks := make([]int, 0)
	for _, token := range strings.Split(line, ",") {
		index, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || index < 1 || index > count || seen[index] {
			continue
		}
		seen[index] = true
		picks = append(picks, index)
	}
	return picks
}

func recordTelemetry(started time.Time, opts options, err error, decisions []engine.Decision) {
	summary := report.Summarize(decisions)
	telemetry.CaptureCommand(telemetry.CommandTelemetry{
		Command:  "check",
		Success:  err == nil,
		Error:    err,
		Duration: time.Since(started),
		Arguments: map[string]interface{}{
			"force":       opts.force,
			"dryRun":      opts.dryRun,
			"downloadAll": opts.downloadAll,
		},
		Extra: map[string]interface{}{
			"mods":    len(decisions),
			"updates": summary.UpdateAvailable,
		},
	})
}
