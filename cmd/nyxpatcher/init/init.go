// Package init creates a fresh configuration file.
package init

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Dig-pestroyer/NyxPatch/internal/config"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/i18n"
	"github.com/Dig-pestroyer/NyxPatch/internal/minecraft"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
)

type dependencies struct {
	fs     afero.Fs
	client httpclient.Doer
	out    io.Writer
}

type options struct {
	configPath  string
	gameVersion string
	loader      string
	modsDir     string
}

func Command() *cobra.Command {
	opts := options{}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("cmd.init.short"),
		Long:  i18n.T("cmd.init.long"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := dependencies{
				fs:     afero.NewOsFs(),
				client: httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0)),
				out:    cmd.OutOrStdout(),
			}
			return run(cmd.Context(), deps, opts)
		},
	}

	flags := initCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, i18n.T("cmd.init.flag.config"))
	flags.StringVarP(&opts.gameVersion, "game-version", "g", "", i18n.T("cmd.init.flag.gameVersion"))
	flags.StringVarP(&opts.loader, "loader", "l", string(models.FABRIC), i18n.T("cmd.init.flag.loader"))
	flags.StringVarP(&opts.modsDir, "mods-dir", "m", "mods", i18n.T("cmd.init.flag.modsDir"))

	return initCmd
}

func run(ctx context.Context, deps dependencies, opts options) error {
	ctx, span := perf.StartSpan(ctx, "cmd.init")
	defer span.End()

	loader, ok := models.ParseLoader(opts.loader)
	if !ok {
		return fmt.Errorf("unknown loader: %s", opts.loader)
	}

	gameVersion, err := resolveGameVersion(ctx, deps.client, opts.gameVersion)
	if err != nil {
		return err
	}

	meta := config.NewMetadata(opts.configPath)
	cfg, err := config.InitConfig(deps.fs, meta, gameVersion)
	if err != nil {
		return err
	}

	if loader != cfg.Loader || opts.modsDir != cfg.ModDirectories[0] {
		cfg.Loader = loader
		cfg.ModDirectories = []string{opts.modsDir}
		cfg.DownloadDirectory = opts.modsDir
		if err := config.WriteConfig(deps.fs, meta, cfg); err != nil {
			return err
		}
	}

	fmt.Fprintln(deps.out, i18n.T("cmd.init.created", i18n.Tvars{
		Data: &i18n.TData{"path": meta.ConfigPath},
	}))
	return nil
}

// resolveGameVersion picks the latest release when no version was given and
// validates explicit versions against the Mojang manifest. Manifest fetch
// failures only block the implicit path, an explicit version is kept as-is.
func resolveGameVersion(ctx context.Context, client httpclient.Doer, requested string) (string, error) {
	if requested == "" {
		return minecraft.GetLatestVersion(ctx, client)
	}

	valid, err := minecraft.IsValidVersion(ctx, requested, client)
	if err != nil {
		return requested, nil
	}
	if !valid {
		return "", fmt.Errorf("%s", i18n.T("cmd.init.invalidGameVersion", i18n.Tvars{
			Data: &i18n.TData{"version": requested},
		}))
	}

	return requested, nil
}
