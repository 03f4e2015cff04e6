package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/tempbox/internal/app"
	"github.com/nhle/tempbox/internal/cli"
	"github.com/nhle/tempbox/internal/credential"
	"github.com/nhle/tempbox/internal/logging"
	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/store"
)

type rootFlags struct {
	configPath string
	envFile    string
	accessible bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "tempbox",
		Short:         "Disposable mail.tm inboxes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			menu := cli.NewMenu(
				rt.client,
				rt.store,
				cli.HuhPrompter{Accessible: flags.accessible},
				cmd.OutOrStdout(),
				rt.cfg.Wait,
				rt.log,
			)
			return menu.Run(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", model.DefaultConfigPath(), "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before the config")
	cmd.Flags().BoolVar(&flags.accessible, "accessible", false, "Use plain line-based prompts")

	cmd.AddCommand(newTUICmd(flags))
	cmd.AddCommand(newAccountsCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))

	return cmd
}

func newTUICmd(flags *rootFlags) *cobra.Command {
	var autoRefresh bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			m := app.New(rt.client, rt.store, app.Options{
				RefreshInterval: time.Duration(rt.cfg.Refresh.IntervalSec) * time.Second,
				AutoRefresh:     autoRefresh,
				Logger:          rt.log,
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("running tui: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoRefresh, "auto-refresh", false, "Poll the inbox as soon as an account is active")
	return cmd
}

// runtime holds the dependencies shared by every command.
type runtime struct {
	cfg     *model.AppConfig
	log     zerolog.Logger
	client  *mailtm.Client
	store   store.AccountStore
	closers []io.Closer
}

// openRuntime loads configuration and opens the logger, client and store.
func openRuntime(flags *rootFlags) (*runtime, error) {
	if err := model.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	cfg, err := model.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	var vault *credential.Vault
	if cfg.Store.Backend == model.StoreBackendSQLite {
		vault, err = credential.Open(model.ConfigDir())
		if err != nil {
			rt.Close()
			return nil, err
		}
	}
	s, err := store.Open(cfg, vault)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = s
	rt.closers = append(rt.closers, s)

	rt.client = newClient(cfg, log)
	log.Info().
		Str("base_url", cfg.API.BaseURL).
		Str("store", cfg.Store.Backend).
		Msg("tempbox started")
	return rt, nil
}

func newClient(cfg *model.AppConfig, log zerolog.Logger) *mailtm.Client {
	return mailtm.NewClient(cfg.API.BaseURL,
		mailtm.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		mailtm.WithLogger(log),
		mailtm.WithCredentialLengths(cfg.Account.UsernameLength, cfg.Account.PasswordLength),
		mailtm.WithWaitDefaults(time.Duration(cfg.Wait.IntervalSec)*time.Second, cfg.Wait.MaxChecks),
		mailtm.WithExportDir(cfg.Export.Dir),
	)
}

// Close releases everything in reverse order of opening.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.log.Warn().Err(err).Msg("closing")
		}
	}
}
