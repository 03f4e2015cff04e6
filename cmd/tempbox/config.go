package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/tempbox/internal/model"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(newConfigInitCmd(flags))
	cmd.AddCommand(newConfigShowCmd(flags))

	return cmd
}

func newConfigInitCmd(flags *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := os.Stat(flags.configPath)
			switch {
			case err == nil && !force:
				return fmt.Errorf("%s already exists (use --force to overwrite)", flags.configPath)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("checking %s: %w", flags.configPath, err)
			}

			if err := model.SaveConfig(flags.configPath, model.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flags.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.LoadDotEnv(flags.envFile); err != nil {
				return err
			}
			cfg, err := model.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api.base_url:            %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "api.timeout_sec:         %d\n", cfg.API.TimeoutSec)
			fmt.Fprintf(out, "account.username_length: %d\n", cfg.Account.UsernameLength)
			fmt.Fprintf(out, "account.password_length: %d\n", cfg.Account.PasswordLength)
			fmt.Fprintf(out, "wait.interval_sec:       %d\n", cfg.Wait.IntervalSec)
			fmt.Fprintf(out, "wait.max_checks:         %d\n", cfg.Wait.MaxChecks)
			fmt.Fprintf(out, "refresh.interval_sec:    %d\n", cfg.Refresh.IntervalSec)
			fmt.Fprintf(out, "export.dir:              %s\n", cfg.Export.Dir)
			fmt.Fprintf(out, "store.backend:           %s\n", cfg.Store.Backend)
			fmt.Fprintf(out, "store.path:              %s\n", cfg.StorePath())
			fmt.Fprintf(out, "log.level:               %s\n", cfg.Log.Level)
			fmt.Fprintf(out, "log.file:                %s\n", cfg.Log.File)
			return nil
		},
	}
}
