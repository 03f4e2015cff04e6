package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/tempbox/internal/theme"
)

func newAccountsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage saved accounts",
	}

	cmd.AddCommand(newAccountsListCmd(flags))
	cmd.AddCommand(newAccountsRemoveCmd(flags))

	return cmd
}

func newAccountsListCmd(flags *rootFlags) *cobra.Command {
	var showPasswords bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			accts, err := rt.store.GetAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing accounts: %w", err)
			}
			if len(accts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved accounts.")
				return nil
			}

			headers := []string{"#", "EMAIL"}
			if showPasswords {
				headers = append(headers, "PASSWORD")
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorGray)).
				Headers(headers...)
			for i, a := range accts {
				row := []string{fmt.Sprint(i + 1), a.Email}
				if showPasswords {
					row = append(row, a.Password)
				}
				t.Row(row...)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "Include passwords in the output")
	return cmd
}

func newAccountsRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Forget a saved account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.store.RemoveAccount(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("removing %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
