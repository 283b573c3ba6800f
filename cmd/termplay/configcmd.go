package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/termplay/internal/config"
)

func configCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
		// A broken config must not stop init --force or path from running.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.noColor {
				pterm.DisableColor()
			}
			c.manager = config.NewManager(c.configPath)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.manager.Exists() && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", c.manager.GetPath())
			}
			if err := c.manager.Save(); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("wrote %s", c.manager.GetPath())
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), c.manager.GetPath())
			return err
		},
	}

	cmd.AddCommand(initCmd, pathCmd)
	return cmd
}
