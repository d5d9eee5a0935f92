package main

import (
	"fmt"
	"os"

	"railctl/cmd/railctl/cli"
	"railctl/internal/config"
	"railctl/internal/errors"

	"github.com/spf13/cobra"
)

func (a *app) configPath() (string, error) {
	if a.cfgFile != "" {
		return a.cfgFile, nil
	}
	return config.DefaultPath()
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.NewConfigError("config file already exists; use --force to overwrite", path, errors.InvalidConfig, nil)
			}
			if err := config.SaveConfig(a.cfg, path); err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), "configuration written to "+path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(
		initCmd,
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.configPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "themes",
			Short: "List the color themes",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, name := range config.ListThemes() {
					marker := "  "
					if name == a.cfg.Theme.Name {
						marker = "* "
					}
					fmt.Fprintln(cmd.OutOrStdout(), marker+name)
				}
			},
		},
	)
	return cmd
}
