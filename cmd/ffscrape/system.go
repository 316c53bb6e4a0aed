package main

import (
	"fmt"

	"github.com/pevans/ffscrape/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var flagInitForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write ~/.ffscrape/config.yaml with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		written, err := config.WriteDefaultConfigFile(flagInitForce)
		if err != nil {
			return err
		}

		path, err := config.ConfigFilePath()
		if err != nil {
			return err
		}
		if !written {
			fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s (use --force to overwrite)\n", path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(initCmd, configCmd)
}
