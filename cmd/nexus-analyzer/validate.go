package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/nexus/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Print the effective configuration",
	Long: `Load the configuration file and environment overrides the same way
serve does and print the result. Invalid keys are reported as warnings and
replaced by their defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.New()
		log.SetOutput(cmd.ErrOrStderr())

		cfg := config.LoadConfig(cfgFile, log)
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
