package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/javi11/labelsync/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  `Print the configuration built from the config file and the environment, with secrets masked.`,
		RunE:  runConfig,
	}

	configCmd.Flags().String("write", "", "also write the effective configuration (secrets included) to this file")

	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))

	target, _ := cmd.Flags().GetString("write")
	if target == "" {
		return nil
	}

	if err := config.SaveToFile(afero.NewOsFs(), cfg, target); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "configuration written to %s\n", target)
	return nil
}
