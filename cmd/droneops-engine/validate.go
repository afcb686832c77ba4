package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	validateConfigPath string
	validateSchemaPath string
	validatePlansPath  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file against the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(validateConfigPath, validateSchemaPath)
		if err != nil {
			return err
		}
		plans, err := loadPlans(cfg, validatePlansPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config OK: cluster %s, %d drones, %d missions, %d plans\n",
			cfg.ClusterID, len(cfg.Drones), len(cfg.Missions), len(plans))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to engine configuration YAML")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	validateCmd.Flags().StringVar(&validatePlansPath, "plans", "", "Path to mission plan YAML")
	_ = validateCmd.MarkFlagRequired("config")
}
