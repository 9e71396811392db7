package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shanmiteko/bili-login/internal/client/domain"
)

var configForce = false

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configForce {
			return fmt.Errorf("config file %s already exists, use --force to overwrite", configPath)
		}
		if err := configRepo.Save(domain.DefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", configPath)
		return nil
	},
}
