package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wekan-tools/github-wekan-sync/internal/config"
	"github.com/wekan-tools/github-wekan-sync/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available board templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		dir := templatesDir
		if dir == "" {
			dir = cfg.Server.TemplatesDir
		}
		tm := templates.New(dir, nil)

		fmt.Println("Available templates:")
		for _, name := range tm.Names() {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	},
}

func init() {
	templatesCmd.Flags().StringVar(&templatesDir, "templates-dir", "", "directory containing template JSON files")
	rootCmd.AddCommand(templatesCmd)
}
