// Package cli implements the reverie CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reverie-ai/reverie"
	"github.com/reverie-ai/reverie/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "reverie",
	Short: "Decaying long-term memory with a wandering mind",
	Long:  "A memory store with strength decay, eviction and consolidation, driven by a three-mode cognitive cycle loop.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "reverie.yaml", "Config file path")
}

func openReverie() (*reverie.Reverie, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return reverie.NewFromConfig(cfg)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
