package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Init writes ~/.photo-critic/config.yaml (or the --config path) with the
default settings, leaving an existing file untouched.`,
	Args: cobra.NoArgs,
	// The file may not exist yet, so skip loading it.
	PersistentPreRun: func(cmd *cobra.Command, args []string) { cfg = config.Default() },
	Run:               runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	defer setupLogging("cli", false)()

	path := configFlag
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve config path")
		}
		path = p
	}

	created, err := config.WriteDefault(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write config")
	}
	if created {
		fmt.Printf("Wrote %s\n", path)
		return
	}
	fmt.Printf("%s already exists; left unchanged\n", path)
}
