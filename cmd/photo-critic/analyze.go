package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/cli"
	"github.com/fpang/photo-critic/internal/imageasset"
	"github.com/fpang/photo-critic/internal/workflow"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Rate a photo and suggest three edits",
	Long: `Analyze sends the photo to Gemini and prints the rating, commentary and
three suggested edits. Without a file argument a file dialog opens.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) {
	defer setupLogging("cli", false)()

	path := cli.ChooseImage(firstArg(args))
	ctx, client := cli.InitGeminiClient(cfg)
	logStartup("analyze", nil)

	ctrl := workflow.New(client, client, workflow.WithContext(ctx), workflow.WithRunner(workflow.Inline))
	asset := loadImage(path)
	selectImage(ctrl, asset)

	if err := ctrl.Analyze(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start analysis")
	}
	st := ctrl.State()
	if st.Phase != workflow.PhaseReady {
		log.Fatal().Str("error_kind", string(st.ErrKind)).Msg(st.Message)
	}

	fmt.Println()
	fmt.Printf("📷 %s (%dx%d, %s)\n", asset.Name(), asset.Width(), asset.Height(), cli.FormatSize(asset.Size()))
	fmt.Println("--------------------------------------------")
	fmt.Print(cli.FormatCritique(st.Analysis))
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func loadImage(path string) *imageasset.Asset {
	asset, err := imageasset.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load image")
	}
	return asset
}

func selectImage(ctrl *workflow.Controller, asset *imageasset.Asset) {
	if err := ctrl.Select(asset); err != nil {
		log.Fatal().Err(err).Msg("Failed to select image")
	}
}
