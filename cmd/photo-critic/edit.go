package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/cli"
	"github.com/fpang/photo-critic/internal/logging"
	"github.com/fpang/photo-critic/internal/workflow"
)

var (
	outFlag       string
	reanalyzeFlag bool
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Critique a photo, apply the suggested edits, and save the result",
	Long: `Edit analyzes the photo, asks the image model to apply the three suggested
edits at the closest supported aspect ratio, and writes the returned bytes
unchanged. With --reanalyze the edited image is critiqued as well.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output path (default edited-<name> next to the input)")
	editCmd.Flags().BoolVar(&reanalyzeFlag, "reanalyze", false, "Rate the edited image after saving it")
}

func runEdit(cmd *cobra.Command, args []string) {
	defer setupLogging("cli", false)()

	path := cli.ChooseImage(firstArg(args))
	ctx, client := cli.InitGeminiClient(cfg)
	logStartup("edit", func(sl *logging.StartupLogger) {
		sl.Feature("reanalyze", reanalyzeFlag)
	})

	ctrl := workflow.New(client, client, workflow.WithContext(ctx), workflow.WithRunner(workflow.Inline))
	selectImage(ctrl, loadImage(path))

	if err := ctrl.Analyze(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start analysis")
	}
	st := ctrl.State()
	if st.Phase != workflow.PhaseReady {
		log.Fatal().Str("error_kind", string(st.ErrKind)).Msg(st.Message)
	}
	fmt.Print(cli.FormatCritique(st.Analysis))
	fmt.Println("--------------------------------------------")

	if err := ctrl.Edit(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start edit")
	}
	st = ctrl.State()
	if st.Phase != workflow.PhaseEditReady {
		log.Fatal().Str("error_kind", string(st.ErrKind)).Msg(st.Message)
	}

	out := outFlag
	if out == "" {
		out = filepath.Join(filepath.Dir(path), st.Edited.FileName(""))
	}
	if err := os.WriteFile(out, st.Edited.Bytes(), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("Failed to save edited image")
	}
	log.Info().Str("path", out).Str("aspect_ratio", string(st.Ratio)).Msg("Edited image saved")
	fmt.Printf("✅ Saved %s at %s (%s)\n", out, st.Ratio, cli.FormatSize(st.Edited.Size()))

	if !reanalyzeFlag {
		return
	}
	if err := ctrl.Reanalyze(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start re-analysis")
	}
	st = ctrl.State()
	if st.Phase != workflow.PhaseReady {
		log.Fatal().Str("error_kind", string(st.ErrKind)).Msg(st.Message)
	}
	fmt.Println("--------------------------------------------")
	fmt.Println("Edited image:")
	fmt.Print(cli.FormatCritique(st.Analysis))
}
