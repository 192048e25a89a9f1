package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/cli"
	"github.com/fpang/photo-critic/internal/logging"
	"github.com/fpang/photo-critic/internal/tui"
	"github.com/fpang/photo-critic/internal/workflow"
)

var saveDirFlag string

var tuiCmd = &cobra.Command{
	Use:   "tui [file]",
	Short: "Interactive critique, edit and comparison in the terminal",
	Long: `TUI opens a full-screen view with the comparison pane on the left and the
critique on the right. Logs go to ~/.photo-critic/photo-critic.log.

Keys:
  o  open a path     p  file dialog     a  analyze
  e  apply edits     r  rate the edit   s  save the edited image
  +/-  zoom          0  reset view      ←/→  move the slider
Drag on the image to move the slider or pan; scroll to zoom.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&saveDirFlag, "save-dir", ".", "Directory the edited image is saved to")
}

func runTUI(cmd *cobra.Command, args []string) {
	defer setupLogging("tui", true)()

	initial := firstArg(args)
	if initial != "" {
		initial = cli.ValidateAndResolveImage(initial)
	}

	genaiCtx, client := cli.InitGeminiClient(cfg)
	logStartup("tui", func(sl *logging.StartupLogger) {
		sl.Config("saveDir", saveDirFlag).Feature("initialImage", initial != "")
	})

	ctx, cancel := context.WithCancel(genaiCtx)
	defer cancel()

	ctrl := workflow.New(client, client, workflow.WithContext(ctx))
	app := tui.NewApp(ctrl,
		tui.WithPicker(cli.PickImage),
		tui.WithSaveDir(saveDirFlag),
		tui.WithInitialPath(initial),
	)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("TUI exited with error")
		os.Exit(1)
	}
}
