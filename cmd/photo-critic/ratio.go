package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/cli"
)

var instructionFlags []string

var ratioCmd = &cobra.Command{
	Use:   "ratio <file>",
	Short: "Show the aspect ratio an edit of this file would use",
	Long: `Ratio prints the supported aspect ratio chosen for an edit. An explicit
ratio named in an --instruction wins; otherwise the closest supported ratio
to the image's display dimensions is used. No API key is needed.

Examples:
  photo-critic ratio beach.jpg
  photo-critic ratio beach.jpg -i "Crop to 16:9 for a cinematic feel"`,
	Args: cobra.ExactArgs(1),
	Run:  runRatio,
}

func init() {
	ratioCmd.Flags().StringArrayVarP(&instructionFlags, "instruction", "i", nil, "Edit instruction to consider (repeatable)")
}

func runRatio(cmd *cobra.Command, args []string) {
	defer setupLogging("cli", false)()

	asset := loadImage(cli.ValidateAndResolveImage(args[0]))
	r := aspect.Select(asset.Width(), asset.Height(), instructionFlags)

	fmt.Println(cli.FormatRatio(asset.Width(), asset.Height(), r))
	if explicit, ok := aspect.FromInstructions(instructionFlags); ok {
		fmt.Printf("(requested by instruction: %s)\n", explicit)
	}
}
