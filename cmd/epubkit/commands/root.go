package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "epubkit",
	Short: "epubkit reads, edits and rewrites EPUB publications",
	Long: `epubkit is a thin front-end over the epubkit library: it opens
EPUB 2/3 publications, inspects or edits their package metadata, and
rewrites spec-valid archives.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
