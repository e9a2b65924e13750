package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jianyun8023/epubkit/epub"
)

var (
	repackCompression int
	repackEpub3Only   bool
	repackCleanup     bool
	repackOutput      string
)

func init() {
	repackCmd.Flags().IntVar(&repackCompression, "compression", 6, "Deflate level, 0 (store) through 9")
	repackCmd.Flags().BoolVar(&repackEpub3Only, "epub3-only", false, "Drop EPUB 2 compatibility output")
	repackCmd.Flags().BoolVar(&repackCleanup, "cleanup", false, "Drop dangling spine and toc references first")
	repackCmd.Flags().StringVarP(&repackOutput, "output", "o", "", "Output path (default: rewrite in place)")
	rootCmd.AddCommand(repackCmd)
}

var repackCmd = &cobra.Command{
	Use:   "repack [flags] input.epub",
	Short: "Rewrite a publication as a normalized archive",
	Long: `Repack opens a publication leniently, optionally cleans up dangling
references, and rewrites it with regenerated container, package and
navigation documents.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		input := args[0]
		e, err := epub.OpenWith(input, epub.OpenOptions{RetainVariants: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", input, err)
			os.Exit(1)
		}
		defer e.Close()

		if repackCleanup {
			e.Cleanup()
		}

		opts := epub.DefaultWriteOptions()
		opts.Compression = repackCompression
		if repackEpub3Only {
			opts.Targets = []int{3}
		}

		out := repackOutput
		if out == "" {
			out = input
		}
		if err := e.WriteFile(out, &opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("Repacked %d resources to %s\n", len(e.Resources()), out)
	},
}
