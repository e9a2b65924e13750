package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jianyun8023/epubkit/epub"
)

var infoStrict bool

func init() {
	infoCmd.Flags().BoolVar(&infoStrict, "strict", false, "Fail on spec violations instead of recovering")
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info input.epub",
	Short: "Print the package structure of a publication",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := epub.OpenWith(args[0], epub.OpenOptions{Strict: infoStrict, RetainVariants: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", args[0], err)
			os.Exit(1)
		}
		defer e.Close()

		pkg := e.Package()
		fmt.Printf("Package:  %s (version %s)\n", pkg.Location(), pkg.Version().Raw)

		md := e.Metadata()
		if id := md.Identifier(); id != nil {
			fmt.Printf("ID:       %s", id.Value())
			if scheme := id.Scheme(); scheme != "" {
				fmt.Printf(" (%s)", scheme)
			}
			fmt.Println()
		}
		if t := md.Title(); t != nil {
			fmt.Printf("Title:    %s\n", t.Value())
		}
		for _, c := range md.Creators() {
			fmt.Printf("Creator:  %s", c.Value())
			if role := c.MainRole(); role != "" {
				fmt.Printf(" [%s]", role)
			}
			fmt.Println()
		}
		if lang := md.Language(); lang != nil {
			fmt.Printf("Language: %s\n", lang.Value())
		}
		if mod, ok := md.Modified(); ok {
			fmt.Printf("Modified: %s\n", mod)
		}

		fmt.Printf("Manifest: %d resources (%d readable, %d images)\n",
			e.Manifest().Len(), len(e.Manifest().Readable()), len(e.Manifest().Images()))
		if cover := e.Manifest().CoverImage(); cover != nil {
			fmt.Printf("Cover:    %s\n", cover.Href())
		}
		fmt.Printf("Spine:    %d entries\n", e.Spine().Len())

		if contents := e.Toc().Contents(); contents != nil {
			fmt.Printf("Contents:\n")
			printTocLevel(contents, 1)
		}
	},
}

func printTocLevel(node *epub.TocEntry, depth int) {
	for _, child := range node.Children() {
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		label := child.Label()
		if label == "" {
			label = "(untitled)"
		}
		fmt.Println(label)
		printTocLevel(child, depth+1)
	}
}
