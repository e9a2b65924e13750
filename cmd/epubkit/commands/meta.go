package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jianyun8023/epubkit/epub"
)

var (
	metaTitle       string
	metaCreator     string
	metaPublisher   string
	metaLanguage    string
	metaDescription string
	metaTags        string
	metaDate        string
	metaCover       string
	metaOutput      string
)

func init() {
	metaCmd.Flags().StringVarP(&metaTitle, "title", "t", "", "Set title")
	metaCmd.Flags().StringVarP(&metaCreator, "creator", "a", "", "Set creator/author")
	metaCmd.Flags().StringVar(&metaPublisher, "publisher", "", "Set publisher")
	metaCmd.Flags().StringVar(&metaLanguage, "language", "", "Set language (e.g. en, zh-CN)")
	metaCmd.Flags().StringVar(&metaDescription, "description", "", "Set description")
	metaCmd.Flags().StringVar(&metaTags, "tags", "", "Set subjects (comma-separated)")
	metaCmd.Flags().StringVar(&metaDate, "date", "", "Set publication date")
	metaCmd.Flags().StringVarP(&metaCover, "cover", "c", "", "Set cover image from file")
	metaCmd.Flags().StringVarP(&metaOutput, "output", "o", "", "Output path (default: rewrite in place)")
	rootCmd.AddCommand(metaCmd)
}

var metaCmd = &cobra.Command{
	Use:   "meta [flags] input.epub",
	Short: "Read or modify publication metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		input := args[0]
		e, err := epub.Open(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", input, err)
			os.Exit(1)
		}
		defer e.Close()

		write := metaTitle != "" || metaCreator != "" || metaPublisher != "" ||
			metaLanguage != "" || metaDescription != "" || metaTags != "" ||
			metaDate != "" || metaCover != ""

		if !write {
			printMetadata(e)
			return
		}

		ed := epub.Edit(e)
		md := e.Metadata()
		if metaTitle != "" {
			md.RemoveByProperty("dc:title")
			ed.Title(metaTitle)
		}
		if metaCreator != "" {
			md.RemoveByProperty("dc:creator")
			ed.Creator(metaCreator)
		}
		if metaPublisher != "" {
			md.RemoveByProperty("dc:publisher")
			ed.Publisher(metaPublisher)
		}
		if metaLanguage != "" {
			md.RemoveByProperty("dc:language")
			ed.Language(metaLanguage)
		}
		if metaDescription != "" {
			md.RemoveByProperty("dc:description")
			ed.Description(metaDescription)
		}
		if metaTags != "" {
			md.RemoveByProperty("dc:subject")
			for _, tag := range strings.Split(metaTags, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					ed.Tag(tag)
				}
			}
		}
		if metaDate != "" {
			dt, ok := epub.ParseDateTime(metaDate)
			if !ok {
				fmt.Fprintf(os.Stderr, "Unparsable date: %s\n", metaDate)
				os.Exit(1)
			}
			ed.PublishedDate(dt)
		}
		if metaCover != "" {
			data, err := os.ReadFile(metaCover)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading cover: %v\n", err)
				os.Exit(1)
			}
			ed.CoverImage("cover"+coverExt(metaCover), data)
		}
		ed.ModifiedNow()

		out := metaOutput
		if out == "" {
			out = input
		}
		if err := e.WriteFile(out, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("Saved to %s\n", out)
	},
}

func coverExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return strings.ToLower(path[i:])
	}
	return ".jpg"
}

func printMetadata(e *epub.Epub) {
	md := e.Metadata()
	if t := md.Title(); t != nil {
		fmt.Printf("Title:       %s\n", t.Value())
	}
	for _, c := range md.Creators() {
		fmt.Printf("Creator:     %s\n", c.Value())
	}
	for _, p := range md.Publishers() {
		fmt.Printf("Publisher:   %s\n", p.Value())
	}
	if lang := md.Language(); lang != nil {
		fmt.Printf("Language:    %s\n", lang.Value())
	}
	for _, id := range md.Identifiers() {
		fmt.Printf("Identifier:  %s\n", id.Value())
	}
	if tags := md.Tags(); len(tags) > 0 {
		values := make([]string, len(tags))
		for i, tag := range tags {
			values[i] = tag.Value()
		}
		fmt.Printf("Tags:        %s\n", strings.Join(values, ", "))
	}
	for _, d := range md.Descriptions() {
		fmt.Printf("Description: %s\n", d.Value())
	}
	if pub, ok := md.Published(); ok {
		fmt.Printf("Published:   %s\n", pub)
	}
	if mod, ok := md.Modified(); ok {
		fmt.Printf("Modified:    %s\n", mod)
	}
}
