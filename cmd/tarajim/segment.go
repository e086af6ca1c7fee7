package main

import (
	"github.com/spf13/cobra"

	"github.com/msalhab/tarajim/internal/cli"
	"github.com/msalhab/tarajim/internal/pdf"
	"github.com/msalhab/tarajim/internal/segment"
)

var (
	segmentPattern  string
	segmentShowText bool
)

// segmentPreview is the per-chunk shape printed by the segment command.
type segmentPreview struct {
	Index   int    `json:"index" yaml:"index"`
	Label   string `json:"label" yaml:"label"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Preview string `json:"preview,omitempty" yaml:"preview,omitempty"`
}

var segmentCmd = &cobra.Command{
	Use:   "segment <pdf>",
	Short: "Preview how a PDF splits into entries, without calling any LLM",
	Long: `Segment extracts the PDF's text layer and applies the entry-boundary
pattern, printing what the extract command would send for structuring. Use it
to verify a pattern against a new book before paying for extraction calls.

Examples:
  tarajim segment ./wafayat-al-ayan.pdf
  tarajim segment ./wafayat-al-ayan.pdf --pattern 'ترجمة (\d+): ([^\n]+)' --text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := segmentPattern
		if expr == "" {
			expr = segment.DefaultExpr
		}
		pattern, err := segment.Compile(expr)
		if err != nil {
			return err
		}

		text, err := pdf.ExtractText(args[0])
		if err != nil {
			return err
		}

		chunks := pattern.Split(text)
		previews := make([]segmentPreview, 0, len(chunks))
		for _, c := range chunks {
			p := segmentPreview{
				Index: c.Index,
				Label: c.Label(),
				Start: c.Start,
				End:   c.End,
			}
			if segmentShowText {
				p.Text = c.Text
			} else {
				p.Preview = previewOf(c.Text)
			}
			previews = append(previews, p)
		}

		return cli.Output(map[string]any{
			"pattern": expr,
			"count":   len(previews),
			"entries": previews,
		})
	},
}

// previewOf truncates entry text for display.
func previewOf(text string) string {
	const maxRunes = 120
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "…"
}

func init() {
	segmentCmd.Flags().StringVar(&segmentPattern, "pattern", "", "segmentation pattern override")
	segmentCmd.Flags().BoolVar(&segmentShowText, "text", false, "print full entry text instead of a preview")
}
