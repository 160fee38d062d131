package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/export"
)

func exportCmd() *cobra.Command {
	var format string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the call graph",
		Long:  "Export the indexed call graph as JSON or Graphviz dot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			var w *os.File
			if outputFile == "" || outputFile == "-" {
				w = os.Stdout
			} else {
				w, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer w.Close()
			}

			exporter := export.New(db)
			switch format {
			case "json":
				return exporter.JSON(w)
			case "dot":
				return exporter.DOT(w)
			default:
				return fmt.Errorf("unknown format %q (want json or dot)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json/dot)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default stdout)")

	return cmd
}
