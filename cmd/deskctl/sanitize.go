package main

import (
	"fmt"
	"io"
	"os"

	"catalogdesk/internal/richtext"

	"github.com/spf13/cobra"
)

func newSanitizeCmd() *cobra.Command {
	var noTables, keepListParagraphs bool
	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Clean a product description the way the editor saves it",
		Long: `Reads an HTML fragment from file (or stdin when omitted or "-") and
prints the cleaned fragment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			opts := richtext.DefaultOptions()
			opts.FormatTables = !noTables
			opts.UnwrapListParagraphs = !keepListParagraphs

			_, err = fmt.Fprintln(cmd.OutOrStdout(), richtext.Sanitize(string(in), opts))
			return err
		},
	}
	cmd.Flags().BoolVar(&noTables, "no-tables", false, "leave table markup as is")
	cmd.Flags().BoolVar(&keepListParagraphs, "keep-list-paragraphs", false, "keep <p> inside <li>")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
