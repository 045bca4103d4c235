package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/normalize"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the selectable output fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		printFields(cmd.OutOrStdout())
		return nil
	},
}

func printFields(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tCATEGORY")
	_, _ = fmt.Fprintln(w, "-----\t--------")
	for _, f := range model.AllFields() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", f, normalize.CategoryOf(f))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Contacts default:\t%s\n", joinFields(model.DefaultContactFields))
	_, _ = fmt.Fprintf(w, "Places default:\t%s\n", joinFields(model.DefaultPlacesFields))
	_ = w.Flush()
}

func joinFields(fields []model.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
