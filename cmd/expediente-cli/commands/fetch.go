package commands

import (
	"fmt"
	"os"
	"regexp"
	"tybafetch/services/expediente"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// radicadoRegex matches the national 23-digit case numbering standard.
var radicadoRegex = regexp.MustCompile(`^\d{23}$`)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <radicado>",
	Short: "Downloads every document of one case file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		radicado := args[0]
		if !radicadoRegex.MatchString(radicado) {
			return fmt.Errorf("%q is not a valid case number: expected 23 digits", radicado)
		}

		svc := createService()
		run, err := svc.Acquire(cmd.Context(), radicado, expediente.AcquireOptions{
			SkipNotifications: !*keepNotifications,
		})
		if run != nil {
			printSummary(run)
		}
		return err
	},
}

func printSummary(run *expediente.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Fecha", "Documento", "Tipo", "Bytes"})
	for _, e := range run.Entries {
		t.AppendRow(table.Row{e.Date, e.Name, string(e.Kind), e.Size})
	}
	t.Render()

	fmt.Printf("\nExpediente %s: %d documentos, %d omitidos, %d errores (admision: %s)\n",
		run.Radicado, len(run.Entries), len(run.Discarded), len(run.Errors), run.AdmissionDate)
	for _, rec := range run.Errors {
		fmt.Printf("  error: %s (%s): %s\n", rec.Item, rec.Date, rec.Message)
	}
}
