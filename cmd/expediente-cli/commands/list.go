package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"tybafetch/lib/serviceutil"
	"tybafetch/services/expediente/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list <radicado>",
	Short: "Re-prints the recorded outcomes of a previous acquisition.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		radicado := args[0]
		if !radicadoRegex.MatchString(radicado) {
			return fmt.Errorf("%q is not a valid case number: expected 23 digits", radicado)
		}

		cfg := loadConfig()
		path := filepath.Join(cfg.OutputDir, radicado, "ledger.db")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("no acquisition recorded for %s under %s", radicado, cfg.OutputDir)
		}

		ledger, err := db.Open(path)
		if err != nil {
			serviceutil.Fatal("failed to open ledger", err)
		}
		defer ledger.Close()

		attachments, err := ledger.Attachments(cmd.Context(), radicado)
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Fecha", "Documento", "Tipo", "Veredicto", "Bytes"})
		for _, a := range attachments {
			t.AppendRow(table.Row{a.Date, a.Name, a.Kind, a.Verdict, a.SizeBytes})
		}
		t.Render()

		runErrors, err := ledger.Errors(cmd.Context(), radicado)
		if err != nil {
			return err
		}
		for _, e := range runErrors {
			fmt.Printf("  error: %s (%s): %s\n", e.Item, e.Date, e.Message)
		}
		return nil
	},
}
