package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"tybafetch/services/expediente"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactively downloads case files until 'q' is entered.",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("Radicado (q para salir): ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "q" || input == "Q" {
				return nil
			}
			if !radicadoRegex.MatchString(input) {
				fmt.Printf("%q no es un radicado valido (23 digitos)\n", input)
				continue
			}

			// a new session per case: portal state never leaks between runs
			svc := createService()
			run, err := svc.Acquire(cmd.Context(), input, expediente.AcquireOptions{
				SkipNotifications: !*keepNotifications,
			})
			if run != nil {
				printSummary(run)
			}
			if err != nil {
				slog.Error("acquisition failed", "radicado", input, "err", err)
			}
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
		}
	},
}
