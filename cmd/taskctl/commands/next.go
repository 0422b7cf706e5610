package commands

import (
	"fmt"
	"time"

	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/recurrence"
	"github.com/spf13/cobra"
)

func newNextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <repeatType> <repeat> <anchor>",
		Short: "Print the next occurrences of a repeat rule",
		Long: "Evaluates a repeat rule locally without contacting the remote.\n" +
			"repeatType is endDate (5-field cron) or completionDate (offset such as D3);\n" +
			"anchor is RFC 3339 or YYYY-MM-DD.",
		Example: `  taskctl next endDate "0 9 * * MON" 2024-01-01
  taskctl next completionDate D3 2024-01-01T18:30:00Z --count 3`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := recurrence.Decode(args[1], models.RepeatType(args[0]))
			if err != nil {
				return err
			}
			anchor, err := parseDate(args[2])
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			at := anchor.Time
			for range count {
				next, err := recurrence.NextOccurrence(spec, at)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), next.Format(time.RFC3339)); err != nil {
					return err
				}
				at = next
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "Number of occurrences to print")
	return cmd
}
