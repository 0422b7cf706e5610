package commands

import (
	"fmt"
	"io"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/spf13/cobra"
)

// offlineHint points at the saved copy when the remote cannot be reached
const offlineHint = "the remote task service failed; saved tasks are still available with: taskctl tasks list --offline"

type rootOptions struct {
	debug   bool
	console bool
}

// NewRootCmd creates the taskctl command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "taskctl",
		Short: "Manage tasks stored in a remote task service",
		Long: "taskctl keeps a local copy of your tasks and tags, applies changes " +
			"through the remote API, and reminds you when tasks start or fall due.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.console, "console", false, "Human-readable logs instead of JSON")

	cmd.AddCommand(newTasksCmd(opts))
	cmd.AddCommand(newTagsCmd(opts))
	cmd.AddCommand(newNextCmd())
	cmd.AddCommand(newWatchCmd(opts))
	return cmd
}

// ReportError writes err for the user, adding a hint when the remote failed
func ReportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if apperrors.IsRemote(err) {
		fmt.Fprintf(w, "Hint: %s\n", offlineHint)
	}
}
