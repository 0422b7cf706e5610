package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/recurrence"
	"github.com/benvon/smart-todo-sync/internal/validation"
	"github.com/spf13/cobra"
)

// newTasksCmd creates the tasks command with list, add, edit, rm, done and undone
func newTasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks",
	}
	cmd.AddCommand(newTasksListCmd(opts))
	cmd.AddCommand(newTasksAddCmd(opts))
	cmd.AddCommand(newTasksEditCmd(opts))
	cmd.AddCommand(newTasksRemoveCmd(opts))
	cmd.AddCommand(newTasksDoneCmd(opts, true))
	cmd.AddCommand(newTasksDoneCmd(opts, false))
	return cmd
}

func newTasksListCmd(opts *rootOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Refresh and list tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if !offline {
					if err := a.controller.RefreshTags(cmd.Context()); err != nil {
						return err
					}
					if err := a.controller.RefreshAll(cmd.Context()); err != nil {
						return err
					}
				}
				return printTasks(cmd.OutOrStdout(), a.store.Snapshot().Tasks)
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "List the saved copy without contacting the remote")
	return cmd
}

// taskFlags are the editable task fields shared by add and edit
type taskFlags struct {
	title       string
	description string
	start       string
	end         string
	priority    int
	repeat      string
	repeatType  string
	tags        []int64
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Task title")
	cmd.Flags().StringVar(&f.description, "description", "", "Task description")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "Priority: 0 none, 1 high, 2 highest")
	cmd.Flags().StringVar(&f.repeat, "repeat", "", "Cron expression (endDate) or offset such as D7 (completionDate)")
	cmd.Flags().StringVar(&f.repeatType, "repeat-type", "", "completionDate or endDate")
	cmd.Flags().Int64SliceVar(&f.tags, "tag", nil, "Tag id (repeatable)")
}

// apply overlays the flags the user actually set onto draft
func (f *taskFlags) apply(cmd *cobra.Command, draft *models.Draft) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		draft.Title = validation.SanitizeText(f.title)
	}
	if changed("description") {
		draft.Description = validation.SanitizeText(f.description)
	}
	if changed("start") {
		ts, err := parseDate(f.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		draft.StartDate = ts
	}
	if changed("end") {
		ts, err := parseDate(f.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		draft.EndDate = ts
	}
	if changed("priority") {
		draft.Priority = models.Priority(f.priority)
	}
	if changed("repeat") {
		draft.Repeat = f.repeat
	}
	if changed("repeat-type") {
		draft.RepeatType = models.RepeatType(f.repeatType)
	}
	if changed("tag") {
		draft.TagIDs = f.tags
	}
	return nil
}

func newTasksAddCmd(opts *rootOptions) *cobra.Command {
	flags := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := models.Draft{TagIDs: []int64{}}
			if err := flags.apply(cmd, &draft); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				task, err := a.controller.Create(cmd.Context(), draft)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created task %d\n", task.ID)
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTasksEditCmd(opts *rootOptions) *cobra.Command {
	flags := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a loaded task; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				current, ok := a.store.Task(id)
				if !ok {
					return fmt.Errorf("task %d is not loaded; run 'tasks list' first", id)
				}
				update := models.Update{ID: id, Draft: draftFrom(current)}
				if err := flags.apply(cmd, &update.Draft); err != nil {
					return err
				}
				if err := a.controller.Edit(cmd.Context(), update); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d\n", id)
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTasksRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if err := a.controller.Remove(cmd.Context(), id); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
				return err
			})
		},
	}
}

func newTasksDoneCmd(opts *rootOptions, done bool) *cobra.Command {
	use, short := "done <id>", "Mark a loaded task as done"
	if !done {
		use, short = "undone <id>", "Clear a loaded task's completion"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if done {
					return a.controller.MarkDone(cmd.Context(), id)
				}
				return a.controller.MarkUndone(cmd.Context(), id)
			})
		},
	}
}

func draftFrom(task models.Task) models.Draft {
	tagIDs := make([]int64, 0, len(task.Tags))
	for _, tag := range task.Tags {
		if tag.ID != models.FallbackTagID {
			tagIDs = append(tagIDs, tag.ID)
		}
	}
	return models.Draft{
		Title:       task.Title,
		Description: task.Description,
		StartDate:   task.StartDate,
		EndDate:     task.EndDate,
		Repeat:      task.Repeat,
		RepeatType:  task.RepeatType,
		Priority:    task.Priority,
		TagIDs:      tagIDs,
	}
}

func printTasks(w io.Writer, tasks []models.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tTITLE\tEND\tREPEAT\tNEXT\tTAGS")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			yesNo(task.IsDone()),
			task.Priority,
			task.Title,
			formatDate(task.EndDate),
			task.Repeat,
			nextFor(task),
			tagNames(task.Tags),
		)
	}
	return tw.Flush()
}

// nextFor shows the next occurrence a local evaluation predicts; the remote decides the real one
func nextFor(task models.Task) string {
	next, ok, err := recurrence.ForTask(task)
	switch {
	case err != nil:
		return "?"
	case !ok:
		return ""
	default:
		return next.Format(time.RFC3339)
	}
}

func tagNames(tags []models.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return strings.Join(names, ",")
}

func formatDate(ts models.Timestamp) string {
	if !ts.IsSet() {
		return ""
	}
	return ts.Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// parseDate accepts RFC 3339 or a bare date at UTC midnight; "" clears the date
func parseDate(value string) (models.Timestamp, error) {
	if value == "" {
		return models.Timestamp{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return models.NewTimestamp(t), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return models.Timestamp{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", value)
	}
	return models.NewTimestamp(t), nil
}
