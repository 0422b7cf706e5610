package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/validation"
	"github.com/spf13/cobra"
)

// newTagsCmd creates the tags command with list, add, edit and rm
func newTagsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List and change tags",
	}
	cmd.AddCommand(newTagsListCmd(opts))
	cmd.AddCommand(newTagsAddCmd(opts))
	cmd.AddCommand(newTagsEditCmd(opts))
	cmd.AddCommand(newTagsRemoveCmd(opts))
	return cmd
}

func newTagsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Refresh and list tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if err := a.controller.RefreshTags(cmd.Context()); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tBACKGROUND\tTEXT")
				for _, tag := range a.store.Snapshot().Tags {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", tag.ID, tag.Name, tag.BgColor, tag.TextColor)
				}
				return tw.Flush()
			})
		},
	}
}

type tagFlags struct {
	name      string
	bgColor   string
	textColor string
}

func (f *tagFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Tag name")
	cmd.Flags().StringVar(&f.bgColor, "bg", "", "Background color")
	cmd.Flags().StringVar(&f.textColor, "text", "", "Text color")
}

func (f *tagFlags) apply(cmd *cobra.Command, draft *models.TagDraft) {
	if cmd.Flags().Changed("name") {
		draft.Name = validation.SanitizeText(f.name)
	}
	if cmd.Flags().Changed("bg") {
		draft.BgColor = f.bgColor
	}
	if cmd.Flags().Changed("text") {
		draft.TextColor = f.textColor
	}
}

func newTagsAddCmd(opts *rootOptions) *cobra.Command {
	flags := &tagFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := models.TagDraft{}
			flags.apply(cmd, &draft)
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if err := a.controller.CreateTag(cmd.Context(), draft); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Created tag %s\n", draft.Name)
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTagsEditCmd(opts *rootOptions) *cobra.Command {
	flags := &tagFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a tag; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				update := models.TagUpdate{ID: id}
				for _, tag := range a.store.Snapshot().Tags {
					if tag.ID == id {
						update.TagDraft = models.TagDraft{Name: tag.Name, BgColor: tag.BgColor, TextColor: tag.TextColor}
					}
				}
				flags.apply(cmd, &update.TagDraft)
				if err := a.controller.UpdateTag(cmd.Context(), update); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Updated tag %d\n", id)
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTagsRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if err := a.controller.RemoveTag(cmd.Context(), id); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %d\n", id)
				return err
			})
		},
	}
}
