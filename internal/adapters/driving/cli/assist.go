package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var titleCmd = &cobra.Command{
	Use:   "title <note>",
	Short: "Suggest a title for a note",
	Long: `Ask the model for a title, using the titles of similar notes as context.
With --apply the note is renamed to the suggestion (or to --title).`,
	Args: cobra.ExactArgs(1),
	RunE: runTitle,
}

var tagsCmd = &cobra.Command{
	Use:   "tags <note>",
	Short: "Suggest tags for a note",
	Long:  `Ask the model for tags. With --apply they are merged into the note's front matter.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTags,
}

var atomizeCmd = &cobra.Command{
	Use:   "atomize <note>",
	Short: "Split a note into atomic notes",
	Long: `Identify the key concepts of a note and write one short note per concept.
Without --save the notes are only printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAtomize,
}

var cleanCmd = &cobra.Command{
	Use:   "clean <note>",
	Short: "Fix grammar and clarity of a note",
	Long:  `Rewrite a note for grammar and clarity. With --apply the note is overwritten.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runClean,
}

var taskCmd = &cobra.Command{
	Use:   "task <instruction> [text]",
	Short: "Run a free-form task on text",
	Long: `Apply an instruction such as "summarise" or "translate to French" to text.
The text is taken from the second argument, from --note, or from stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTask,
}

var moveCmd = &cobra.Command{
	Use:   "move <note>",
	Short: "Move a note according to path rules",
	Long:  `Move the note to the target of the first path rule whose criteria it contains.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMove,
}

func init() {
	titleCmd.Flags().Bool("apply", false, "rename the note")
	titleCmd.Flags().String("title", "", "use this title instead of asking the model")
	tagsCmd.Flags().Bool("apply", false, "write tags to front matter")
	atomizeCmd.Flags().Bool("save", false, "write the atomic notes to the vault")
	cleanCmd.Flags().Bool("apply", false, "overwrite the note with the cleaned text")
	taskCmd.Flags().String("note", "", "read the text from this note")
	moveCmd.Flags().Bool("dry-run", false, "only show where the note would go")

	rootCmd.AddCommand(titleCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(atomizeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(moveCmd)
}

func runTitle(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	id := args[0]
	apply, _ := cmd.Flags().GetBool("apply")
	title, _ := cmd.Flags().GetString("title")

	if title == "" {
		title, err = s.Titles.SuggestTitle(ctx, id)
		if err != nil {
			return fmt.Errorf("suggest title: %w", err)
		}
	}
	cmd.Println(title)

	if !apply {
		return nil
	}
	newID, err := s.Titles.ApplyTitle(ctx, id, title)
	if err != nil {
		return fmt.Errorf("apply title: %w", err)
	}
	cmd.Printf("Renamed %s to %s\n", id, newID)
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	id := args[0]
	apply, _ := cmd.Flags().GetBool("apply")

	tags, err := s.Tags.SuggestTags(ctx, id)
	if err != nil {
		return fmt.Errorf("suggest tags: %w", err)
	}
	if len(tags) == 0 {
		cmd.Println("No tags suggested.")
		return nil
	}
	cmd.Println(strings.Join(tags, ", "))

	if !apply {
		return nil
	}
	if err := s.Tags.ApplyTags(ctx, id, tags); err != nil {
		return fmt.Errorf("apply tags: %w", err)
	}
	cmd.Printf("Updated front matter of %s\n", id)
	return nil
}

func runAtomize(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	id := args[0]
	save, _ := cmd.Flags().GetBool("save")

	notes, err := s.Atomizer.Atomize(ctx, id)
	if err != nil {
		return fmt.Errorf("atomize: %w", err)
	}
	if len(notes) == 0 {
		cmd.Println("No concepts found.")
		return nil
	}

	for i, n := range notes {
		cmd.Printf("[%d] %s\n", i+1, n.Title)
		cmd.Printf("    %s\n\n", preview(n.Content, 96))
	}

	if !save {
		return nil
	}
	ids, err := s.Atomizer.Save(ctx, id, notes)
	if err != nil {
		return fmt.Errorf("save atomic notes: %w", err)
	}
	cmd.Printf("Created %d notes:\n", len(ids))
	for _, created := range ids {
		cmd.Printf("  %s\n", created)
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	apply, _ := cmd.Flags().GetBool("apply")

	cleaned, err := s.Cleaner.Clean(cmd.Context(), args[0], apply)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	cmd.Println(cleaned)
	if apply {
		cmd.Printf("\nUpdated %s\n", args[0])
	}
	return nil
}

func runTask(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	note, _ := cmd.Flags().GetString("note")

	var text string
	switch {
	case len(args) == 2:
		text = args[1]
	case note != "":
		text, err = s.Vault.ReadText(ctx, note)
		if err != nil {
			return fmt.Errorf("read %s: %w", note, err)
		}
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text given: pass it as an argument, with --note, or on stdin")
	}

	out, err := s.Tasks.Perform(ctx, args[0], text)
	if err != nil {
		return fmt.Errorf("task: %w", err)
	}
	cmd.Println(out)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	id := args[0]
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if dryRun {
		target, err := s.Router.SuggestPath(ctx, id)
		if err != nil {
			return fmt.Errorf("suggest path: %w", err)
		}
		if target == "" || target == id {
			cmd.Println("No rule matches.")
			return nil
		}
		cmd.Printf("Would move %s to %s\n", id, target)
		return nil
	}

	newID, moved, err := s.Router.CheckAndMove(ctx, id)
	if err != nil {
		return err
	}
	if !moved {
		cmd.Println("No rule matches.")
		return nil
	}
	cmd.Printf("Moved %s to %s\n", id, newID)
	return nil
}
