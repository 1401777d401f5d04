package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"quickrev/internal/config"

	"github.com/spf13/cobra"
)

// NewFilesCmd lists (or deletes from) a user's flashcard library.
func NewFilesCmd(configPath *string) *cobra.Command {
	var user, remove string
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the flashcard sets available to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runFiles(cmd.Context(), cfg, user, remove, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", os.Getenv("USER"), "user id whose library is listed")
	cmd.Flags().StringVar(&remove, "delete", "", "delete this file id instead of listing")
	return cmd
}

func runFiles(ctx context.Context, cfg config.Config, user, remove string, out io.Writer) error {
	if user == "" {
		user = "local"
	}
	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if remove != "" {
		if err := st.library.Delete(ctx, user, remove); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", remove)
		return nil
	}

	files, err := st.library.Flashcards(ctx, user)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "no flashcard sets")
		return nil
	}
	for _, f := range files {
		updated := "-"
		if !f.UpdatedAt.IsZero() {
			updated = f.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", f.FileID, updated, f.Name)
	}
	return nil
}
