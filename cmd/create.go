package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/booknook/bookfeed/internal/catalog"
	"github.com/booknook/bookfeed/internal/compose"
	"github.com/booknook/bookfeed/internal/nav"
	"github.com/booknook/bookfeed/internal/ui"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var (
		name, author, caption string
		image, isbn           string
		rating                int
	)

	cmd := &cobra.Command{
		Use:         "create",
		Aliases:     []string{"add"},
		Short:       "Share a book recommendation",
		Annotations: screen(nav.AddBook),
		Example: `  bookfeed create --name "Dune" --author "Frank Herbert" --caption "Spice must flow" --rating 5 --image ./dune.jpg
  bookfeed create --name "Emma" --caption "Sharp and funny" --isbn 9780141439587`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			flow := a.Compose
			ctx := cmd.Context()

			if image != "" && isbn != "" {
				return errors.New("use either --image or --isbn, not both")
			}

			flow.SetFields(name, caption, author)
			if err := flow.SetRating(rating); err != nil {
				return err
			}

			switch {
			case image != "":
				processed, err := flow.PickImage(ctx, image)
				if err != nil {
					return fmt.Errorf("failed to pick image: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Preview %s (%dx%d)\n", processed.URI, processed.Width, processed.Height)
			case isbn != "":
				processed, err := flow.PickCover(ctx, isbn)
				if err != nil {
					return fmt.Errorf("failed to pick cover: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Preview %s (%dx%d)\n", processed.URI, processed.Width, processed.Height)
			}

			book, err := flow.Submit(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Alert("Success", "Your book recommendation has been posted!"))
			fmt.Fprintln(out, ui.BookCard(*book, time.Now()))
			fmt.Fprintln(out, renderRefreshedFeed(a.Catalog.State()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Book title")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Author")
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "What you thought of it")
	cmd.Flags().IntVarP(&rating, "rating", "r", compose.DefaultRating, "Stars, 1 to 5")
	cmd.Flags().StringVarP(&image, "image", "i", "", "Cover image path or URL")
	cmd.Flags().StringVar(&isbn, "isbn", "", "Use the Open Library cover for this ISBN")

	return cmd
}

// renderRefreshedFeed shows the feed reloaded after posting, or an error
// with a retry hint when that reload did not succeed.
func renderRefreshedFeed(state catalog.State) string {
	if state.Err == nil && state.Loaded() {
		return renderHome(state.Books)
	}
	msg := "The feed could not be refreshed."
	if state.Err != nil {
		msg = "The feed could not be refreshed: " + state.Err.Error()
	}
	return ui.Alert("Error", msg) + "\n" + ui.Button("bookfeed books", ui.Primary, false)
}
