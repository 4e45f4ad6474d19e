package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/booknook/bookfeed/internal/app"
	"github.com/booknook/bookfeed/internal/catalog"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/booknook/bookfeed/internal/nav"
	"github.com/booknook/bookfeed/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newBooksCmd() *cobra.Command {
	var format, export, from string

	cmd := &cobra.Command{
		Use:         "books",
		Aliases:     []string{"home", "feed"},
		Short:       "Show the recommendation feed",
		Annotations: screen(nav.Home),
		Example: `  bookfeed books
  bookfeed books --format yaml
  bookfeed books --export feed.parquet
  bookfeed books --from feed.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				books, err := catalog.ImportParquet(from)
				if err != nil {
					return err
				}
				return writeBooks(cmd, books, format)
			}
			return executeBooks(cmd, mustApp(cmd), format, export)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, yaml)")
	cmd.Flags().StringVar(&export, "export", "", "Also write the feed to a parquet file")
	cmd.Flags().StringVar(&from, "from", "", "Show a feed exported earlier instead of fetching it")
	cmd.MarkFlagsMutuallyExclusive("from", "export")

	return cmd
}

func validFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func executeBooks(cmd *cobra.Command, a *app.App, format, export string) error {
	if err := validFormat(format); err != nil {
		return err
	}

	if err := a.Catalog.Load(cmd.Context()); err != nil {
		return err
	}
	books := a.Catalog.Books()

	if export != "" {
		if err := catalog.ExportParquet(export, books); err != nil {
			return err
		}
		slog.Info("Exported feed", "path", export, "books", len(books))
	}
	return writeBooks(cmd, books, format)
}

func writeBooks(cmd *cobra.Command, books []models.Book, format string) error {
	if err := validFormat(format); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(books)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(books)
	default:
		fmt.Fprintln(out, renderHome(books))
		return nil
	}
}

func renderHome(books []models.Book) string {
	return ui.Screen("Book Recommendations", "Discover great reads from the community",
		ui.BookList(books, time.Now()),
	)
}
