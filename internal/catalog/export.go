package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/booknook/bookfeed/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Row is the flat parquet schema of an exported feed entry. Inline data-URL
// images are not exported, only remote references.
type Row struct {
	ID          string `parquet:"id"`
	Name        string `parquet:"name"`
	Author      string `parquet:"author,optional"`
	Caption     string `parquet:"caption"`
	Rating      int32  `parquet:"rating"`
	ImageURL    string `parquet:"image_url,optional"`
	PublishedAt int64  `parquet:"published_at,optional"` // unix milliseconds, 0 when unknown
}

// ToRow flattens a book for export
func ToRow(b models.Book) Row {
	row := Row{
		ID:      b.ID,
		Name:    b.Name,
		Author:  b.Author,
		Caption: b.Caption,
		Rating:  int32(b.Rating),
	}
	if !strings.HasPrefix(b.Image, "data:") {
		row.ImageURL = b.Image
	}
	if b.PublishedAt != nil {
		row.PublishedAt = b.PublishedAt.UnixMilli()
	}
	return row
}

// ExportParquet writes books to path as a parquet file
func ExportParquet(path string, books []models.Book) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	rows := make([]Row, 0, len(books))
	for _, b := range books {
		rows = append(rows, ToRow(b))
	}

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// PublishedTime converts the exported timestamp back to a time
func (r Row) PublishedTime() time.Time {
	if r.PublishedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.PublishedAt)
}

// Book converts an exported row back into a feed entry
func (r Row) Book() models.Book {
	book := models.Book{
		ID:      r.ID,
		Name:    r.Name,
		Author:  r.Author,
		Caption: r.Caption,
		Rating:  models.Rating(r.Rating),
		Image:   r.ImageURL,
	}
	if t := r.PublishedTime(); !t.IsZero() {
		book.PublishedAt = &t
	}
	return book
}

// ImportParquet reads a feed written by ExportParquet
func ImportParquet(path string) ([]models.Book, error) {
	rows, err := ReadParquet(path)
	if err != nil {
		return nil, err
	}
	books := make([]models.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.Book())
	}
	return books, nil
}

// ReadParquet loads rows previously written by ExportParquet
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var records []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		records = append(records, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}
