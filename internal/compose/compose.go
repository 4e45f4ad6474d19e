package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/catalog"
	"github.com/booknook/bookfeed/internal/images"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/booknook/bookfeed/internal/session"
)

// PlaceholderImage is sent when no image was picked
const PlaceholderImage = "https://res.cloudinary.com/drneyxkqq/image/upload/v1768087485/samples/balloons.jpg"

// DefaultRating is the rating of a fresh draft
const DefaultRating = 3

var (
	// ErrIncomplete is returned by Submit when a required field is missing
	ErrIncomplete = errors.New("please fill in all fields")
	// ErrBusy is returned when a submission is already in flight
	ErrBusy = errors.New("a submission is already in progress")
	// ErrInvalidRating is returned by SetRating for values outside 1-5
	ErrInvalidRating = fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
)

// Draft is the in-progress recommendation form
type Draft struct {
	Name        string
	Caption     string
	Author      string
	Rating      int
	ImageURI    string // compressed preview, empty when no image was picked
	ImageBase64 string
}

// NewDraft returns an empty form with the default rating
func NewDraft() Draft {
	return Draft{Rating: DefaultRating}
}

// Validate checks the required fields
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Caption) == "" {
		return ErrIncomplete
	}
	if !models.Rating(d.Rating).Valid() {
		return ErrInvalidRating
	}
	return nil
}

// Request builds the create payload. The image is sent as a JPEG data URL
// when one was picked, otherwise the placeholder URL is used.
func (d Draft) Request() api.CreateBookRequest {
	img := PlaceholderImage
	if d.ImageURI != "" {
		img = "data:image/jpeg;base64," + d.ImageBase64
	}
	return api.CreateBookRequest{
		Name:    d.Name,
		Caption: d.Caption,
		Author:  d.Author,
		Rating:  strconv.Itoa(d.Rating),
		Image:   img,
	}
}

// Flow drives one visit of the create screen: pick an image, fill the
// form, submit. The draft lives only as long as the Flow.
type Flow struct {
	client    *api.Client
	session   *session.Store
	catalog   *catalog.Store
	fetcher   *images.Fetcher
	processor *images.Processor

	busy atomic.Bool

	mu    sync.Mutex
	draft Draft
}

func NewFlow(client *api.Client, sess *session.Store, cat *catalog.Store, fetcher *images.Fetcher, processor *images.Processor) *Flow {
	return &Flow{
		client:    client,
		session:   sess,
		catalog:   cat,
		fetcher:   fetcher,
		processor: processor,
		draft:     NewDraft(),
	}
}

// Draft returns the current form state
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Busy reports whether a submission is in flight
func (f *Flow) Busy() bool {
	return f.busy.Load()
}

// SetFields updates the text fields of the form
func (f *Flow) SetFields(name, caption, author string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Name = name
	f.draft.Caption = caption
	f.draft.Author = author
}

// SetRating sets the star rating
func (f *Flow) SetRating(rating int) error {
	if !models.Rating(rating).Valid() {
		return ErrInvalidRating
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Rating = rating
	return nil
}

// PickImage loads an image from a local path or URL, compresses it and
// attaches it to the draft. On error the draft keeps its previous image.
func (f *Flow) PickImage(ctx context.Context, source string) (*images.Processed, error) {
	data, err := f.fetcher.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return f.attach(data)
}

// PickCover uses the Open Library cover of isbn as the image
func (f *Flow) PickCover(ctx context.Context, isbn string) (*images.Processed, error) {
	data, err := f.fetcher.Cover(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return f.attach(data)
}

func (f *Flow) attach(data []byte) (*images.Processed, error) {
	processed, err := f.processor.Process(data)
	if err != nil {
		return nil, err
	}
	payload, err := images.EncodeBase64(processed)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	previous := f.draft.ImageURI
	f.draft.ImageURI = processed.URI
	f.draft.ImageBase64 = payload
	f.mu.Unlock()

	if previous != processed.URI {
		discardPreview(previous)
	}
	return processed, nil
}

func discardPreview(uri string) {
	if err := images.RemovePreview(uri); err != nil {
		slog.Warn("Failed to remove image preview", "uri", uri, "err", err)
	}
}

// Submit validates the draft and posts it. On success the draft is reset,
// its preview file removed and the catalog reloaded. A reload failure is
// logged and left in the catalog State; it does not fail the submission.
// On failure the draft is left intact for another attempt.
func (f *Flow) Submit(ctx context.Context) (*models.Book, error) {
	draft := f.Draft()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	if !f.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer f.busy.Store(false)

	book, err := f.client.CreateBook(ctx, f.session.State().Token, draft.Request())
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			return nil, errors.New("something went wrong")
		}
		return nil, err
	}

	f.mu.Lock()
	f.draft = NewDraft()
	f.mu.Unlock()
	discardPreview(draft.ImageURI)

	slog.Info("Book recommendation posted", "book_id", book.ID, "name", book.Name)

	if f.catalog != nil {
		if err := f.catalog.Load(ctx); err != nil {
			slog.Warn("Failed to refresh books after posting", "err", err)
		}
	}
	return book, nil
}
