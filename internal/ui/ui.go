package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/booknook/bookfeed/internal/models"
	"github.com/charmbracelet/lipgloss/v2"
)

// Palette
var (
	primaryColor   = lipgloss.Color("#007AFF")
	secondaryColor = lipgloss.Color("#5856D6")
	errorColor     = lipgloss.Color("#FF3B30")
	successColor   = lipgloss.Color("#34C759")
	textSecondary  = lipgloss.Color("#666666")
	starColor      = lipgloss.Color("#f4b400")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(textSecondary)
	screenStyle   = lipgloss.NewStyle().Padding(1, 2)
	cardStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(textSecondary).
			Padding(0, 1)
	starOn     = lipgloss.NewStyle().Foreground(starColor)
	starOff    = lipgloss.NewStyle().Foreground(textSecondary)
	dateStyle  = lipgloss.NewStyle().Foreground(textSecondary).Italic(true)
	imageStyle = lipgloss.NewStyle().Foreground(primaryColor).Underline(true)
)

// FormatDate renders a date like "January 2, 2006"
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// Stars renders five stars, filled up to rating
func Stars(rating models.Rating) string {
	var b strings.Builder
	for i := models.MinRating; i <= models.MaxRating; i++ {
		if models.Rating(i) <= rating {
			b.WriteString(starOn.Render("★"))
		} else {
			b.WriteString(starOff.Render("☆"))
		}
	}
	return b.String()
}

// ImageLabel describes a book image for the terminal
func ImageLabel(image string) string {
	switch {
	case image == "":
		return "[no image]"
	case strings.HasPrefix(image, "data:"):
		return fmt.Sprintf("[inline image, %d KB]", len(image)*3/4/1024)
	default:
		return image
	}
}

// BookCard renders one feed entry. now is used when the book has no publish date.
func BookCard(book models.Book, now time.Time) string {
	published := now
	if book.PublishedAt != nil {
		published = *book.PublishedAt
	}

	lines := []string{
		imageStyle.Render(ImageLabel(book.Image)),
		titleStyle.Render(book.Name),
	}
	if book.Author != "" {
		lines = append(lines, subtitleStyle.Render("by "+book.Author))
	}
	lines = append(lines,
		Stars(book.Rating),
		book.Caption,
		dateStyle.Render("Shared on "+FormatDate(published)),
	)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// BookList renders one card per book, in the given order
func BookList(books []models.Book, now time.Time) string {
	if len(books) == 0 {
		return subtitleStyle.Render("No recommendations yet. Be the first to share one!")
	}
	cards := make([]string, 0, len(books))
	for _, b := range books {
		cards = append(cards, BookCard(b, now))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// Screen wraps content with a header and padding
func Screen(title, subtitle string, body ...string) string {
	parts := []string{titleStyle.Render(title)}
	if subtitle != "" {
		parts = append(parts, subtitleStyle.Render(subtitle))
	}
	parts = append(parts, "")
	parts = append(parts, body...)
	return screenStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Variant selects a button look
type Variant int

const (
	Primary Variant = iota
	Secondary
)

// Button renders a call to action such as `bookfeed logout`
func Button(title string, variant Variant, disabled bool) string {
	color := primaryColor
	if variant == Secondary {
		color = secondaryColor
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(color).
		Foreground(color).
		Bold(true).
		Padding(0, 2)
	if disabled {
		style = style.Faint(true).BorderForeground(textSecondary).Foreground(textSecondary)
	}
	return style.Render(title)
}

// Alert renders a titled message box. Titles "Error" and "Success" get their own colors.
func Alert(title, message string) string {
	color := primaryColor
	switch title {
	case "Error":
		color = errorColor
	case "Success":
		color = successColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Foreground(color).Render(title),
			message,
		))
}

// Profile renders the signed-in user. expiry is shown when known.
func Profile(user *models.User, expiry time.Time) string {
	lines := []string{
		"Profile : " + user.Name,
		"Email : " + user.Email,
	}
	if !user.CreatedAt.IsZero() {
		lines = append(lines, "Member Since : "+FormatDate(user.CreatedAt))
	}
	if user.ProfileImage != "" {
		lines = append(lines, "Avatar : "+imageStyle.Render(user.ProfileImage))
	}
	if !expiry.IsZero() {
		lines = append(lines, "Session expires : "+expiry.Local().Format("January 2, 2006 15:04"))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
