package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User represents the signed-in account returned by the auth endpoints
type User struct {
	ID           string    `json:"_id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Email        string    `json:"email" yaml:"email"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	ProfileImage string    `json:"profileImage,omitempty" yaml:"profileImage,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// Book represents one recommendation in the shared feed
type Book struct {
	ID          string     `json:"_id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Caption     string     `json:"caption" yaml:"caption"`
	Author      string     `json:"author,omitempty" yaml:"author,omitempty"`
	Rating      Rating     `json:"rating" yaml:"rating"`
	Image       string     `json:"image,omitempty" yaml:"image,omitempty"` // URL or data URL
	PublishedAt *time.Time `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier
func (b *Book) UnmarshalJSON(data []byte) error {
	type alias Book
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = aux.AltID
	}
	return nil
}

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is a 1-5 star score. The backend stores it as a string, so it
// decodes from either a JSON number or a JSON string.
type Rating int

// Valid reports whether r is within [MinRating, MaxRating]
func (r Rating) Valid() bool {
	return r >= MinRating && r <= MaxRating
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*r = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid rating %q: %w", s, err)
	}
	*r = Rating(int(f))
	return nil
}
