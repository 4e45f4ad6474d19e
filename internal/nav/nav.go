package nav

import (
	"errors"
	"fmt"
	"slices"

	"github.com/booknook/bookfeed/internal/models"
)

// Screen names a destination of the app
type Screen string

const (
	Login    Screen = "login"
	Register Screen = "register"
	Home     Screen = "home"
	AddBook  Screen = "add"
	Profile  Screen = "profile"
)

var (
	ErrNotSignedIn     = errors.New("not signed in")
	ErrAlreadySignedIn = errors.New("already signed in")
)

// Flow is the set of screens reachable for the current session
type Flow struct {
	Name    string
	Screens []Screen
}

// Initial is the route shown when the app opens
func (f Flow) Initial() Screen {
	return f.Screens[0]
}

// Has reports whether s belongs to the flow
func (f Flow) Has(s Screen) bool {
	return slices.Contains(f.Screens, s)
}

var (
	authenticated   = Flow{Name: "tabs", Screens: []Screen{Home, AddBook, Profile}}
	unauthenticated = Flow{Name: "auth", Screens: []Screen{Login, Register}}
)

// Resolve picks the tab flow when a user is present, the login stack otherwise
func Resolve(user *models.User) Flow {
	if user != nil {
		return authenticated
	}
	return unauthenticated
}

// Allowed checks that screen is reachable for user. The error says what
// to do instead.
func Allowed(user *models.User, screen Screen) error {
	flow := Resolve(user)
	if flow.Has(screen) {
		return nil
	}
	if user == nil {
		return fmt.Errorf(`%w: run "bookfeed login" or "bookfeed register" first`, ErrNotSignedIn)
	}
	return fmt.Errorf(`%w as %s: run "bookfeed logout" first`, ErrAlreadySignedIn, user.Email)
}
