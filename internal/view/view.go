// Package view derives element visibility from login state.
//
// Render is a pure function of session.State; appliers (ApplyHTML here, and the
// browser package for the live DOM) only toggle the hidden class and set text, so
// the same View can be re-applied after every state change.
package view

import (
	"github.com/florianilch/authhelper/internal/session"
)

// Marker classes the view reads and writes. Elements are owned by the page.
const (
	ClassUserInfo  = "user-info"
	ClassLogout    = "logout-btn"
	ClassLogin     = "login-btn"
	ClassAdminOnly = "admin-only"

	// ClassHidden is the utility class that hides an element.
	ClassHidden = "d-none"
)

// Visibility is the change a view makes to a marker class.
type Visibility int

const (
	// Unchanged leaves the elements as they are.
	Unchanged Visibility = iota
	// Shown removes ClassHidden.
	Shown
	// Hidden adds ClassHidden.
	Hidden
)

func (v Visibility) String() string {
	switch v {
	case Shown:
		return "shown"
	case Hidden:
		return "hidden"
	default:
		return "unchanged"
	}
}

// View is the presentation derived from a session state.
type View struct {
	UserInfo  Visibility
	Logout    Visibility
	Login     Visibility
	AdminOnly Visibility

	// Greeting replaces the text of user-info elements when non-empty.
	Greeting string

	// BindLogout attaches the logout action to logout-btn elements.
	BindLogout bool
}

// Classes returns the marker classes paired with their visibility, in a fixed order.
func (v View) Classes() []ClassVisibility {
	return []ClassVisibility{
		{Class: ClassUserInfo, Visibility: v.UserInfo},
		{Class: ClassLogout, Visibility: v.Logout},
		{Class: ClassLogin, Visibility: v.Login},
		{Class: ClassAdminOnly, Visibility: v.AdminOnly},
	}
}

// ClassVisibility pairs a marker class with the change applied to it.
type ClassVisibility struct {
	Class      string
	Visibility Visibility
}

// Render derives the view for state.
func Render(state session.State) View {
	if !state.LoggedIn {
		return View{
			Login:    Shown,
			Logout:   Hidden,
			UserInfo: Hidden,
		}
	}

	v := View{
		UserInfo:   Shown,
		Logout:     Shown,
		Login:      Hidden,
		Greeting:   Greeting(state.Username),
		BindLogout: true,
	}
	if !state.Admin {
		v.AdminOnly = Hidden
	}
	return v
}

// Greeting is the text shown in user-info elements.
func Greeting(username string) string {
	if username == "" {
		return "Welcome"
	}
	return "Welcome, " + username
}
