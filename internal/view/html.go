package view

import (
	"fmt"
	"html"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLogoutPath is the URL logout-btn elements are bound to.
const DefaultLogoutPath = "/logout"

// HTMLOptions configures how a View is applied to markup.
type HTMLOptions struct {
	// LogoutPath is set as href on logout anchors and formaction on logout buttons.
	LogoutPath string
}

func (o HTMLOptions) logoutPath() string {
	if o.LogoutPath == "" {
		return DefaultLogoutPath
	}
	return o.LogoutPath
}

// ApplyHTML applies v to every marker element in doc.
func ApplyHTML(doc *goquery.Document, v View, opts HTMLOptions) {
	for _, cv := range v.Classes() {
		sel := doc.Find("." + cv.Class)
		switch cv.Visibility {
		case Shown:
			sel.RemoveClass(ClassHidden)
		case Hidden:
			sel.AddClass(ClassHidden)
		}
	}

	if v.Greeting != "" {
		doc.Find("." + ClassUserInfo).SetText(v.Greeting)
	}

	if v.BindLogout {
		logoutPath := opts.logoutPath()
		doc.Find("." + ClassLogout).Each(func(_ int, s *goquery.Selection) {
			switch goquery.NodeName(s) {
			case "a":
				s.SetAttr("href", logoutPath)
			case "button", "input":
				bindLogoutControl(s, logoutPath)
			}
		})
	}
}

// logoutFormClass marks forms created by bindLogoutControl; d-inline keeps the
// wrapped control in the flow of its navbar.
const logoutFormClass = "d-inline logout-form"

// bindLogoutControl turns a button or input into a submit control posting to
// logoutPath. A control outside any form is wrapped in its own inline form, since
// formaction only applies to controls with a form owner.
func bindLogoutControl(s *goquery.Selection, logoutPath string) {
	s.SetAttr("type", "submit")

	if form := s.Closest("form"); form.Length() > 0 {
		if action, _ := form.Attr("action"); action == logoutPath && isLogoutForm(form) {
			return
		}
		s.SetAttr("formaction", logoutPath)
		s.SetAttr("formmethod", "post")
		return
	}

	s.WrapHtml(`<form method="post" action="` + html.EscapeString(logoutPath) + `" class="` + logoutFormClass + `"></form>`)
}

func isLogoutForm(form *goquery.Selection) bool {
	return form.HasClass("logout-form")
}

// RenderHTML parses a page from r, applies v and writes the result to w.
func RenderHTML(r io.Reader, w io.Writer, v View, opts HTMLOptions) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	ApplyHTML(doc, v, opts)

	out, err := doc.Html()
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("failed to write HTML: %w", err)
	}
	return nil
}
