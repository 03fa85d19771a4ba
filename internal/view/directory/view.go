// Package directory renders directory state as HTML cards or plain text. All
// functions here are pure with respect to the state they are given.
package directory

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
	service "github.com/zhouzirui/user-directory/backend/internal/service/directory"
)

// websiteScheme is prepended to the stored website to build the card link.
const websiteScheme = "https://"

// DefaultTitle is the page heading.
const DefaultTitle = "User Directory"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("directory").
		Funcs(template.FuncMap{"websiteURL": WebsiteURL}).
		ParseFS(templateFS, "templates/*.html"),
)

// PageData feeds the full page template.
type PageData struct {
	Title    string
	LivePath string
	State    service.State
}

// WebsiteURL builds the card link for a record.
func WebsiteURL(record model.UserRecord) string {
	return websiteScheme + record.Website
}

// RenderGrid writes the loading placeholder or the card grid for state.
func RenderGrid(w io.Writer, state service.State) error {
	return templates.ExecuteTemplate(w, "grid", state)
}

// GridHTML is RenderGrid into a string.
func GridHTML(state service.State) (string, error) {
	var buf bytes.Buffer
	if err := RenderGrid(&buf, state); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPage writes the whole page: heading, search input, grid and the live
// view script.
func RenderPage(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	return templates.ExecuteTemplate(w, "page", data)
}

// RenderText writes the cards as plain text, one block per record.
func RenderText(w io.Writer, state service.State) error {
	if state.IsLoading {
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	}

	for i, r := range state.Filtered {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s\n  @%s\n  %s\n  Company: %s\n  Contact: %s\n  %s\n",
			r.Name, r.Username, r.Email, r.Company.Name, r.Phone, WebsiteURL(r))
		if err != nil {
			return err
		}
	}
	return nil
}
