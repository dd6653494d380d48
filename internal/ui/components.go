package ui

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Scheme represents a single URL scheme for display.
type Scheme struct {
	Name       string
	Template   string
	Processing bool
}

// Layout renders a full HTML page with a title and body component.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<!DOCTYPE html><html lang=\"en\">")
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, "<head><meta charset=\"utf-8\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<title>"+html.EscapeString(title)+"</title>")
		if err != nil {
			return err
		}
		// Minimal modern CSS framework (Pico.css) via CDN.
		_, err = io.WriteString(w, "<link rel=\"stylesheet\" href=\"https://unpkg.com/@picocss/pico@2/css/pico.min.css\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "</head><body><main class=\"container\">")
		if err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		_, err = io.WriteString(w, "</main></body></html>")
		return err
	})
}

// SchemesPage renders the URL schemes of the driver as seen by the current
// request.
func SchemesPage(schemes []Scheme) templ.Component {
	return Layout("Local CDN - URL schemes", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<section><header><h1>URL schemes</h1>")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<p>Placeholders in double braces are filled in when a URL is rendered.</p></header>")
		if err != nil {
			return err
		}

		if len(schemes) == 0 {
			_, err = io.WriteString(w, "<p>No schemes configured.</p></section>")
			return err
		}

		_, err = io.WriteString(w, "<table><thead><tr><th>Name</th><th>Scheme</th><th>Endpoint</th></tr></thead><tbody>")
		if err != nil {
			return err
		}

		for _, s := range schemes {
			endpoint := "serve"
			if s.Processing {
				endpoint = "process"
			}
			row := fmt.Sprintf("<tr><td>%s</td><td><code>%s</code></td><td>%s</td></tr>", html.EscapeString(s.Name), html.EscapeString(s.Template), endpoint)
			_, err = io.WriteString(w, row)
			if err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, "</tbody></table></section>")
		return err
	}))
}
