// Package pages renders the server-side HTML pages.
package pages

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// Shot is what the share page shows about a screenshot.
type Shot struct {
	ID        string
	Title     string
	ImageURL  string
	Width     int
	Height    int
	Views     int64
	CreatedAt time.Time
	ExpiresAt *time.Time
}

const head = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
	`<meta name="viewport" content="width=device-width, initial-scale=1">` +
	`<title>%s</title>` +
	`<style>body{font-family:system-ui,sans-serif;background:#111;color:#eee;margin:0;padding:2rem;text-align:center}` +
	`img{max-width:100%%;height:auto;border-radius:6px}a{color:#7cc4ff}.meta{color:#999;font-size:.9rem}</style>` +
	`</head><body>`

const foot = `</body></html>`

func page(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, head, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, foot)
		return err
	})
}

// Share is the public page behind a share link.
func Share(s Shot) templ.Component {
	return page(s.Title+" | ScreenSnap", func(w io.Writer) error {
		dims := ""
		if s.Width > 0 && s.Height > 0 {
			dims = ` width="` + strconv.Itoa(s.Width) + `" height="` + strconv.Itoa(s.Height) + `"`
		}
		expiry := "never expires"
		if s.ExpiresAt != nil {
			expiry = "expires " + s.ExpiresAt.UTC().Format(time.RFC1123)
		}

		_, err := fmt.Fprintf(w,
			`<h1>%s</h1><a href="%s"><img src="%s" alt="%s"%s></a>`+
				`<p class="meta">%d views &middot; uploaded %s &middot; %s</p>`,
			templ.EscapeString(s.Title),
			templ.EscapeString(s.ImageURL),
			templ.EscapeString(s.ImageURL),
			templ.EscapeString(s.Title),
			dims,
			s.Views,
			s.CreatedAt.UTC().Format(time.RFC1123),
			expiry,
		)
		return err
	})
}

// NotFound is shown for unknown, expired and revoked share links.
func NotFound() templ.Component {
	return page("Not found | ScreenSnap", func(w io.Writer) error {
		_, err := io.WriteString(w,
			`<h1>Screenshot not found or expired</h1>`+
				`<p>The link may be wrong, or the owner removed or limited it.</p>`+
				`<p><a href="/">Take your own screenshot</a></p>`)
		return err
	})
}

// Error is a generic error page.
func Error(title, message string) templ.Component {
	return page(title+" | ScreenSnap", func(w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><p>%s</p><p><a href="/">Home</a></p>`,
			templ.EscapeString(title), templ.EscapeString(message))
		return err
	})
}
