// Package mail renders the digest email and delivers it over SMTP.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"os"
	"time"

	"github.com/minhngoc/bantin/internal/digest"
)

//go:embed templates/digest.html
var templateFS embed.FS

// Builder renders a digest into the HTML email body.
type Builder struct {
	tmpl *template.Template
}

// NewBuilder parses the embedded email template.
func NewBuilder() (*Builder, error) {
	funcMap := template.FuncMap{
		"formatDay":  func(t time.Time) string { return t.Format("02/01/2006") },
		"formatTime": func(t time.Time) string { return t.Format("15:04, 02/01/2006") },
	}

	tmpl, err := template.New("digest.html").Funcs(funcMap).ParseFS(templateFS, "templates/digest.html")
	if err != nil {
		return nil, fmt.Errorf("parsing digest template: %w", err)
	}
	return &Builder{tmpl: tmpl}, nil
}

// Subject returns the email subject for a digest date.
func (b *Builder) Subject(date time.Time) string {
	return fmt.Sprintf("📰 Bản tin tóm tắt ngày %s", date.Format("02/01/2006"))
}

// Render produces the HTML body for a digest. An empty digest renders
// the no-news notice rather than an empty page.
func (b *Builder) Render(d *digest.Digest) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering digest email: %w", err)
	}
	return buf.String(), nil
}

// WritePreview renders the digest and writes the HTML to path so the
// email can be inspected in a browser without sending anything.
func (b *Builder) WritePreview(d *digest.Digest, path string) error {
	body, err := b.Render(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}
	log.Printf("Preview written to %s", path)
	return nil
}
