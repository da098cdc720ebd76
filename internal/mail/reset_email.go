package mail

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var resetTemplate = template.Must(template.ParseFS(templateFS, "templates/reset_password.html"))

const ResetSubject = "Password Reset Instructions"

// RenderResetEmail builds the HTML body for a password-reset mail. resetURL
// embeds the raw secret, so the rendered body must never be logged.
func RenderResetEmail(resetURL string) (string, error) {
	var buf bytes.Buffer

	err := resetTemplate.Execute(&buf, struct {
		ResetURL string
		Year     int
	}{
		ResetURL: resetURL,
		Year:     time.Now().Year(),
	})

	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
