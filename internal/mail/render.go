package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

var (
	activationTmpl = template.Must(template.New("activation").Parse(`<p>Hello {{.Username}},</p>
<p>Welcome to Task Tracker. Confirm your account to start using it:</p>
<p><a href="{{.Link}}">Activate account</a></p>
<p>If you did not register, ignore this email.</p>
`))

	resetTmpl = template.Must(template.New("reset").Parse(`<p>Someone asked to reset the password for this account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link expires in a few minutes. If it was not you, ignore this email.</p>
`))
)

// Renderer builds message bodies with links back into the web client.
type Renderer struct {
	clientURL string
}

func NewRenderer(clientURL string) *Renderer {
	return &Renderer{clientURL: strings.TrimRight(clientURL, "/")}
}

func (r *Renderer) ActivationLink(activationID string) string {
	return r.clientURL + "/activate-account/" + url.PathEscape(activationID)
}

func (r *Renderer) ResetLink(token string) string {
	return r.clientURL + "/update-password/" + url.PathEscape(token)
}

func (r *Renderer) Activation(email, username, activationID string) (Message, error) {
	body, err := execute(activationTmpl, map[string]string{
		"Username": username,
		"Link":     r.ActivationLink(activationID),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Activate your Task Tracker account", HTML: body}, nil
}

func (r *Renderer) PasswordReset(email, token string) (Message, error) {
	body, err := execute(resetTmpl, map[string]string{
		"Link": r.ResetLink(token),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Reset your Task Tracker password", HTML: body}, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
