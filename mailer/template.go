package mailer

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template is a plain-text message with a templated subject and body.
type Template struct {
	name    string
	subject *template.Template
	body    *template.Template
}

// MustTemplate parses subject and body and panics on a syntax error. Use it
// for package-level templates.
func MustTemplate(name, subject, body string) *Template {
	return &Template{
		name:    name,
		subject: template.Must(template.New(name + ".subject").Option("missingkey=error").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=error").Parse(body)),
	}
}

// Render executes the template with data.
func (t *Template) Render(data any) (subject, body string, err error) {
	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("mailer: render %s subject: %w", t.name, err)
	}
	if err := t.body.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("mailer: render %s body: %w", t.name, err)
	}
	return sb.String(), bb.String(), nil
}

// InquiryConfirmation is sent to a business contact after their inquiry was
// delivered. Data: map with "ContactName", "Company" and "SiteName".
var InquiryConfirmation = MustTemplate("inquiry_confirmation",
	`Inquiry confirmation`,
	`Hello {{.ContactName}},

Thank you for contacting {{.SiteName}} on behalf of {{.Company}}.
We received your inquiry and a member of our team will get back to you soon.

This is an automated confirmation; there is no need to reply.

{{.SiteName}}
`)
