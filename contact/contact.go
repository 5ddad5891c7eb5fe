// Package contact turns submitted form fields into an Outcome: it screens
// the honeypot, checks required fields, and hands the notification to a
// Notifier.
package contact

import (
	"context"
	"net/url"
	"strings"

	"github.com/dalemusser/corpsite/pantry/text"
)

// Kind identifies which form was submitted.
type Kind string

const (
	KindBusiness Kind = "business_contact"
	KindDemo     Kind = "demo_contact"
	KindJob      Kind = "job_application"
)

// Status is the result class of one submission.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusValidationError Status = "validation_error"
	StatusBlocked         Status = "blocked"
	StatusFailed          Status = "failed"
)

// Outcome is what the HTTP layer needs to answer a submission: a flash
// message and where to send the browser next.
type Outcome struct {
	Status   Status
	Message  string
	Redirect string
}

// Category is the flash category for the outcome.
func (o Outcome) Category() string {
	if o.Status == StatusSuccess {
		return "success"
	}
	return "error"
}

// Fields holds raw form values by name; read them through Get or Text.
type Fields map[string]string

// FieldsFromValues takes the first value of each form key.
func FieldsFromValues(v url.Values) Fields {
	f := make(Fields, len(v))
	for k := range v {
		f[k] = v.Get(k)
	}
	return f
}

// Get returns name as a single cleaned line ("" when absent).
func (f Fields) Get(name string) string {
	return text.SingleLine(f[name])
}

// Text returns name cleaned but with its line breaks kept.
func (f Fields) Text(name string) string {
	return text.Clean(f[name])
}

// Notifier delivers a notification; recipient "" means the default inbox.
// mailer.Notifier implements it.
type Notifier interface {
	Send(ctx context.Context, subject, body, recipient string) bool
}

// HoneypotField must stay empty; browsers never show it to people.
const HoneypotField = "website"

// IsTruthy reports whether a checkbox-style value means yes.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes", "y", "checked":
		return true
	}
	return false
}

const (
	msgBlocked         = "Your submission could not be processed."
	msgMissingConsent  = "Please fill in all required fields and confirm your consent."
	msgMissingAll      = "Please fill in all fields."
	msgSendFailed      = "We could not send your message right now. Please contact us directly by email or phone."
	msgBusinessSuccess = "Thank you! We received your inquiry and will get back to you soon."
	msgDemoSuccess     = "Thank you! We received your message. We'll get back to you soon."
	msgJobSuccessFmt   = "Application received for %s. We'll review your details and be in touch soon!"
)

// Subjects of the notifications sent by Handle.
const (
	SubjectBusiness     = "New inquiry (contact form)"
	SubjectDemo         = "Demo contact form submission"
	SubjectConfirmation = "Inquiry confirmation"
)

// Redirect targets per form.
const (
	RedirectBusiness = "/contact"
	RedirectDemo     = "/demo/contact"
	RedirectJob      = "/careers"
)
