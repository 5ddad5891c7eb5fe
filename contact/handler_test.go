package contact

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sendCall struct {
	subject, body, recipient string
}

// stubNotifier records calls and answers from results in order (true once
// results run out).
type stubNotifier struct {
	results []bool
	calls   []sendCall
}

func (s *stubNotifier) Send(_ context.Context, subject, body, recipient string) bool {
	s.calls = append(s.calls, sendCall{subject, body, recipient})
	if len(s.results) == 0 {
		return true
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}

func validBusiness() Fields {
	return Fields{
		"company":      "Acme",
		"contact_name": "Jane Doe",
		"email":        "jane@acme.test",
		"phone":        "",
		"service":      "Consulting",
		"message":      "We need help.",
		"consent":      "on",
	}
}

func validDemo() Fields {
	return Fields{"name": "Sam", "email": "sam@example.com", "message": "Hello", "consent": "yes"}
}

func validJob() Fields {
	return Fields{"job_title": "Backend Engineer", "name": "Ana", "email": "ana@example.com"}
}

func TestHandle_BusinessSuccessSendsTwice(t *testing.T) {
	n := &stubNotifier{}
	out := NewHandler(n, nil, "Corpsite").Handle(context.Background(), KindBusiness, validBusiness())

	if out.Status != StatusSuccess || out.Category() != "success" {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Message != msgBusinessSuccess || out.Redirect != "/contact" {
		t.Errorf("outcome = %+v", out)
	}
	if len(n.calls) != 2 {
		t.Fatalf("got %d sends, want 2", len(n.calls))
	}

	primary, confirm := n.calls[0], n.calls[1]
	if primary.subject != SubjectBusiness || primary.recipient != "" {
		t.Errorf("primary = %+v", primary)
	}
	wantBody := "Company: Acme\nContact name: Jane Doe\nEmail: jane@acme.test\nPhone: -\nService: Consulting\nMessage: We need help.\n"
	if primary.body != wantBody {
		t.Errorf("primary body =\n%q\nwant\n%q", primary.body, wantBody)
	}
	if confirm.subject != SubjectConfirmation || confirm.recipient != "jane@acme.test" {
		t.Errorf("confirmation = %+v", confirm)
	}
	if !strings.Contains(confirm.body, "Jane Doe") {
		t.Errorf("confirmation body = %q", confirm.body)
	}
}

func TestHandle_BusinessPrimaryFailure(t *testing.T) {
	n := &stubNotifier{results: []bool{false}}
	out := NewHandler(n, nil, "Corpsite").Handle(context.Background(), KindBusiness, validBusiness())

	if out.Status != StatusFailed || out.Message != msgSendFailed || out.Category() != "error" {
		t.Errorf("outcome = %+v", out)
	}
	if len(n.calls) != 1 {
		t.Errorf("got %d sends, want 1 (no confirmation)", len(n.calls))
	}
}

func TestHandle_ConfirmationFailureStillSuccess(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := &stubNotifier{results: []bool{true, false}}
	out := NewHandler(n, zap.New(core), "Corpsite").Handle(context.Background(), KindBusiness, validBusiness())

	if out.Status != StatusSuccess {
		t.Errorf("status = %s, want success", out.Status)
	}
	if len(n.calls) != 2 {
		t.Errorf("got %d sends, want 2", len(n.calls))
	}

	entries := logs.FilterMessage("confirmation email not delivered").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["stage"] != "send" {
		t.Errorf("stage = %v, want send", ctx["stage"])
	}
	if _, ok := ctx["error"]; ok {
		t.Errorf("send failure should not carry an error field: %v", ctx)
	}
}

func TestHandle_DemoSuccess(t *testing.T) {
	n := &stubNotifier{}
	out := NewHandler(n, nil, "").Handle(context.Background(), KindDemo, validDemo())

	if out.Status != StatusSuccess || out.Message != msgDemoSuccess || out.Redirect != "/demo/contact" {
		t.Fatalf("outcome = %+v", out)
	}
	if len(n.calls) != 1 {
		t.Fatalf("got %d sends, want 1", len(n.calls))
	}
	c := n.calls[0]
	if c.subject != SubjectDemo || c.recipient != "" || c.body != "Name: Sam\nEmail: sam@example.com\nMessage: Hello\n" {
		t.Errorf("call = %+v", c)
	}
}

func TestHandle_DemoFailure(t *testing.T) {
	n := &stubNotifier{results: []bool{false}}
	out := NewHandler(n, nil, "").Handle(context.Background(), KindDemo, validDemo())
	if out.Status != StatusFailed || out.Redirect != "/demo/contact" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestHandle_MissingFieldNeverSends(t *testing.T) {
	tests := []struct {
		kind   Kind
		valid  func() Fields
		fields []string
		msg    string
	}{
		{KindBusiness, validBusiness, []string{"company", "contact_name", "email", "message", "consent"}, msgMissingConsent},
		{KindDemo, validDemo, []string{"name", "email", "message", "consent"}, msgMissingConsent},
		{KindJob, validJob, []string{"job_title", "name", "email"}, msgMissingAll},
	}
	for _, tt := range tests {
		for _, field := range tt.fields {
			for _, blank := range []string{"", "   "} {
				t.Run(string(tt.kind)+"/"+field, func(t *testing.T) {
					f := tt.valid()
					f[field] = blank
					n := &stubNotifier{}

					out := NewHandler(n, nil, "").Handle(context.Background(), tt.kind, f)
					if out.Status != StatusValidationError || out.Message != tt.msg {
						t.Errorf("outcome = %+v", out)
					}
					if len(n.calls) != 0 {
						t.Errorf("got %d sends, want 0", len(n.calls))
					}
				})
			}
		}
	}
}

func TestHandle_OptionalFieldsMayBeBlank(t *testing.T) {
	f := validBusiness()
	delete(f, "phone")
	delete(f, "service")
	n := &stubNotifier{}

	out := NewHandler(n, nil, "").Handle(context.Background(), KindBusiness, f)
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s", out.Status)
	}
	if !strings.Contains(n.calls[0].body, "Phone: -\nService: -\n") {
		t.Errorf("body = %q", n.calls[0].body)
	}
}

func TestHandle_ConsentMustBeTruthy(t *testing.T) {
	for _, v := range []string{"off", "no", "0", "false", "nope"} {
		f := validDemo()
		f["consent"] = v
		n := &stubNotifier{}
		if out := NewHandler(n, nil, "").Handle(context.Background(), KindDemo, f); out.Status != StatusValidationError {
			t.Errorf("consent=%q: status = %s, want validation_error", v, out.Status)
		}
	}
}

func TestHandle_HoneypotBlocks(t *testing.T) {
	for _, kind := range []Kind{KindBusiness, KindDemo, KindJob} {
		t.Run(string(kind), func(t *testing.T) {
			n := &stubNotifier{}
			// Honeypot wins even over otherwise missing fields.
			out := NewHandler(n, nil, "").Handle(context.Background(), kind, Fields{HoneypotField: "http://spam.example"})

			if out.Status != StatusBlocked || out.Message != msgBlocked || out.Category() != "error" {
				t.Errorf("outcome = %+v", out)
			}
			if len(n.calls) != 0 {
				t.Errorf("got %d sends, want 0", len(n.calls))
			}
		})
	}
}

func TestHandle_HoneypotRawValue(t *testing.T) {
	for _, v := range []string{" ", "\t", "\x00"} {
		t.Run(fmt.Sprintf("%q", v), func(t *testing.T) {
			f := validDemo()
			f[HoneypotField] = v
			n := &stubNotifier{}
			out := NewHandler(n, nil, "").Handle(context.Background(), KindDemo, f)

			if out.Status != StatusBlocked {
				t.Errorf("status = %q, want blocked", out.Status)
			}
			if len(n.calls) != 0 {
				t.Errorf("got %d sends, want 0", len(n.calls))
			}
		})
	}

	n := &stubNotifier{results: []bool{true}}
	f := validDemo()
	f[HoneypotField] = ""
	if out := NewHandler(n, nil, "").Handle(context.Background(), KindDemo, f); out.Status != StatusSuccess {
		t.Errorf("empty honeypot: status = %q, want success", out.Status)
	}
}

func TestHandle_JobApplication(t *testing.T) {
	n := &stubNotifier{}
	out := NewHandler(n, nil, "").Handle(context.Background(), KindJob, validJob())

	if out.Status != StatusSuccess || out.Redirect != "/careers" {
		t.Fatalf("outcome = %+v", out)
	}
	want := "Application received for Backend Engineer. We'll review your details and be in touch soon!"
	if out.Message != want {
		t.Errorf("message = %q, want %q", out.Message, want)
	}
	if len(n.calls) != 0 {
		t.Errorf("job applications should not email, got %d sends", len(n.calls))
	}
}

func TestHandle_UnknownKind(t *testing.T) {
	n := &stubNotifier{}
	out := NewHandler(n, nil, "").Handle(context.Background(), Kind("newsletter"), validDemo())
	if out.Status != StatusBlocked || out.Redirect != "/" || len(n.calls) != 0 {
		t.Errorf("outcome = %+v, sends = %d", out, len(n.calls))
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"on", "true", "1", "yes", "y", "checked", " ON ", "Yes", "TRUE"} {
		if !IsTruthy(v) {
			t.Errorf("IsTruthy(%q) = false", v)
		}
	}
	for _, v := range []string{"", "off", "0", "no", "false", "n", "maybe"} {
		if IsTruthy(v) {
			t.Errorf("IsTruthy(%q) = true", v)
		}
	}
}

func TestFieldsFromValues(t *testing.T) {
	f := FieldsFromValues(url.Values{
		"name":  {"  Ana  ", "ignored"},
		"email": {"ana@example.com"},
	})
	if f.Get("name") != "Ana" || f.Get("email") != "ana@example.com" || f.Get("missing") != "" {
		t.Errorf("fields = %v", f)
	}
}

func TestFields_Cleaning(t *testing.T) {
	f := Fields{
		"name":    "Ana\r\n  Lima\x00",
		"message": "first line\r\nsecond\x07 line\n",
	}
	if got := f.Get("name"); got != "Ana Lima" {
		t.Errorf("Get(name) = %q, want %q", got, "Ana Lima")
	}
	if got := f.Text("message"); got != "first line\nsecond line" {
		t.Errorf("Text(message) = %q", got)
	}
}
