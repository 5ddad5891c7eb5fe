package contact

import "strings"

// The submission structs below are what the validator checks. Consent is a
// bool so "required" fails unless it was truthy.

type businessContact struct {
	Company     string `validate:"required"`
	ContactName string `validate:"required"`
	Email       string `validate:"required"`
	Phone       string
	Service     string
	Message     string `validate:"required"`
	Consent     bool   `validate:"required"`
}

func newBusinessContact(f Fields) businessContact {
	return businessContact{
		Company:     f.Get("company"),
		ContactName: f.Get("contact_name"),
		Email:       f.Get("email"),
		Phone:       f.Get("phone"),
		Service:     f.Get("service"),
		Message:     f.Text("message"),
		Consent:     IsTruthy(f.Get("consent")),
	}
}

func (b businessContact) body() string {
	return formatBody([][2]string{
		{"Company", b.Company},
		{"Contact name", b.ContactName},
		{"Email", b.Email},
		{"Phone", orDash(b.Phone)},
		{"Service", orDash(b.Service)},
		{"Message", b.Message},
	})
}

type demoContact struct {
	Name    string `validate:"required"`
	Email   string `validate:"required"`
	Message string `validate:"required"`
	Consent bool   `validate:"required"`
}

func newDemoContact(f Fields) demoContact {
	return demoContact{
		Name:    f.Get("name"),
		Email:   f.Get("email"),
		Message: f.Text("message"),
		Consent: IsTruthy(f.Get("consent")),
	}
}

func (d demoContact) body() string {
	return formatBody([][2]string{
		{"Name", d.Name},
		{"Email", d.Email},
		{"Message", d.Message},
	})
}

type jobApplication struct {
	JobTitle string `validate:"required"`
	Name     string `validate:"required"`
	Email    string `validate:"required"`
}

func newJobApplication(f Fields) jobApplication {
	return jobApplication{
		JobTitle: f.Get("job_title"),
		Name:     f.Get("name"),
		Email:    f.Get("email"),
	}
}

func formatBody(lines [][2]string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l[0])
		b.WriteString(": ")
		b.WriteString(l[1])
		b.WriteByte('\n')
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
