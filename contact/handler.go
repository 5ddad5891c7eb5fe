package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/corpsite/mailer"
	"github.com/dalemusser/corpsite/metrics"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler processes form submissions. It performs no I/O besides Notifier
// calls and logging.
type Handler struct {
	notifier Notifier
	logger   *zap.Logger
	validate *validator.Validate
	siteName string
}

// NewHandler returns a Handler that notifies through n. siteName is used in
// the confirmation sent to business contacts.
func NewHandler(n Notifier, logger *zap.Logger, siteName string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		notifier: n,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		siteName: siteName,
	}
}

// Handle validates fields for kind and, when valid, sends the notification.
// Every outcome redirects back to the form it came from.
func (h *Handler) Handle(ctx context.Context, kind Kind, f Fields) Outcome {
	out := h.handle(ctx, kind, f)
	metrics.FormSubmissions.WithLabelValues(string(kind), string(out.Status)).Inc()
	return out
}

func (h *Handler) handle(ctx context.Context, kind Kind, f Fields) Outcome {
	log := h.logger.With(zap.String("form", string(kind)))

	redirect, ok := redirectFor(kind)
	if !ok {
		log.Warn("unknown form kind")
		return Outcome{Status: StatusBlocked, Message: msgBlocked, Redirect: "/"}
	}

	// Any raw value counts, whitespace and control characters included.
	if f[HoneypotField] != "" {
		log.Info("submission blocked by honeypot")
		return Outcome{Status: StatusBlocked, Message: msgBlocked, Redirect: redirect}
	}

	switch kind {
	case KindBusiness:
		sub := newBusinessContact(f)
		if err := h.check(log, sub); err != nil {
			return Outcome{Status: StatusValidationError, Message: msgMissingConsent, Redirect: redirect}
		}
		if !h.notifier.Send(ctx, SubjectBusiness, sub.body(), "") {
			return Outcome{Status: StatusFailed, Message: msgSendFailed, Redirect: redirect}
		}
		h.confirm(ctx, log, sub)
		return Outcome{Status: StatusSuccess, Message: msgBusinessSuccess, Redirect: redirect}

	case KindDemo:
		sub := newDemoContact(f)
		if err := h.check(log, sub); err != nil {
			return Outcome{Status: StatusValidationError, Message: msgMissingConsent, Redirect: redirect}
		}
		if !h.notifier.Send(ctx, SubjectDemo, sub.body(), "") {
			return Outcome{Status: StatusFailed, Message: msgSendFailed, Redirect: redirect}
		}
		return Outcome{Status: StatusSuccess, Message: msgDemoSuccess, Redirect: redirect}

	default: // KindJob
		sub := newJobApplication(f)
		if err := h.check(log, sub); err != nil {
			return Outcome{Status: StatusValidationError, Message: msgMissingAll, Redirect: redirect}
		}
		log.Info("job application received", zap.String("job_title", sub.JobTitle))
		return Outcome{Status: StatusSuccess, Message: fmt.Sprintf(msgJobSuccessFmt, sub.JobTitle), Redirect: redirect}
	}
}

// check runs the struct validator and logs which fields failed.
func (h *Handler) check(log *zap.Logger, sub any) error {
	err := h.validate.Struct(sub)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			names = append(names, fe.Field())
		}
		log.Info("submission failed validation", zap.Strings("fields", names))
	} else {
		log.Error("validator error", zap.Error(err))
	}
	return err
}

// confirm sends the fixed confirmation to the submitter. Failures are
// logged and counted but never change the outcome.
func (h *Handler) confirm(ctx context.Context, log *zap.Logger, sub businessContact) {
	subject, body, err := mailer.InquiryConfirmation.Render(map[string]string{
		"ContactName": sub.ContactName,
		"Company":     sub.Company,
		"SiteName":    h.siteName,
	})
	switch {
	case err != nil:
		log.Warn("confirmation email not delivered", zap.String("stage", "render"), zap.Error(err))
	case !h.notifier.Send(ctx, subject, body, sub.Email):
		log.Warn("confirmation email not delivered", zap.String("stage", "send"))
	default:
		return
	}
	metrics.MailSends.WithLabelValues("confirmation_failed").Inc()
}

func redirectFor(kind Kind) (string, bool) {
	switch kind {
	case KindBusiness:
		return RedirectBusiness, true
	case KindDemo:
		return RedirectDemo, true
	case KindJob:
		return RedirectJob, true
	}
	return "", false
}
