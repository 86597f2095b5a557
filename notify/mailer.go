// Package notify emails reporters about their cases through SendGrid.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/logging"
	"github.com/Rhejna/missing-person-app/models"
	templates "github.com/Rhejna/missing-person-app/templates/html"
	"github.com/Rhejna/missing-person-app/verification"
)

// Sender delivers a prepared message
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer sends case emails to reporters
type Mailer struct {
	client  Sender
	from    *mail.Email
	baseURL string
}

// NewMailer returns a Mailer using the SendGrid key from conf
func NewMailer(conf *config.Config) *Mailer {
	return NewMailerWithSender(sendgrid.NewSendClient(conf.SendGridAPIKey), conf)
}

// NewMailerWithSender returns a Mailer delivering through client
func NewMailerWithSender(client Sender, conf *config.Config) *Mailer {
	return &Mailer{
		client:  client,
		from:    mail.NewEmail(conf.MailFromName, conf.MailFrom),
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
	}
}

func (m *Mailer) caseURL(c models.Case) string {
	return fmt.Sprintf("%s/cases/%s", m.baseURL, c.ID)
}

// CaseSubmitted confirms a new report to its reporter
func (m *Mailer) CaseSubmitted(ctx context.Context, c models.Case) error {
	if c.Reporter.Email == "" {
		return nil
	}
	data := templates.CaseEmailData{
		ReporterName: c.Reporter.Name,
		FullName:     c.FullName,
		CaseNumber:   c.CaseNumber,
		CaseURL:      m.caseURL(c),
	}
	subject := fmt.Sprintf("Report received: %s", c.CaseNumber)
	plain := fmt.Sprintf("Hi %s,\n\nWe received your report about %s. Your case number is %s.\n\n%s",
		c.Reporter.Name, c.FullName, c.CaseNumber, data.CaseURL)
	return m.send(ctx, c.Reporter, subject, plain, templates.RenderCaseSubmittedEmail(data))
}

// StatusChanged tells the reporter that the case moved from one status to another
func (m *Mailer) StatusChanged(ctx context.Context, c models.Case, from models.Status) error {
	if c.Reporter.Email == "" {
		return nil
	}
	current := verification.StatusLabel(c.Status)
	previous := verification.StatusLabel(from)
	data := templates.CaseEmailData{
		ReporterName: c.Reporter.Name,
		FullName:     c.FullName,
		CaseNumber:   c.CaseNumber,
		StatusText:   current.Text,
		StatusColor:  current.Color,
		PreviousText: previous.Text,
		Note:         latestNote(c),
		CaseURL:      m.caseURL(c),
	}
	subject := fmt.Sprintf("Case %s is now %s", c.CaseNumber, current.Text)
	plain := fmt.Sprintf("Hi %s,\n\nThe case for %s changed from %s to %s.\n\n%s",
		c.Reporter.Name, c.FullName, previous.Text, current.Text, data.CaseURL)
	return m.send(ctx, c.Reporter, subject, plain, templates.RenderCaseStatusEmail(data))
}

// reporterNoteEvents are the timeline entries whose notes are written by
// moderators or officers for the reporter. Report reasons and sighting notes
// come from the public and stay out of emails.
var reporterNoteEvents = map[models.EventType]bool{
	models.EventModeratorAct: true,
	models.EventMarkedFound:  true,
	models.EventMarkedClosed: true,
}

// latestNote returns the note of the most recent moderator or resolution
// event carrying one
func latestNote(c models.Case) string {
	for i := len(c.Timeline) - 1; i >= 0; i-- {
		ev := c.Timeline[i]
		if reporterNoteEvents[ev.Type] && ev.Note != "" {
			return ev.Note
		}
	}
	return ""
}

func (m *Mailer) send(ctx context.Context, to models.Reporter, subject, plainText, htmlContent string) error {
	log := logging.FromContext(ctx)
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(to.Name, to.Email), plainText, htmlContent)
	response, err := m.client.Send(message)
	if err != nil {
		log.Errorw("failed to send email", "error", err, "to", to.Email)
		return err
	}
	if response.StatusCode >= 400 {
		log.Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", to.Email)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	log.Infow("email sent successfully", "to", to.Email, "subject", subject)
	return nil
}
