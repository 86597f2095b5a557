package templates

import (
	"fmt"
	"html"
)

// SiteName is shown in the header and footer of every email
const SiteName = "Missing Persons Network"

// CaseEmailData holds the fields shown in case notification emails
type CaseEmailData struct {
	ReporterName string
	FullName     string
	CaseNumber   string
	StatusText   string
	StatusColor  string
	PreviousText string
	Note         string
	CaseURL      string
}

var statusColors = map[string]string{
	"yellow": "#ca8a04",
	"red":    "#dc2626",
	"orange": "#ea580c",
	"green":  "#16a34a",
	"gray":   "#6b7280",
	"purple": "#7c3aed",
}

func colorHex(name string) string {
	if hex, ok := statusColors[name]; ok {
		return hex
	}
	return statusColors["gray"]
}

func page(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: #b91c1c; padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 32px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .badge { display: inline-block; padding: 4px 12px; border-radius: 999px; color: #fff; font-weight: 600; font-size: 13px; }
    .case-box { background: #f9fafb; border: 1px solid #e5e7eb; border-radius: 12px; padding: 20px; margin: 20px 0; }
    .cta-button { display: inline-block; background: #b91c1c; color: #fff; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 700; margin-top: 16px; }
    .footer { padding: 24px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>&copy; %s</p>
    </div>
  </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), body, SiteName)
}

// RenderCaseSubmittedEmail generates the confirmation sent when a report is filed
func RenderCaseSubmittedEmail(d CaseEmailData) string {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>We received your report about <strong>%s</strong>. It will appear publicly once a family member, the police or a partner NGO confirms it.</p>
      <div class="case-box">
        <p style="margin: 0;">Case number: <strong>%s</strong></p>
      </div>
      <p>Keep this number. Officers will ask for it when you contact them.</p>
      <a href="%s" class="cta-button">View Case</a>`,
		html.EscapeString(d.ReporterName),
		html.EscapeString(d.FullName),
		html.EscapeString(d.CaseNumber),
		html.EscapeString(d.CaseURL))
	return page("Report Received - "+d.CaseNumber, body)
}

// RenderCaseStatusEmail generates the email sent when a case changes status
func RenderCaseStatusEmail(d CaseEmailData) string {
	note := ""
	if d.Note != "" {
		note = fmt.Sprintf(`<p><em>%s</em></p>`, html.EscapeString(d.Note))
	}
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>The case for <strong>%s</strong> has been updated.</p>
      <div class="case-box">
        <p style="margin-top: 0;">Case number: <strong>%s</strong></p>
        <p style="margin-bottom: 0;">Status: %s &rarr; <span class="badge" style="background: %s;">%s</span></p>
      </div>
      %s
      <a href="%s" class="cta-button">View Case</a>`,
		html.EscapeString(d.ReporterName),
		html.EscapeString(d.FullName),
		html.EscapeString(d.CaseNumber),
		html.EscapeString(d.PreviousText),
		colorHex(d.StatusColor),
		html.EscapeString(d.StatusText),
		note,
		html.EscapeString(d.CaseURL))
	return page("Case "+d.CaseNumber+" Update", body)
}
