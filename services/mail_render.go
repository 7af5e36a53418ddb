package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"sitesafe-api/utils"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

var emailShell = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en-GB">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:720px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;font-size:15px;line-height:1.6;color:#111827;">
{{.Body}}
  </div>
  <p style="margin:16px 0 0 0;font-size:12px;color:#6b7280;">{{.Footer}}</p>
</div>
</body>
</html>`))

// RenderEmail renders a markdown body into the standard HTML e-mail.
func RenderEmail(subject, markdownBody, footer string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(markdownBody), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	var out bytes.Buffer
	err := emailShell.Execute(&out, struct {
		Subject string
		Body    template.HTML
		Footer  string
	}{subject, template.HTML(body.String()), footer})
	return out.String(), err
}

// escapeCell keeps user text from breaking a markdown table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

var reminderHeadings = map[string]string{
	ReminderInsurance:  "Subcontractor insurance",
	ReminderRamsReview: "RAMS reviews",
	ReminderRiskReview: "Risk assessment reviews",
	ReminderCSCS:       "CSCS cards",
	ReminderHealth:     "Health questionnaires",
}

var reminderOrder = []string{ReminderInsurance, ReminderRamsReview, ReminderRiskReview, ReminderCSCS, ReminderHealth}

// DigestMarkdown lays reminders out as one markdown table per kind.
func DigestMarkdown(company string, reminders []Reminder, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s compliance reminders\n\n", escapeCell(company))
	fmt.Fprintf(&b, "%d item(s) need attention as of %s.\n\n", len(reminders), utils.FormatUKDate(now))

	byKind := make(map[string][]Reminder)
	for _, r := range reminders {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}
	for _, kind := range reminderOrder {
		items := byKind[kind]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", reminderHeadings[kind])
		b.WriteString("| Subject | Detail | Status | Due |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, r := range items {
			fmt.Fprintf(&b, "| %s | %s | **%s** | %s |\n",
				escapeCell(r.SubjectName),
				escapeCell(r.Detail),
				strings.ReplaceAll(r.Status, "_", " "),
				utils.FormatUKDatePtr(r.DueDate))
		}
		b.WriteString("\n")
	}
	return b.String()
}
