package sweep

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/nudge/internal/email"
	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/store"
)

const baseStyle = `
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.content { background: #f9fafb; padding: 20px; border-radius: 0 0 8px 8px; }
.footer { text-align: center; padding: 20px; color: #6b7280; font-size: 14px; }`

var taskTmpl = template.Must(template.New("task").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>` + baseStyle + `
.header { background: #3b82f6; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
.task { background: white; padding: 15px; border-radius: 8px; margin: 15px 0; border-left: 4px solid #3b82f6; }
.priority { display: inline-block; padding: 4px 8px; border-radius: 12px; font-size: 12px; font-weight: bold; }
.high { background: #fef2f2; color: #dc2626; }
.medium { background: #fefce8; color: #d97706; }
.low { background: #f0f9ff; color: #0284c7; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Task Reminder</h1>
    <p>Hello {{.Name}}! You have an upcoming task.</p>
  </div>
  <div class="content">
    <div class="task">
      <h2>{{.Title}}</h2>
      {{if .Description}}<p><strong>Description:</strong> {{.Description}}</p>{{end}}
      <p><strong>Due Date:</strong> {{.Due}}</p>
      <span class="priority {{.Priority}}">{{.PriorityLabel}}</span>
    </div>
    <p>Don't forget to complete this task before the due date!</p>
  </div>
  <div class="footer">
    <p>Log in to mark this task as complete</p>
  </div>
</div>
</body>
</html>`))

var eventTmpl = template.Must(template.New("event").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>` + baseStyle + `
.header { background: #7c3aed; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
.event { background: white; padding: 15px; border-radius: 8px; margin: 15px 0; border-left: 4px solid #7c3aed; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Event Reminder</h1>
    <p>Hello {{.Name}}! You have an upcoming event.</p>
  </div>
  <div class="content">
    <div class="event">
      <h2>{{.Title}}</h2>
      {{if .Description}}<p><strong>Description:</strong> {{.Description}}</p>{{end}}
      <p><strong>Date:</strong> {{.Date}}</p>
      {{if .AllDay}}<p><strong>All Day Event</strong></p>{{else}}<p><strong>Time:</strong> {{.Time}}</p>{{end}}
      {{if .Category}}<p><strong>Category:</strong> {{.Category}}</p>{{end}}
    </div>
    <p>Don't miss your scheduled event!</p>
  </div>
  <div class="footer">
    <p>Log in to view more details</p>
  </div>
</div>
</body>
</html>`))

const (
	dateLayout = "Monday, January 2, 2006"
	timeLayout = "3:04 PM MST"
)

func taskMessage(d store.DueTask, loc *time.Location) (email.Message, error) {
	t := d.Task
	due := t.DueDate.In(loc)

	var html bytes.Buffer
	err := taskTmpl.Execute(&html, map[string]any{
		"Name":          d.Owner.Name,
		"Title":         t.Title,
		"Description":   t.Description,
		"Due":           due.Format(dateLayout),
		"Priority":      t.Priority,
		"PriorityLabel": strings.ToUpper(t.Priority),
	})
	if err != nil {
		return email.Message{}, fmt.Errorf("render task reminder: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nTask: %s\nDue: %s\nPriority: %s\n",
		d.Owner.Name, t.Title, due.Format(dateLayout), t.Priority)
	if t.Description != "" {
		text += "\n" + t.Description + "\n"
	}

	return email.Message{
		To:       d.Owner.Email,
		Subject:  "📋 Task Reminder: " + t.Title,
		HTMLBody: html.String(),
		TextBody: text,
	}, nil
}

func eventMessage(d store.DueEvent, loc *time.Location, now time.Time) (email.Message, error) {
	e := d.Event
	start := e.StartDate.In(loc)

	var html bytes.Buffer
	err := eventTmpl.Execute(&html, map[string]any{
		"Name":        d.Owner.Name,
		"Title":       e.Title,
		"Description": e.Description,
		"Date":        start.Format(dateLayout),
		"Time":        start.Format(timeLayout),
		"AllDay":      e.AllDay,
		"Category":    e.Category,
	})
	if err != nil {
		return email.Message{}, fmt.Errorf("render event reminder: %w", err)
	}

	when := start.Format(dateLayout)
	if !e.AllDay {
		when += " at " + start.Format(timeLayout)
	}
	text := fmt.Sprintf("Hello %s,\n\nEvent: %s\nWhen: %s\n", d.Owner.Name, e.Title, when)
	if e.Description != "" {
		text += "\n" + e.Description + "\n"
	}

	return email.Message{
		To:       d.Owner.Email,
		Subject:  "📅 Event Reminder: " + e.Title,
		HTMLBody: html.String(),
		TextBody: text,
		Attachments: []email.Attachment{{
			Name:        "event.ics",
			ContentType: "text/calendar; charset=utf-8; method=PUBLISH",
			Content:     []byte(eventICS(e, now)),
		}},
	}, nil
}

// eventICS renders a single-event calendar so the recipient can add the
// event with one click.
func eventICS(e model.CalendarEvent, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//nudge//reminders//EN")

	ev := cal.AddEvent(e.ID + "@nudge")
	ev.SetDtStampTime(now)
	ev.SetCreatedTime(e.CreatedAt)
	ev.SetSummary(e.Title)
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}
	if e.AllDay {
		ev.SetAllDayStartAt(e.StartDate)
		ev.SetAllDayEndAt(e.EndDate.AddDate(0, 0, 1))
	} else {
		ev.SetStartAt(e.StartDate)
		ev.SetEndAt(e.EndDate)
	}

	if n := e.Notifications; n != nil && n.Enabled {
		alarm := ev.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", n.LeadMinutes))
	}

	return cal.Serialize()
}
