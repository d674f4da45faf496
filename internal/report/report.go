// Package report renders the monthly task report: a plain HTML document that
// word processors open directly when saved with a .doc extension.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"taskcal/internal/model"
	"taskcal/internal/planner"
)

// ContentType is what the report is served as when downloaded.
const ContentType = "application/msword;charset=utf-8"

const style = `body{font-family:sans-serif;line-height:1.4;font-size:10pt;}` +
	`h1,h2,h3{margin-bottom:0.5em;color:#333;}h1{font-size:16pt;text-align:center;margin-bottom:1em;}` +
	`h2{font-size:14pt;}h3{font-size:12pt;margin-top:1.5em;border-bottom:1px solid #ccc;padding-bottom:0.2em;}` +
	`ul{list-style:none;padding-left:0;margin-top:0.5em;}` +
	`li{margin-bottom:0.4em;padding-left:1em;text-indent:-1em;border-bottom:1px dotted #eee;padding-bottom:0.3em;}` +
	`li:last-child{border-bottom:none;}li.completed{text-decoration:line-through;color:#888;}` +
	`li.completed .details{color:#999;}strong{font-weight:bold;}` +
	`.priority-high{color:#C00;}.priority-medium{color:#F80;}.priority-low{color:#777;}` +
	`.details{font-size:9pt;color:#555;margin-left:8px;}`

// Filename is the download name for the report of year/month.
func Filename(year int, month time.Month) string {
	return fmt.Sprintf("Monthly_Report_%s_%d.doc", month, year)
}

// Monthly renders the report for view. Only days with visible occurrences
// get a section; the occurrences are expected to be filtered and sorted
// already.
func Monthly(view planner.MonthView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := fmt.Sprintf("%s %d", view.Month, view.Year)

		var sb strings.Builder
		sb.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`)
		sb.WriteString(`<title>Monthly Task Report - ` + templ.EscapeString(title) + `</title>`)
		sb.WriteString(`<style>` + style + `</style></head>`)
		sb.WriteString(`<body data-ready="true"><h1>Monthly Task Report</h1>`)
		sb.WriteString(`<h2>` + templ.EscapeString(title) + `</h2>`)

		days := view.Populated()
		for _, day := range days {
			sb.WriteString(`<h3>` + templ.EscapeString(day.Date.Long()) + `</h3><ul>`)
			for _, o := range day.Occurrences {
				writeItem(&sb, o)
			}
			sb.WriteString(`</ul>`)
		}
		if len(days) == 0 {
			sb.WriteString(`<p>No tasks found for ` + templ.EscapeString(title) + ` matching the current filters.</p>`)
		}
		sb.WriteString(`</body></html>`)

		_, err := io.WriteString(w, sb.String())
		return err
	})
}

func writeItem(sb *strings.Builder, o model.Occurrence) {
	class := ""
	if o.Completed {
		class = "completed"
	}
	sb.WriteString(`<li class="` + class + `">`)
	if o.Time != "" {
		sb.WriteString(`<strong>` + templ.EscapeString(o.Time) + `</strong> - `)
	}
	desc := o.Description
	if desc == "" {
		desc = "(No description)"
	}
	sb.WriteString(templ.EscapeString(desc))

	prio := o.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	details := []string{fmt.Sprintf("(P: %s)", strings.ToUpper(string(prio)[:1]))}
	if o.Category != "" && o.Category != model.DefaultCategory {
		details = append(details, "["+o.Category+"]")
	}
	if o.IsRecurring() {
		details = append(details, "(R)")
	}
	sb.WriteString(`<span class="details priority-` + templ.EscapeString(string(prio)) + `">`)
	sb.WriteString(templ.EscapeString(strings.Join(details, " ")))
	sb.WriteString(`</span></li>`)
}

// Render is a convenience for callers that want the document as bytes.
func Render(ctx context.Context, view planner.MonthView) ([]byte, error) {
	var buf bytes.Buffer
	if err := Monthly(view).Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
