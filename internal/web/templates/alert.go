// Package templates renders the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/dispatch/internal/dispatch"
	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="alert-code">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// maxListedIssues caps each issue list in ImportSummary.
const maxListedIssues = 20

// ImportSummary renders the counts of a parse and its row issues. inserted
// is negative for a preview, where nothing was written.
func ImportSummary(result dispatch.ParseResult, inserted int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		heading := "Preview"
		if inserted >= 0 {
			heading = fmt.Sprintf("Imported %d stops", inserted)
		}

		if _, err := fmt.Fprintf(w,
			`<section class="import-summary"><h3>%s</h3><dl>`+
				`<dt>Report date</dt><dd>%s</dd>`+
				`<dt>Rows</dt><dd>%d</dd>`+
				`<dt>Deliveries</dt><dd>%d</dd>`+
				`<dt>Errors</dt><dd>%d</dd>`+
				`<dt>Warnings</dt><dd>%d</dd>`+
				`<dt>Duplicates</dt><dd>%d</dd></dl>`,
			templ.EscapeString(heading), templ.EscapeString(result.ReportDate),
			result.TotalRows, len(result.Deliveries), len(result.Errors),
			len(result.Warnings), len(result.Duplicates)); err != nil {
			return err
		}

		for _, group := range []struct {
			class  string
			issues []dispatch.ParseIssue
		}{
			{"issues-errors", result.Errors},
			{"issues-duplicates", result.Duplicates},
			{"issues-warnings", result.Warnings},
		} {
			if err := writeIssues(w, group.class, group.issues); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</section>`)
		return err
	})
}

func writeIssues(w io.Writer, class string, issues []dispatch.ParseIssue) error {
	if len(issues) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, `<ul class="%s">`, class); err != nil {
		return err
	}
	for i, issue := range issues {
		if i == maxListedIssues {
			if _, err := fmt.Fprintf(w, `<li>and %d more</li>`, len(issues)-i); err != nil {
				return err
			}
			break
		}
		label := "File"
		if issue.Row > 0 {
			label = fmt.Sprintf("Row %d", issue.Row)
		}
		if _, err := fmt.Fprintf(w, `<li><strong>%s</strong> %s</li>`,
			label, templ.EscapeString(issue.Message)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</ul>`)
	return err
}
