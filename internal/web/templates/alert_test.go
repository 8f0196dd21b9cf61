package templates

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/dispatch/internal/dispatch"
)

func TestErrorAlert(t *testing.T) {
	var sb strings.Builder
	if err := ErrorAlert(`Bad <input>`, "Try again", "DRV002").Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := sb.String()

	for _, want := range []string{
		`role="alert"`,
		`Bad &lt;input&gt;`,
		`<p class="alert-action">Try again</p>`,
		`Code: DRV002`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ErrorAlert output missing %q:\n%s", want, got)
		}
	}
}

func TestImportSummary(t *testing.T) {
	result := dispatch.ParseResult{
		ReportDate: "2025-04-15",
		TotalRows:  3,
		Deliveries: make([]dispatch.ParsedDelivery, 2),
		Errors:     []dispatch.ParseIssue{{Row: 6, Message: "Missing required field: address"}},
		Duplicates: []dispatch.ParseIssue{},
		Warnings:   []dispatch.ParseIssue{{Row: 0, Message: "Report date not found"}},
	}

	var sb strings.Builder
	if err := ImportSummary(result, 2).Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := sb.String()

	for _, want := range []string{
		"Imported 2 stops",
		"<dd>2025-04-15</dd>",
		"<strong>Row 6</strong> Missing required field: address",
		"<strong>File</strong> Report date not found",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ImportSummary output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "issues-duplicates") {
		t.Error("empty duplicate list should not be rendered")
	}
}

func TestImportSummary_Truncates(t *testing.T) {
	issues := make([]dispatch.ParseIssue, maxListedIssues+5)
	for i := range issues {
		issues[i] = dispatch.ParseIssue{Row: i + 4, Message: fmt.Sprintf("issue %d", i)}
	}

	var sb strings.Builder
	if err := ImportSummary(dispatch.ParseResult{Errors: issues}, -1).Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := sb.String()

	if !strings.Contains(got, "<h3>Preview</h3>") {
		t.Errorf("preview heading missing:\n%s", got)
	}
	if !strings.Contains(got, "and 5 more") {
		t.Errorf("truncation note missing:\n%s", got)
	}
	if n := strings.Count(got, "<li><strong>"); n != maxListedIssues {
		t.Errorf("rendered %d issues, want %d", n, maxListedIssues)
	}
}
