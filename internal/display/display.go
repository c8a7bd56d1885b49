// Package display provides terminal formatting for claimtrail output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
)

// ScoreLabel returns a styled relevance score: green at auto-accept
// strength, amber in review range, dim below.
func ScoreLabel(score, minReview, autoAccept int) string {
	label := fmt.Sprintf("%3d", score)
	switch {
	case score >= autoAccept:
		return Success.Render(label)
	case score >= minReview:
		return Warn.Render(label)
	default:
		return Dim.Render(label)
	}
}

// StatusBadge returns a styled marker for run, review, and report statuses.
func StatusBadge(status string) string {
	switch status {
	case "completed", "approved", "ready":
		return Success.Render("✓ " + status)
	case "partial", "pending", "generating", "running":
		return Warn.Render("~ " + status)
	case "failed", "rejected":
		return ErrStyle.Render("✗ " + status)
	default:
		return Muted.Render(status)
	}
}

// EventGlyph returns a marker for a timeline event type.
func EventGlyph(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "EMAIL"):
		return Muted.Render("✉")
	case strings.HasPrefix(eventType, "ESTIMATE"), strings.HasPrefix(eventType, "DOC"):
		return Warn.Render("▤")
	case strings.HasPrefix(eventType, "INSPECTION"):
		return Bold.Render("⌂")
	case eventType == "PAYMENT_ISSUED":
		return Success.Render("$")
	case eventType == "CLAIM_CLOSED":
		return Success.Render("✓")
	default:
		return Dim.Render("·")
	}
}

// TimeAgo formats a timestamp as a relative time.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2 2006")
	}
}

// Truncate shortens a string to maxLen, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(Success.Render("✓") + " " + msg)
}

// ErrorMsg prints a red X + message to stderr.
func ErrorMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrStyle.Render("✗")+" "+msg)
}

// Header prints a section header.
func Header(title string) {
	fmt.Println(Bold.Render(title))
}

// SubHeader prints a dim subsection label.
func SubHeader(title string) {
	fmt.Println(Muted.Render(title))
}

// TimelineRow prints one event line with a tree connector: "┌─", "├─" or
// "└─".
func TimelineRow(connector string, at time.Time, eventType, summary string) {
	stamp := Dim.Render(at.Format("2006-01-02 15:04"))
	fmt.Printf("  %s %s %s  %s\n",
		Muted.Render(connector), EventGlyph(eventType), stamp, Truncate(summary, 90))
}

// CounterLine formats run counters as a single summary line.
func CounterLine(fetched, ingested, queued, deduped, rejected, errors int) string {
	parts := []string{
		fmt.Sprintf("fetched %d", fetched),
		fmt.Sprintf("ingested %d", ingested),
		fmt.Sprintf("queued %d", queued),
		fmt.Sprintf("deduped %d", deduped),
		fmt.Sprintf("rejected %d", rejected),
	}
	if errors > 0 {
		parts = append(parts, ErrStyle.Render(fmt.Sprintf("errors %d", errors)))
	}
	return strings.Join(parts, " · ")
}
