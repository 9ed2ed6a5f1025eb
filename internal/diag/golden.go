package diag

import (
	"fmt"
	"strings"
)

// FormatShortDiagnostics renders diagnostics one per line in a stable form
// suitable for golden comparisons and for the CLI short output:
//
//	error LOW4001 1:10-11 message
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	var b strings.Builder
	first := true
	line := func(sev, code, span, msg string) {
		if !first {
			b.WriteByte('\n')
		}
		first = false
		fmt.Fprintf(&b, "%s %s %s %s", sev, code, span, msg)
	}
	for _, d := range diags {
		line(severityLabel(d.Severity), d.Code.ID(), d.Primary.String(), sanitizeMessage(d.Message))
		if !includeNotes {
			continue
		}
		for _, note := range d.Notes {
			line("note", d.Code.ID(), note.Span.String(), sanitizeMessage(note.Msg))
		}
	}
	return b.String()
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
