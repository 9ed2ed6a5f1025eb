package diagfmt

import (
	"encoding/json"
	"io"

	"closconv/internal/diag"
	"closconv/internal/source"
)

// LocationJSON представляет местоположение для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(span source.Span, opts JSONOpts) LocationJSON {
	return LocationJSON{
		File:      location(span, opts.Files, opts.Fallback),
		StartByte: span.Start,
		EndByte:   span.End,
	}
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, opts JSONOpts) DiagnosticsOutput {
	if bag == nil {
		return DiagnosticsOutput{Diagnostics: []DiagnosticJSON{}}
	}
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, maxItems)
	for i := range maxItems {
		d := items[i]
		diagJSON := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, opts),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			diagJSON.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				diagJSON.Notes[j] = NoteJSON{Message: note.Msg, Location: makeLocation(note.Span, opts)}
			}
		}
		diagnostics = append(diagnostics, diagJSON)
	}
	return DiagnosticsOutput{Diagnostics: diagnostics, Count: len(diagnostics)}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, opts))
}
