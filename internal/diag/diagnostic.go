package diag

import "closconv/internal/source"

// Severity orders diagnostics by importance; larger is worse.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{SevInfo: "INFO", SevWarning: "WARNING", SevError: "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns a copy of d with one more note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Span: sp, Msg: msg})
	return d
}

// key identifies diagnostics that say the same thing at the same place.
type key struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

func (d *Diagnostic) key() key {
	return key{code: d.Code, sev: d.Severity, span: d.Primary, msg: d.Message}
}
