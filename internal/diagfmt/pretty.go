package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"closconv/internal/diag"
	"closconv/internal/source"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<start>-<end>: <SEV> <CODE>: <Message>
// затем Notes с отступом. Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		loc := formatSpan(d.Primary, opts.Files, opts.Fallback)
		sev := p.severity(d.Severity).Sprint(d.Severity.String())
		code := p.code.Sprint(d.Code.ID())
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n", p.location.Sprint(loc), sev, code, d.Message); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			noteLoc := formatSpan(n.Span, opts.Files, opts.Fallback)
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), noteLoc, n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Summary prints the "N error(s), M warning(s)" trailer.
func Summary(w io.Writer, bag *diag.Bag, useColor bool) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	p := newPalette(useColor)
	_, err := fmt.Fprintf(w, "%s, %s\n",
		p.severity(diag.SevError).Sprintf("%d error(s)", errs),
		p.severity(diag.SevWarning).Sprintf("%d warning(s)", warns))
	return err
}

func formatSpan(span source.Span, files FileNamer, fallback string) string {
	loc := location(span, files, fallback)
	if span.File == source.NoFileID && span.Empty() {
		return loc
	}
	return fmt.Sprintf("%s:%d-%d", loc, span.Start, span.End)
}

type palette struct {
	errColor  *color.Color
	warnColor *color.Color
	infoColor *color.Color
	code      *color.Color
	location  *color.Color
	note      *color.Color
}

func newPalette(enabled bool) palette {
	return palette{
		errColor:  paint(enabled, color.FgRed, color.Bold),
		warnColor: paint(enabled, color.FgYellow, color.Bold),
		infoColor: paint(enabled, color.FgCyan),
		code:      paint(enabled, color.Bold),
		location:  paint(enabled, color.FgWhite, color.Bold),
		note:      paint(enabled, color.FgBlue),
	}
}

func paint(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.errColor
	case diag.SevWarning:
		return p.warnColor
	default:
		return p.infoColor
	}
}
