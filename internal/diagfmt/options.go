package diagfmt

import (
	"strconv"

	"closconv/internal/source"
)

// FileNamer maps a span's file to a display path.
type FileNamer func(source.FileID) string

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// Files resolves file ids; nil prints "file#N".
	Files FileNamer
	// Fallback names spans without a file, usually the module path.
	Fallback string
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Max          int // обрезка вывода, не Bag
	IncludeNotes bool
	Files        FileNamer
	Fallback     string
}

func location(span source.Span, files FileNamer, fallback string) string {
	if span.File == source.NoFileID {
		if fallback == "" {
			return "<unknown>"
		}
		return fallback
	}
	name := ""
	if files != nil {
		name = files(span.File)
	}
	if name == "" {
		name = "file#" + strconv.FormatUint(uint64(span.File), 10)
	}
	return name
}
