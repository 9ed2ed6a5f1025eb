package source

import (
	"fmt"
)

// Span is a half-open byte range inside one file.
type Span struct {
	File  FileID
	Start uint32 // inclusive, in bytes
	End   uint32 // exclusive, in bytes
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether other lies inside s. Empty spans are treated as
// unknown and are contained by everything in the same file.
func (s Span) Contains(other Span) bool {
	if s.File != other.File {
		return false
	}
	if other.Empty() || s.Empty() {
		return true
	}
	return other.Start >= s.Start && other.End <= s.End
}

func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
