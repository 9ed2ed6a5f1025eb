package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Format selects how events are rendered.
type Format uint8

const (
	FormatAuto Format = iota // NDJSON for *.ndjson and *.json paths, text otherwise
	FormatText
	FormatNDJSON
)

// ParseFormat accepts auto, text, ndjson or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
	}
}

func formatForPath(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".json") {
		return FormatNDJSON
	}
	return FormatText
}

// FormatEvent renders ev as one line, newline included.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return appendJSON(nil, ev)
	}
	return appendText(nil, ev)
}

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span,omitempty"`
	ParentID uint64            `json:"parent,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	DurUS    int64             `json:"dur_us,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func appendJSON(dst []byte, ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		DurUS:    ev.Dur.Microseconds(),
		Extra:    ev.Extra,
	})
	if err != nil {
		return append(dst, "{}\n"...)
	}
	return append(append(dst, data...), '\n')
}

// appendText renders "#seq scope  <indent>marker name (detail) [dur] {k=v}".
func appendText(dst []byte, ev *Event) []byte {
	dst = fmt.Appendf(dst, "#%-6d %-6s ", ev.Seq, ev.Scope)
	if ev.Scope > ScopeDriver {
		dst = append(dst, strings.Repeat("  ", int(ev.Scope-ScopeDriver))...)
	}
	switch ev.Kind {
	case KindSpanBegin:
		dst = append(dst, "→ "...)
	case KindSpanEnd:
		dst = append(dst, "← "...)
	case KindPoint:
		dst = append(dst, "• "...)
	case KindHeartbeat:
		dst = append(dst, "♡ "...)
	}
	dst = append(dst, ev.Name...)
	if ev.Detail != "" {
		dst = append(dst, " ("...)
		dst = append(dst, ev.Detail...)
		dst = append(dst, ')')
	}
	if ev.Kind == KindSpanEnd && ev.Dur > 0 {
		dst = append(dst, " ["...)
		dst = strconv.AppendFloat(dst, float64(ev.Dur.Microseconds())/1000, 'f', 3, 64)
		dst = append(dst, "ms]"...)
	}
	if len(ev.Extra) > 0 {
		dst = append(dst, " {"...)
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, k...)
			dst = append(dst, '=')
			dst = append(dst, ev.Extra[k]...)
		}
		dst = append(dst, '}')
	}
	return append(dst, '\n')
}
