package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Понижение (closure conversion и соседние проходы)
	LowerInfo Code = 4000
	// LowerCaptureRestricted: захват переменной byref-like типа в замыкании.
	LowerCaptureRestricted Code = 4001
	// LowerCaptureRefParam: захват ref-параметра.
	LowerCaptureRefParam       Code = 4002
	LowerMissingWellKnownType  Code = 4003
	LowerExpressionTreeLocalFn Code = 4004
	LowerStackGuard            Code = 4005
	LowerInternal              Code = 4006

	// Ввод/вывод
	IOInfo          Code = 5000
	IOLoadFileError Code = 5001
	IODecodeError   Code = 5002
	IOEncodeError   Code = 5003

	// Конфигурация
	CfgInfo         Code = 6000
	CfgUnknownKey   Code = 6001
	CfgInvalidValue Code = 6002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                "Unknown error",
		LowerInfo:                  "Lowering information",
		LowerCaptureRestricted:     "Cannot capture a variable of a restricted type",
		LowerCaptureRefParam:       "Cannot capture a ref parameter",
		LowerMissingWellKnownType:  "Missing well-known runtime type",
		LowerExpressionTreeLocalFn: "Expression tree cannot reference a local function",
		LowerStackGuard:            "Method is too deeply nested to lower",
		LowerInternal:              "Internal lowering failure",
		IOInfo:                     "I/O information",
		IOLoadFileError:            "Failed to load file",
		IODecodeError:              "Failed to decode input",
		IOEncodeError:              "Failed to encode output",
		CfgInfo:                    "Configuration information",
		CfgUnknownKey:              "Unknown configuration key",
		CfgInvalidValue:            "Invalid configuration value",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
