package optable

import (
	"go/token"
	"strings"
	"unicode"
)

// RootInterface is the interface name whose methods live on the server's
// root object rather than a sub-object.
const RootInterface = "Root"

// GoName converts a native operation name to an exported Go identifier.
// e.g., "PropFrame.GetNameList" → "PropFrameGetNameList",
// "File.Save_As" → "FileSaveAs"
func GoName(native string) string {
	return toPascal(native)
}

// NativeName builds the native operation name for a method of a Go
// interface. Underscores in the interface name separate nested objects.
// e.g., ("PropFrame", "GetNameList") → "PropFrame.GetNameList",
// ("Results_Setup", "DeselectAll") → "Results.Setup.DeselectAll",
// ("Root", "InitializeNewModel") → "InitializeNewModel"
func NativeName(iface, method string) string {
	if iface == RootInterface || iface == "" {
		return method
	}
	return strings.ReplaceAll(iface, "_", ".") + "." + method
}

// ParamName converts a native parameter name to a Go parameter name.
// e.g., "NumberNames" → "numberNames", "Type" → "type_"
func ParamName(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	// Leading acronyms are lowered as a unit: "ID" → "id", "UXArray" → "uxArray".
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	out := string(runes)
	if token.IsKeyword(out) {
		out += "_"
	}
	return out
}

// toPascal converts a string to PascalCase.
// Dots, hyphens and underscores separate words.
func toPascal(s string) string {
	var b strings.Builder
	nextUpper := true
	for _, r := range s {
		if r == '.' || r == '-' || r == '_' {
			nextUpper = true
			continue
		}
		if nextUpper {
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
