// Package naming maps source type, field and variant names onto legal Elm
// identifiers. Every mapping is a pure function of its inputs, so the same
// source name always yields the same identifier.
package naming

import (
	"regexp"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
)

// Role selects which kind of Elm identifier a source name is mapped to.
type Role int

const (
	// TypeDecl is the type name, e.g. Drawing.
	TypeDecl Role = iota
	// Encoder is the JSON encoder function, e.g. encodeDrawing.
	Encoder
	// Decoder is the JSON decoder value, e.g. drawingDecoder.
	Decoder
	// QueryEncoder is the query parameter function, e.g. urlEncodeDrawing.
	QueryEncoder
	// Field is a record field, e.g. fileName.
	Field
	// Constructor is a custom type constructor, e.g. Jpeg.
	Constructor
)

func (r Role) String() string {
	switch r {
	case TypeDecl:
		return "type"
	case Encoder:
		return "encoder"
	case Decoder:
		return "decoder"
	case QueryEncoder:
		return "query encoder"
	case Field:
		return "field"
	case Constructor:
		return "constructor"
	default:
		return "unknown"
	}
}

const (
	encoderPrefix = "encode"
	decoderSuffix = "Decoder"
	queryPrefix   = "urlEncode"
	escapeSuffix  = "_"
)

var keywords = map[string]bool{
	"if": true, "then": true, "else": true, "case": true, "of": true,
	"let": true, "in": true, "type": true, "module": true, "where": true,
	"import": true, "exposing": true, "as": true, "port": true, "alias": true,
	"infix": true, "effect": true, "command": true, "subscription": true,
}

// Names brought into scope by Elm's default imports, plus the ones the
// generated header imports.
var reservedUpper = map[string]bool{
	"Int": true, "Float": true, "Bool": true, "String": true, "Char": true,
	"List": true, "Maybe": true, "Result": true, "Order": true, "Never": true,
	"Program": true, "Cmd": true, "Sub": true, "Dict": true,
	"True": true, "False": true, "Just": true, "Nothing": true,
	"Ok": true, "Err": true,
}

// Target maps a source name to the Elm identifier for role. It fails with
// ErrUnrepresentableType when nothing usable remains after canonicalization.
func Target(source string, role Role) (string, error) {
	base := ToPascalCase(source)
	if base == "" {
		return "", errors.Unrepresentable(nil, "%q has no usable %s name", source, role)
	}
	if startsWithDigit(base) {
		base = "N" + base
	}

	switch role {
	case TypeDecl, Constructor:
		if reservedUpper[base] {
			return base + escapeSuffix, nil
		}
		return base, nil
	case Encoder:
		return encoderPrefix + base, nil
	case QueryEncoder:
		return queryPrefix + base, nil
	case Decoder:
		return lowerFirst(base) + decoderSuffix, nil
	case Field:
		name := lowerFirst(base)
		if keywords[name] {
			return name + escapeSuffix, nil
		}
		return name, nil
	default:
		return "", errors.Newf("unknown naming role %d", int(role))
	}
}

var moduleSegment = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// ValidateModule checks that name is a legal Elm module name such as
// "Bindings" or "Api.Types".
func ValidateModule(name string) error {
	if name == "" {
		return errors.Unrepresentable(nil, "module name is empty")
	}
	for _, seg := range strings.Split(name, ".") {
		if !moduleSegment.MatchString(seg) {
			return errors.Unrepresentable(nil, "%q is not a valid Elm module name", name)
		}
	}
	return nil
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
