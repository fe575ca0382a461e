// Package errors provides error handling for elmgen.
//
// It re-exports github.com/cockroachdb/errors for wrapping and inspection and
// defines the generator's error taxonomy:
//
//   - ErrUnrepresentableType: a type, or one of its fields, variants or
//     elements, has no Elm binding.
//   - ErrNameCollision: two distinct types map to the same Elm identifier.
//   - ErrIOFailure: the output sink rejected a write.
//   - ErrDecodeFailure: a JSON document does not match a shape. Produced by
//     the reference wire codec, mirroring the generated Elm decoders.
//
// Check kinds with errors.Is:
//
//	if errors.Is(err, errors.ErrNameCollision) {
//	    // rename one of the types
//	}
package errors

import (
	"fmt"
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New       = crdb.New
	Newf      = crdb.Newf
	Wrap      = crdb.Wrap
	Wrapf     = crdb.Wrapf
	WithStack = crdb.WithStack
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	GetAllHints = crdb.GetAllHints
)

// Error inspection
var (
	Is    = crdb.Is
	As    = crdb.As
	Cause = crdb.Cause
)

// Kind categorizes generator and codec errors.
type Kind string

const (
	KindUnrepresentableType Kind = "unrepresentable type"
	KindNameCollision       Kind = "name collision"
	KindIOFailure           Kind = "io failure"
	KindDecodeFailure       Kind = "decode failure"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrUnrepresentableType = &Error{Kind: KindUnrepresentableType}
	ErrNameCollision       = &Error{Kind: KindNameCollision}
	ErrIOFailure           = &Error{Kind: KindIOFailure}
	ErrDecodeFailure       = &Error{Kind: KindDecodeFailure}
)

// Error is the structured error returned by the generator and the wire codec.
type Error struct {
	Cause  error
	Kind   Kind
	Detail string
	Path   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(JoinPath(e.Path))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// JoinPath renders a path such as ["Drawing", "authors", "[]"] as
// "Drawing.authors[]". Segments starting with '[' attach without a dot.
func JoinPath(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Unrepresentable reports a shape with no Elm binding at path.
func Unrepresentable(path []string, format string, args ...any) *Error {
	return &Error{
		Kind:   KindUnrepresentableType,
		Path:   clonePath(path),
		Detail: fmt.Sprintf(format, args...),
	}
}

// NameCollision reports two source identities competing for one identifier.
func NameCollision(identifier, first, second string) *Error {
	return &Error{
		Kind:   KindNameCollision,
		Detail: fmt.Sprintf("%q is claimed by both %s and %s", identifier, first, second),
	}
}

// IOFailure wraps an error returned by the output sink.
func IOFailure(cause error) *Error {
	return &Error{
		Kind:  KindIOFailure,
		Cause: cause,
	}
}

// DecodeFailure reports a JSON document that does not match its shape.
func DecodeFailure(path []string, format string, args ...any) *Error {
	return &Error{
		Kind:   KindDecodeFailure,
		Path:   clonePath(path),
		Detail: fmt.Sprintf(format, args...),
	}
}

// clonePath copies path so callers may keep appending to their slice.
func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}
