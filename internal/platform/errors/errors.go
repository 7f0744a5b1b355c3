// Package errors classifies failures so transports can map them without
// inspecting messages.
package errors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindValidation Kind = "validation"
	KindDependency Kind = "dependency"
	KindDomain     Kind = "domain"
	KindTransport  Kind = "transport"
	KindBootstrap  Kind = "bootstrap"
	KindStorage    Kind = "storage"
	KindUnknown    Kind = "unknown"
)

// Retryable reports whether repeating the same request may succeed.
// Only an unavailable upstream qualifies; bad input never does.
func (k Kind) Retryable() bool {
	return k == KindDependency
}

// Error is rendered as "[kind:op] message: cause".
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Kind))
	b.WriteByte(':')
	b.WriteString(e.Op)
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func outermost(err error) (*Error, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// Wrap attaches kind and op to err. A nil err yields nil, and an error that
// already carries a kind is returned unchanged so the innermost
// classification wins.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := outermost(err); ok {
		return err
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// WrapAs always adds a new layer, reclassifying err.
func WrapAs(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// IsKind checks the outermost typed error in the chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the outermost typed error, or KindUnknown.
func KindOf(err error) Kind {
	if typed, ok := outermost(err); ok {
		return typed.Kind
	}
	return KindUnknown
}

// MessageOf returns the message of the outermost typed error, or "".
func MessageOf(err error) string {
	if typed, ok := outermost(err); ok {
		return typed.Message
	}
	return ""
}

// Retryable reports KindOf(err).Retryable().
func Retryable(err error) bool {
	return err != nil && KindOf(err).Retryable()
}
