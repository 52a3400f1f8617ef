package normd

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/alignment"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"google.golang.org/grpc/codes"
)

// ValidationError reports a request whose payload has the wrong shape or
// does not fit the current optimizer.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MediaTypeError reports a body that must be JSON but is not declared as such.
type MediaTypeError struct {
	Field       string
	ContentType string
}

func (e *MediaTypeError) Error() string {
	return fmt.Sprintf("%s: request body must be JSON (got content type %q)", e.Field, e.ContentType)
}

// ParseError reports numeric text that does not parse.
type ParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q is not an integer", e.Field, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CollaboratorError wraps any failure of an optimization run. Stack is set
// when the run panicked.
type CollaboratorError struct {
	Err   error
	Stack []byte
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("optimization failed: %v", e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ParsePathValue parses the integer body of the path_length and path_sample
// endpoints. Surrounding whitespace and one pair of JSON quotes are accepted.
func ParsePathValue(field, text string) (int, error) {
	s := unquote(text)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Field: field, Text: text, Err: err}
	}
	return n, nil
}

func unquote(text string) string {
	s := strings.TrimSpace(text)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// httpStatus maps an error to its response status
func httpStatus(err error) int {
	var mediaErr *MediaTypeError
	if errors.As(err, &mediaErr) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

// grpcCode maps an error to its status code
func grpcCode(err error) codes.Code {
	var (
		collabErr  *CollaboratorError
		unknownErr *search.UnknownOptimizerError
		validErr   *ValidationError
		parseErr   *ParseError
		mediaErr   *MediaTypeError
	)
	switch {
	case errors.As(err, &collabErr):
		return codes.Aborted
	case errors.As(err, &unknownErr):
		return codes.NotFound
	case errors.As(err, &validErr), errors.As(err, &parseErr), errors.As(err, &mediaErr):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// describe renders err for a client. With detail the full chain is returned,
// followed by the panic stack if there is one; without it, a fixed message
// per error class.
func describe(err error, detail bool) string {
	if detail {
		msg := err.Error()
		if stack := panicStack(err); len(stack) > 0 {
			msg += "\n" + string(stack)
		}
		return msg
	}

	var (
		collabErr  *CollaboratorError
		unknownErr *search.UnknownOptimizerError
		validErr   *ValidationError
		parseErr   *ParseError
		mediaErr   *MediaTypeError
	)
	switch {
	case errors.As(err, &collabErr):
		return "optimization failed"
	case errors.As(err, &unknownErr):
		return "unknown optimizer"
	case errors.As(err, &mediaErr):
		return "request body must be JSON"
	case errors.As(err, &parseErr):
		return "invalid integer"
	case errors.As(err, &validErr):
		return "invalid " + validErr.Field
	default:
		return "internal error"
	}
}

func panicStack(err error) []byte {
	var collabErr *CollaboratorError
	if errors.As(err, &collabErr) && len(collabErr.Stack) > 0 {
		return collabErr.Stack
	}
	var panicErr *alignment.PanicError
	if errors.As(err, &panicErr) {
		return panicErr.Stack
	}
	return nil
}
