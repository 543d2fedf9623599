package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
	badKey            = "!BADKEY"
)

// appendFields adds alternating key/value fields to an event. Errors get their
// stack trace and, when they provide one, a structured detail object.
func appendFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i < len(fields); {
		if err, ok := fields[i].(error); ok {
			e = appendError(e, ErrAttrKey, err)
			i++
			continue
		}
		if i+1 >= len(fields) {
			e = e.Interface(badKey, fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			e = appendError(e, key, err)
		} else {
			e = e.Interface(key, fields[i+1])
		}
		i += 2
	}
	return e
}

func appendError(e *zerolog.Event, key string, err error) *zerolog.Event {
	e = e.Str(key, err.Error())
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceAttrKey, st)
	}
	var detail zerolog.LogObjectMarshaler
	if errors.As(err, &detail) {
		e = e.Object(key+"_detail", detail)
	}
	return e
}

// withFields is appendFields for a logger context. Stack traces are not attached
// to contextual fields; they belong to the record that reports the failure.
func withFields(c zerolog.Context, fields []any) zerolog.Context {
	for i := 0; i < len(fields); {
		if err, ok := fields[i].(error); ok {
			c = c.Str(ErrAttrKey, err.Error())
			i++
			continue
		}
		if i+1 >= len(fields) {
			c = c.Interface(badKey, fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			c = c.Str(key, err.Error())
		} else {
			c = c.Interface(key, fields[i+1])
		}
		i += 2
	}
	return c
}

func extractStacktrace(err error) string {
	for _, payload := range errors.GetAllSafeDetails(err) {
		if len(payload.SafeDetails) > 0 && payload.SafeDetails[0] != "" {
			return payload.SafeDetails[0]
		}
	}
	if verbose := fmt.Sprintf("%+v", err); verbose != err.Error() {
		return verbose
	}
	return ""
}
