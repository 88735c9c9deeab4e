package redisrec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoRedisURL is returned by Default when REDIS_URL is not set and no
	// default client has been installed.
	ErrNoRedisURL = errors.New(`redisrec: must set REDIS_URL when no connection is given`)

	ErrAlreadyExists  = errors.New("already exists")
	ErrNotFound       = errors.New("does not exist")
	ErrCorrupted      = errors.New("corrupted")
	ErrInvalidID      = errors.New("invalid record id")
	ErrInvalidValue   = errors.New("invalid attribute value")
	ErrNoPrimaryKey   = errors.New("schema declares no primary key")
	ErrUnsupportedKey = errors.New("only integer primary keys are supported")
)

const noID = -1

// RecordError describes a failed operation on a single record.
type RecordError struct {
	Table string
	ID    int64 // negative when the id is unknown
	Msg   string
	Err   error
}

func recordErrf(tbl *Table, id int64, err error, format string, args ...any) error {
	return &RecordError{tbl.name, id, fmt.Sprintf(format, args...), err}
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	if e.ID >= 0 {
		buf.WriteByte('/')
		buf.WriteString(strconv.FormatInt(e.ID, 10))
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// DataError reports stored text that cannot be decoded. It always matches
// ErrCorrupted under errors.Is.
type DataError struct {
	Key   string
	Field string
	Data  string
	Msg   string
	Err   error
}

func dataErrf(key, field, data string, err error, format string, args ...any) error {
	return &DataError{key, field, data, fmt.Sprintf(format, args...), err}
}

func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorrupted}
	}
	return []error{ErrCorrupted, e.Err}
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	data := e.Data
	if n := len(data); n > prefixLen+suffixLen {
		data = fmt.Sprintf("%q...%q", data[:prefixLen], data[n-suffixLen:])
	} else {
		data = strconv.Quote(data)
	}
	loc := e.Key
	if e.Field != "" {
		loc += "." + e.Field
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v: (%d) %s", loc, e.Msg, e.Err, len(e.Data), data)
	}
	return fmt.Sprintf("%s: %s: (%d) %s", loc, e.Msg, len(e.Data), data)
}
