package log

import (
	"fmt"
	"strings"
)

// Format is a logging format. It implements the pflag.Value interface so it
// can be bound directly to a cobra flag.
type Format uint

const (
	// FmtLogfmt is the "logfmt" logging format.
	FmtLogfmt Format = iota
	// FmtJSON is the JSON logging format.
	FmtJSON
)

// String returns the string representation of a Format.
func (f *Format) String() string {
	switch *f {
	case FmtLogfmt:
		return "logfmt"
	case FmtJSON:
		return "json"
	default:
		return fmt.Sprintf("Format(%d)", uint(*f))
	}
}

// Set parses s into the Format.
func (f *Format) Set(s string) error {
	switch strings.ToLower(s) {
	case "logfmt", "text":
		*f = FmtLogfmt
	case "json":
		*f = FmtJSON
	default:
		return fmt.Errorf("log: invalid log format %q", s)
	}
	return nil
}

// Type returns the list of supported Formats.
func (f *Format) Type() string {
	return "[logfmt,json]"
}
