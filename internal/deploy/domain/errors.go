package domain

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed tag expression. It surfaces at
// configuration load time, before any resolution happens.
type ParseError struct {
	Expr   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid tag expression %q: %s", e.Expr, e.Reason)
}

// ConfigurationError reports a required field missing at resolution time.
// It is detected before any helm process is spawned.
type ConfigurationError struct {
	Subject string // what was being resolved, e.g. `release "web"`
	Missing string // the absent field
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Subject, e.Missing)
}

// ProcessError reports a nonzero exit from the external helm binary, with
// its stderr captured verbatim. The runner never retries; retry policy
// belongs to the caller.
type ProcessError struct {
	Bin      string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s %s: exit status %d", e.Bin, strings.Join(e.Args, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}
