package task

import (
	"os"
	"strings"
)

// Field length caps, mirrored from the reference security validator.
const (
	maxCommandLen    = 4096
	maxArgLen        = 4096
	maxWorkingDirLen = 4096
	maxEnvKeyLen     = 1024
	maxEnvValueLen   = 4096
)

// strictMetacharacters blocks shell metacharacters for callers that build
// configurations from untrusted input. Not applied by default.
const strictMetacharacters = ";&|`$(){}[]<>\n\r#"

// Validate is a pure function of the Configuration plus one filesystem probe
// (working directory existence). It is invoked eagerly by the caller and
// defensively by Executor.Start.
func (c Configuration) Validate() error {
	if err := validateCommand(c.command, false); err != nil {
		return err
	}
	for _, a := range c.args {
		if err := validateArg(a, false); err != nil {
			return err
		}
	}
	if c.workDir != "" {
		if err := validateWorkingDir(c.workDir); err != nil {
			return err
		}
	}
	for k, v := range c.env {
		if err := validateEnvKey(k); err != nil {
			return err
		}
		if err := validateEnvValue(v); err != nil {
			return err
		}
	}
	if c.timeoutSet && c.timeout <= 0 {
		return newError(ErrInvalidConfiguration, "timeout_ms must be > 0 when present", nil)
	}
	return nil
}

// ValidateStrict runs Validate and additionally rejects configurations whose
// command or args contain shell metacharacters. Intended for configurations
// built from untrusted sources; not run by default.
func (c Configuration) ValidateStrict() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := validateCommand(c.command, true); err != nil {
		return err
	}
	for _, a := range c.args {
		if err := validateArg(a, true); err != nil {
			return err
		}
	}
	return nil
}

func validateCommand(command string, strict bool) error {
	if strings.TrimSpace(command) == "" {
		return newError(ErrInvalidConfiguration, "command must not be empty", nil)
	}
	if command != strings.TrimSpace(command) {
		return newError(ErrInvalidConfiguration, "command must not have leading or trailing whitespace", nil)
	}
	if len(command) > maxCommandLen {
		return newError(ErrInvalidConfiguration, "command exceeds maximum length", nil)
	}
	if containsObviousInjection(command) {
		return newError(ErrInvalidConfiguration, "command contains forbidden sequence", nil)
	}
	if strict && strings.ContainsAny(command, strictMetacharacters) {
		return newError(ErrInvalidConfiguration, "command contains shell metacharacters", nil)
	}
	return nil
}

func validateArg(arg string, strict bool) error {
	if arg == "" {
		return newError(ErrInvalidConfiguration, "argument must not be empty", nil)
	}
	if strings.ContainsRune(arg, 0) {
		return newError(ErrInvalidConfiguration, "argument contains a NUL byte", nil)
	}
	if arg != strings.TrimSpace(arg) {
		return newError(ErrInvalidConfiguration, "argument must not have leading or trailing whitespace", nil)
	}
	if len(arg) > maxArgLen {
		return newError(ErrInvalidConfiguration, "argument exceeds maximum length", nil)
	}
	if strict && strings.ContainsAny(arg, strictMetacharacters) {
		return newError(ErrInvalidConfiguration, "argument contains shell metacharacters", nil)
	}
	return nil
}

func validateWorkingDir(dir string) error {
	if dir != strings.TrimSpace(dir) {
		return newError(ErrInvalidConfiguration, "working_dir must not have leading or trailing whitespace", nil)
	}
	if len(dir) > maxWorkingDirLen {
		return newError(ErrInvalidConfiguration, "working_dir exceeds maximum length", nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return newError(ErrInvalidConfiguration, "working_dir does not exist", err)
	}
	if !info.IsDir() {
		return newError(ErrInvalidConfiguration, "working_dir is not a directory", nil)
	}
	return nil
}

func validateEnvKey(key string) error {
	if key == "" {
		return newError(ErrInvalidConfiguration, "env key must not be empty", nil)
	}
	if strings.ContainsAny(key, " \t\n=") || strings.ContainsRune(key, 0) {
		return newError(ErrInvalidConfiguration, "env key contains a forbidden character", nil)
	}
	if len(key) > maxEnvKeyLen {
		return newError(ErrInvalidConfiguration, "env key exceeds maximum length", nil)
	}
	return nil
}

func validateEnvValue(value string) error {
	if strings.ContainsRune(value, 0) {
		return newError(ErrInvalidConfiguration, "env value contains a NUL byte", nil)
	}
	if value != strings.TrimSpace(value) {
		return newError(ErrInvalidConfiguration, "env value must not have leading or trailing whitespace", nil)
	}
	if len(value) > maxEnvValueLen {
		return newError(ErrInvalidConfiguration, "env value exceeds maximum length", nil)
	}
	return nil
}

// containsObviousInjection blocks a small set of sequences that have no
// legitimate use in a command name and are commonly used to smuggle
// additional commands past naive callers.
func containsObviousInjection(s string) bool {
	for _, bad := range []string{"\x00", "\r\n", "eval(", "exec("} {
		if strings.Contains(s, bad) {
			return true
		}
	}
	return false
}
