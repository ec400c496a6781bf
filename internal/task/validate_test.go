package task

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigurationBuilder(t *testing.T) {
	cfg := NewConfiguration("echo").
		WithArgs("hello", "world").
		WithTimeout(5 * time.Second).
		WithStdin(true).
		WithReadyIndicator("ready", SourceStderr)

	if cfg.Command() != "echo" {
		t.Errorf("Command() = %q, want %q", cfg.Command(), "echo")
	}
	if len(cfg.Args()) != 2 {
		t.Errorf("Args() = %v, want 2 elements", cfg.Args())
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", cfg.Timeout())
	}
	if !cfg.EnableStdin() {
		t.Errorf("EnableStdin() = false, want true")
	}
	if cfg.ReadyIndicator() != "ready" || cfg.ReadyIndicatorSource() != SourceStderr {
		t.Errorf("ready indicator = (%q, %v), want (ready, stderr)", cfg.ReadyIndicator(), cfg.ReadyIndicatorSource())
	}
}

func TestConfigurationWithEnvMerges(t *testing.T) {
	cfg := NewConfiguration("echo").
		WithEnv(map[string]string{"A": "1"}).
		WithEnv(map[string]string{"B": "2"})

	env := cfg.Env()
	if env["A"] != "1" || env["B"] != "2" {
		t.Errorf("Env() = %v, want both A and B present", env)
	}
}

func TestValidateRejectsEmptyCommand(t *testing.T) {
	cfg := NewConfiguration("")
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for empty command")
	} else if !errors.Is(err, ErrKind(ErrInvalidConfiguration)) {
		t.Errorf("error kind = %v, want ErrInvalidConfiguration", err)
	}
}

func TestValidateRejectsWhitespacePaddedCommand(t *testing.T) {
	cfg := NewConfiguration(" echo ")
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for padded command")
	}
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := NewConfiguration("echo").WithTimeout(-1)
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for negative timeout")
	}
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	cfg := NewConfiguration("echo").WithTimeout(0)
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for an explicit zero timeout")
	} else if !errors.Is(err, ErrKind(ErrInvalidConfiguration)) {
		t.Errorf("error kind = %v, want ErrInvalidConfiguration", err)
	}
}

func TestValidateAcceptsUnsetTimeout(t *testing.T) {
	cfg := NewConfiguration("echo") // WithTimeout never called: unset, not zero
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for a never-set timeout", err)
	}
}

func TestValidateAcceptsWellFormedConfiguration(t *testing.T) {
	cfg := NewConfiguration("echo").WithArgs("hi")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateStrictRejectsMetacharacters(t *testing.T) {
	cfg := NewConfiguration("echo").WithArgs("hi; rm -rf /")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil (lenient mode)", err)
	}
	if err := cfg.ValidateStrict(); err == nil {
		t.Fatal("ValidateStrict() = nil, want error for shell metacharacter in argument")
	}
}

func TestValidateRejectsBadEnvKey(t *testing.T) {
	cfg := NewConfiguration("echo").WithEnv(map[string]string{"BAD KEY": "1"})
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for env key containing a space")
	}
}

func TestContainsObviousInjection(t *testing.T) {
	cases := []struct {
		s    string
		want bool
	}{
		{"echo", false},
		{"echo\x00rm", true},
		{"line1\r\nline2", true},
		{strings.Repeat("a", 10), false},
	}
	for _, c := range cases {
		if got := containsObviousInjection(c.s); got != c.want {
			t.Errorf("containsObviousInjection(%q) = %v, want %v", c.s, got, c.want)
		}
	}
}
