// Package codec implements the optional wire-format codec named in the
// engine's external-interfaces contract: a symmetric encode/decode pair for
// Configuration, Event, StopReason, and State, built directly on
// protobuf's low-level wire primitives rather than generated message types,
// so the format stays schema-evolvable (new fields are new tag numbers; an
// old decoder simply skips tags it doesn't recognize) without requiring a
// .proto/codegen step anywhere in this module.
package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xpcn2015/tcrm/internal/task"
)

// Field numbers for the Configuration message, numbered consecutively from 1.
// New fields take new, higher numbers.
const (
	fieldCommand = 1 + iota
	fieldArgs
	fieldWorkingDir
	fieldEnvKey
	fieldEnvValue
	fieldTimeoutMs
	fieldEnableStdin
	fieldReadyIndicator
	fieldReadyIndicatorSource
	fieldUseProcessGroup
)

// EncodeConfiguration serializes cfg into the wire format. Absent optional
// fields (no timeout, no ready indicator, no working dir) are simply omitted
// from the byte stream — protobuf's wire format has no explicit "null", so
// field presence itself is the sentinel for "absent".
func EncodeConfiguration(cfg task.Configuration) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldCommand, protowire.BytesType)
	b = protowire.AppendString(b, cfg.Command())

	for _, a := range cfg.Args() {
		b = protowire.AppendTag(b, fieldArgs, protowire.BytesType)
		b = protowire.AppendString(b, a)
	}

	if dir := cfg.WorkingDir(); dir != "" {
		b = protowire.AppendTag(b, fieldWorkingDir, protowire.BytesType)
		b = protowire.AppendString(b, dir)
	}

	// env is encoded as repeated (key, value) pairs in insertion-independent
	// order; a decoder reconstructs the map by zipping consecutive pairs.
	for k, v := range cfg.Env() {
		b = protowire.AppendTag(b, fieldEnvKey, protowire.BytesType)
		b = protowire.AppendString(b, k)
		b = protowire.AppendTag(b, fieldEnvValue, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}

	if d := cfg.Timeout(); d > 0 {
		b = protowire.AppendTag(b, fieldTimeoutMs, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.Milliseconds()))
	}

	b = protowire.AppendTag(b, fieldEnableStdin, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(cfg.EnableStdin()))

	if ind := cfg.ReadyIndicator(); ind != "" {
		b = protowire.AppendTag(b, fieldReadyIndicator, protowire.BytesType)
		b = protowire.AppendString(b, ind)
		b = protowire.AppendTag(b, fieldReadyIndicatorSource, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(cfg.ReadyIndicatorSource()))
	}

	b = protowire.AppendTag(b, fieldUseProcessGroup, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(cfg.IsProcessGroupEnabled()))

	return b
}

// DecodeConfiguration reverses EncodeConfiguration. Unknown tags are skipped
// via protowire.ConsumeFieldValue, so decoders built against an older field
// set tolerate messages produced by a newer encoder.
func DecodeConfiguration(data []byte) (task.Configuration, error) {
	var (
		command              string
		args                 []string
		workDir              string
		env                  = map[string]string{}
		pendingEnvKey        string
		haveEnvKey           bool
		timeoutMs            uint64
		enableStdin          bool
		readyIndicator       string
		readyIndicatorSource uint64
		useProcessGroup      bool
		haveCommand          bool
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return task.Configuration{}, fmt.Errorf("codec: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldCommand:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			command, haveCommand, data = s, true, data[m:]
		case fieldArgs:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			args = append(args, s)
			data = data[m:]
		case fieldWorkingDir:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			workDir, data = s, data[m:]
		case fieldEnvKey:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			pendingEnvKey, haveEnvKey, data = s, true, data[m:]
		case fieldEnvValue:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			if haveEnvKey {
				env[pendingEnvKey] = s
				haveEnvKey = false
			}
			data = data[m:]
		case fieldTimeoutMs:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			timeoutMs, data = v, data[m:]
		case fieldEnableStdin:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			enableStdin, data = v != 0, data[m:]
		case fieldReadyIndicator:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			readyIndicator, data = s, data[m:]
		case fieldReadyIndicatorSource:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			readyIndicatorSource, data = v, data[m:]
		case fieldUseProcessGroup:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Configuration{}, err
			}
			useProcessGroup, data = v != 0, data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return task.Configuration{}, fmt.Errorf("codec: malformed field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	if !haveCommand {
		return task.Configuration{}, fmt.Errorf("codec: missing required field: command")
	}

	cfg := task.NewConfiguration(command).
		WithArgs(args...).
		WithWorkingDir(workDir).
		WithEnv(env).
		WithStdin(enableStdin).
		WithProcessGroup(useProcessGroup)
	if timeoutMs > 0 {
		cfg = cfg.WithTimeout(time.Duration(timeoutMs) * time.Millisecond)
	}
	if readyIndicator != "" {
		cfg = cfg.WithReadyIndicator(readyIndicator, task.StreamSource(readyIndicatorSource))
	}
	return cfg, nil
}

func consumeString(data []byte, typ protowire.Type) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, fmt.Errorf("codec: expected bytes-typed field, got %v", typ)
	}
	v, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", 0, fmt.Errorf("codec: malformed string: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeVarint(data []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("codec: expected varint-typed field, got %v", typ)
	}
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, fmt.Errorf("codec: malformed varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

