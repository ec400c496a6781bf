package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xpcn2015/tcrm/internal/task"
)

// Field numbers for the StopReason message.
const (
	fieldStopKind = 1 + iota
	fieldStopTerminateReason
	fieldStopErrorDetail
)

// EncodeStopReason serializes r. Only the field matching r.Kind() is
// written; decoding a message with no terminate/error field present simply
// means the other two variants default to their zero value, which is
// correct because Kind disambiguates which one to read.
func EncodeStopReason(r task.StopReason) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStopKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Kind()))

	switch r.Kind() {
	case task.StopTerminated:
		reason, _ := r.TerminateReason()
		b = protowire.AppendTag(b, fieldStopTerminateReason, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(reason))
	case task.StopError:
		b = protowire.AppendTag(b, fieldStopErrorDetail, protowire.BytesType)
		b = protowire.AppendString(b, r.Err().Error())
	}
	return b
}

// DecodeStopReason reverses EncodeStopReason. A decoded StopError carries its
// original message as a plain error (the structured cause is necessarily
// lost across the wire, matching "schema-evolvable" rather than "full type
// fidelity" for arbitrary Go error chains).
func DecodeStopReason(data []byte) (task.StopReason, error) {
	var (
		kind            task.StopReasonKind
		terminateReason task.TerminateReason
		errDetail       string
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return task.StopReason{}, fmt.Errorf("codec: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldStopKind:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.StopReason{}, err
			}
			kind, data = task.StopReasonKind(v), data[m:]
		case fieldStopTerminateReason:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.StopReason{}, err
			}
			terminateReason, data = task.TerminateReason(v), data[m:]
		case fieldStopErrorDetail:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.StopReason{}, err
			}
			errDetail, data = s, data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return task.StopReason{}, fmt.Errorf("codec: malformed field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	switch kind {
	case task.StopFinished:
		return task.Finished(), nil
	case task.StopTerminated:
		return task.Terminated(terminateReason), nil
	case task.StopError:
		return task.Errored(fmt.Errorf("%s", errDetail)), nil
	default:
		return task.StopReason{}, fmt.Errorf("codec: unknown stop reason kind %d", kind)
	}
}

// Field numbers for the Event message.
const (
	fieldEventKind = 1 + iota
	fieldEventTaskID
	fieldEventProcessID
	fieldEventCreatedAtUnixNano
	fieldEventRunningAtUnixNano
	fieldEventLine
	fieldEventSource
	fieldEventExitCode
	fieldEventHasExitCode
	fieldEventStopReason
	fieldEventFinishedAtUnixNano
	fieldEventSignal
	fieldEventHasSignal
	fieldEventErrorDetail
	fieldEventAction
)

// EncodeEvent serializes ev. Sentinel handling of absent optional integers
// (ExitCode, Signal) uses an explicit presence flag field rather than a
// magic value, since a valid exit code can legitimately be any int.
func EncodeEvent(ev task.Event) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldEventKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Kind))

	switch ev.Kind {
	case task.EventStarted:
		idBytes, _ := ev.TaskID.MarshalBinary()
		b = protowire.AppendTag(b, fieldEventTaskID, protowire.BytesType)
		b = protowire.AppendBytes(b, idBytes)
		b = protowire.AppendTag(b, fieldEventProcessID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.ProcessID))
		b = protowire.AppendTag(b, fieldEventCreatedAtUnixNano, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.CreatedAt.UnixNano()))
		b = protowire.AppendTag(b, fieldEventRunningAtUnixNano, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.RunningAt.UnixNano()))

	case task.EventOutput:
		b = protowire.AppendTag(b, fieldEventLine, protowire.BytesType)
		b = protowire.AppendString(b, ev.Line)
		b = protowire.AppendTag(b, fieldEventSource, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.Source))

	case task.EventStopped:
		if ev.ExitCode != nil {
			b = protowire.AppendTag(b, fieldEventHasExitCode, protowire.VarintType)
			b = protowire.AppendVarint(b, 1)
			b = protowire.AppendTag(b, fieldEventExitCode, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(int64(*ev.ExitCode)))
		}
		b = protowire.AppendTag(b, fieldEventStopReason, protowire.BytesType)
		b = protowire.AppendBytes(b, EncodeStopReason(ev.Reason))
		b = protowire.AppendTag(b, fieldEventFinishedAtUnixNano, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.FinishedAt.UnixNano()))
		if ev.Signal != nil {
			b = protowire.AppendTag(b, fieldEventHasSignal, protowire.VarintType)
			b = protowire.AppendVarint(b, 1)
			b = protowire.AppendTag(b, fieldEventSignal, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(int64(*ev.Signal)))
		}

	case task.EventError:
		b = protowire.AppendTag(b, fieldEventErrorDetail, protowire.BytesType)
		b = protowire.AppendString(b, ev.Err.Error())

	case task.EventProcessControl:
		b = protowire.AppendTag(b, fieldEventAction, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.Action))
	}
	return b
}

// DecodeEvent reverses EncodeEvent.
func DecodeEvent(data []byte) (task.Event, error) {
	var (
		ev          task.Event
		hasExitCode bool
		exitCode    int64
		hasSignal   bool
		signal      int64
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return task.Event{}, fmt.Errorf("codec: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldEventKind:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.Kind, data = task.EventKind(v), data[m:]
		case fieldEventTaskID:
			if typ != protowire.BytesType {
				return task.Event{}, fmt.Errorf("codec: expected bytes-typed field for task id")
			}
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return task.Event{}, fmt.Errorf("codec: malformed task id: %w", protowire.ParseError(m))
			}
			_ = ev.TaskID.UnmarshalBinary(raw)
			data = data[m:]
		case fieldEventProcessID:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.ProcessID, data = int(v), data[m:]
		case fieldEventCreatedAtUnixNano:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.CreatedAt, data = time.Unix(0, int64(v)), data[m:]
		case fieldEventRunningAtUnixNano:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.RunningAt, data = time.Unix(0, int64(v)), data[m:]
		case fieldEventLine:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.Line, data = s, data[m:]
		case fieldEventSource:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.Source, data = task.StreamSource(v), data[m:]
		case fieldEventExitCode:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			exitCode, data = int64(v), data[m:]
		case fieldEventHasExitCode:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			hasExitCode, data = v != 0, data[m:]
		case fieldEventStopReason:
			if typ != protowire.BytesType {
				return task.Event{}, fmt.Errorf("codec: expected bytes-typed field for stop reason")
			}
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return task.Event{}, fmt.Errorf("codec: malformed stop reason: %w", protowire.ParseError(m))
			}
			reason, err := DecodeStopReason(raw)
			if err != nil {
				return task.Event{}, err
			}
			ev.Reason, data = reason, data[m:]
		case fieldEventFinishedAtUnixNano:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.FinishedAt, data = time.Unix(0, int64(v)), data[m:]
		case fieldEventSignal:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			signal, data = int64(v), data[m:]
		case fieldEventHasSignal:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			hasSignal, data = v != 0, data[m:]
		case fieldEventErrorDetail:
			s, m, err := consumeString(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.Err, data = fmt.Errorf("%s", s), data[m:]
		case fieldEventAction:
			v, m, err := consumeVarint(data, typ)
			if err != nil {
				return task.Event{}, err
			}
			ev.Action, data = task.ControlAction(v), data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return task.Event{}, fmt.Errorf("codec: malformed field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	if hasExitCode {
		code := int(exitCode)
		ev.ExitCode = &code
	}
	if hasSignal {
		sig := int(signal)
		ev.Signal = &sig
	}
	return ev, nil
}

// EncodeState serializes a bare State value, for callers persisting or
// transmitting just the state machine position.
func EncodeState(s task.State) []byte {
	var b []byte
	b = protowire.AppendVarint(b, uint64(s))
	return b
}

// DecodeState reverses EncodeState.
func DecodeState(data []byte) (task.State, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, fmt.Errorf("codec: malformed state varint: %w", protowire.ParseError(n))
	}
	return task.State(v), nil
}
