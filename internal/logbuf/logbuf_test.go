package logbuf

import (
	"strconv"
	"testing"
)

func TestAppendAndReadOrder(t *testing.T) {
	var b Buffer
	b.Append(Line{Text: "first"})
	b.Append(Line{Text: "second"})
	b.Append(Line{Text: "third", Stderr: true})

	got := b.Read(0)
	want := []string{"third", "second", "first"}
	if len(got) != len(want) {
		t.Fatalf("Read(0) returned %d lines, want %d", len(got), len(want))
	}
	for i, line := range got {
		if line.Text != want[i] {
			t.Errorf("Read(0)[%d] = %q, want %q", i, line.Text, want[i])
		}
	}
	if !got[0].Stderr {
		t.Errorf("Read(0)[0].Stderr = false, want true")
	}
}

func TestReadClampsToAvailable(t *testing.T) {
	var b Buffer
	b.Append(Line{Text: "only"})
	if got := b.Read(50); len(got) != 1 {
		t.Errorf("Read(50) returned %d lines, want 1", len(got))
	}
}

func TestReadEmptyBuffer(t *testing.T) {
	var b Buffer
	if got := b.Read(5); got != nil {
		t.Errorf("Read(5) on empty buffer = %v, want nil", got)
	}
}

func TestBufferWrapsAtCapacity(t *testing.T) {
	var b Buffer
	for i := 0; i < capacity+10; i++ {
		b.Append(Line{Text: strconv.Itoa(i)})
	}
	got := b.Read(1)
	want := strconv.Itoa(capacity + 9)
	if len(got) != 1 || got[0].Text != want {
		t.Errorf("Read(1) after wraparound = %v, want newest entry %q", got, want)
	}
}
