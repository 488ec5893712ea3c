package ilp

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

func TestBufferSingleRow(t *testing.T) {
	b := NewBuffer(0)

	mustOK(t, b.Table("sensor"))
	mustOK(t, b.Symbol("city", "ldn"))
	mustOK(t, b.Float64Field("temp", 21.5))
	mustOK(t, b.AtNanos(1000))
	mustOK(t, b.Commit())

	want := "sensor,city=ldn temp=21.5 1000\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("buffer = %q, want %q", got, want)
	}
	if b.Rows() != 1 {
		t.Errorf("Rows() = %d, want 1", b.Rows())
	}
}

func TestBufferAllFieldTypes(t *testing.T) {
	b := NewBuffer(0)

	mustOK(t, b.Table("t"))
	mustOK(t, b.BoolField("up", true))
	mustOK(t, b.Int64Field("count", 7))
	mustOK(t, b.Float64Field("load", 0.5))
	mustOK(t, b.StringField("msg", `he said "hi", bye`))
	mustOK(t, b.TimestampField("seen", time.UnixMicro(1700000000000000)))
	mustOK(t, b.Commit())

	want := `t up=t,count=7i,load=0.5,msg="he said \"hi\", bye",seen=1700000000000000t` + "\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("buffer = %q, want %q", got, want)
	}
}

func TestBufferNoTimestampOmitted(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Int64Field("v", 1))
	mustOK(t, b.Commit())

	if got := string(b.Bytes()); got != "t v=1i\n" {
		t.Errorf("buffer = %q, want %q", got, "t v=1i\n")
	}
}

func TestBufferDiscardRestoresCommittedBytes(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("a"))
	mustOK(t, b.Int64Field("v", 1))
	mustOK(t, b.Commit())
	before := append([]byte(nil), b.Bytes()...)

	mustOK(t, b.Table("b"))
	mustOK(t, b.Symbol("s", "x"))
	mustOK(t, b.Float64Field("f", 2.5))
	mustOK(t, b.AtNanos(99))
	b.Discard()

	if !bytes.Equal(b.Bytes(), before) {
		t.Errorf("after discard buffer = %q, want %q", b.Bytes(), before)
	}
	if b.RowInProgress() {
		t.Error("RowInProgress() = true after discard")
	}
}

func TestBufferEmptyRowFailsCommit(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Symbol("s", "only"))

	if err := b.Commit(); !errors.Is(err, ErrEmptyRow) {
		t.Errorf("Commit() = %v, want ErrEmptyRow", err)
	}
	// Committed region untouched; row still open for discard.
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	b.Discard()
	if b.Len() != 0 || b.RowInProgress() {
		t.Error("buffer not clean after discard")
	}
}

func TestBufferSymbolAfterField(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Int64Field("v", 1))

	if err := b.Symbol("s", "x"); !errors.Is(err, ErrColumnOrder) {
		t.Errorf("Symbol after field = %v, want ErrColumnOrder", err)
	}
	// Row is still committable: the bad call must not corrupt it.
	mustOK(t, b.Commit())
	if got := string(b.Bytes()); got != "t v=1i\n" {
		t.Errorf("buffer = %q, want %q", got, "t v=1i\n")
	}
}

func TestBufferColumnWithoutRow(t *testing.T) {
	b := NewBuffer(0)
	if err := b.Symbol("s", "x"); !errors.Is(err, ErrColumnOrder) {
		t.Errorf("Symbol without row = %v, want ErrColumnOrder", err)
	}
	if err := b.Int64Field("v", 1); !errors.Is(err, ErrColumnOrder) {
		t.Errorf("field without row = %v, want ErrColumnOrder", err)
	}
	if err := b.AtNanos(1); !errors.Is(err, ErrColumnOrder) {
		t.Errorf("AtNanos without row = %v, want ErrColumnOrder", err)
	}
	if err := b.Commit(); !errors.Is(err, ErrColumnOrder) {
		t.Errorf("Commit without row = %v, want ErrColumnOrder", err)
	}
}

func TestBufferTableTwice(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	if err := b.Table("u"); !errors.Is(err, ErrColumnOrder) {
		t.Errorf("Table with open row = %v, want ErrColumnOrder", err)
	}
}

func TestBufferDuplicateColumn(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Symbol("city", "ldn"))

	if err := b.Symbol("city", "nyc"); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("duplicate symbol = %v, want ErrDuplicateColumn", err)
	}
	if err := b.Int64Field("city", 1); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("field duplicating symbol = %v, want ErrDuplicateColumn", err)
	}
	mustOK(t, b.Int64Field("pop", 9))
	if err := b.Int64Field("pop", 10); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("duplicate field = %v, want ErrDuplicateColumn", err)
	}
}

func TestBufferTimestampTwice(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Int64Field("v", 1))
	mustOK(t, b.AtNanos(1000))

	if err := b.AtNanos(2000); !errors.Is(err, ErrTimestampSet) {
		t.Errorf("second AtNanos = %v, want ErrTimestampSet", err)
	}
}

func TestBufferNegativeTimestamp(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Int64Field("v", 1))

	if err := b.AtNanos(-1); !errors.Is(err, ErrRange) {
		t.Errorf("AtNanos(-1) = %v, want ErrRange", err)
	}
}

func TestBufferNonFiniteFloatRollsBack(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Int64Field("a", 1))

	if err := b.Float64Field("bad", math.NaN()); !errors.Is(err, ErrRange) {
		t.Errorf("Float64Field(NaN) = %v, want ErrRange", err)
	}
	// The partial "bad=" write must be rolled back and the name freed.
	mustOK(t, b.Float64Field("bad", 2.5))
	mustOK(t, b.Commit())
	if got := string(b.Bytes()); got != "t a=1i,bad=2.5\n" {
		t.Errorf("buffer = %q, want %q", got, "t a=1i,bad=2.5\n")
	}
}

func TestBufferSymbolValueEscaping(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	mustOK(t, b.Symbol("loc", "zone a,b=c"))
	mustOK(t, b.Int64Field("v", 1))
	mustOK(t, b.Commit())

	want := `t,loc=zone\ a\,b\=c v=1i` + "\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("buffer = %q, want %q", got, want)
	}
}

func TestBufferSymbolValueRejectsNewline(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	if err := b.Symbol("s", "a\nb"); !errors.Is(err, ErrEncoding) {
		t.Errorf("Symbol with newline = %v, want ErrEncoding", err)
	}
}

func TestBufferInvalidUTF8StringField(t *testing.T) {
	b := NewBuffer(0)
	mustOK(t, b.Table("t"))
	if err := b.StringField("s", "a\xffb"); !errors.Is(err, ErrEncoding) {
		t.Errorf("StringField invalid utf8 = %v, want ErrEncoding", err)
	}
}

func TestBufferResetKeepsCapacity(t *testing.T) {
	b := NewBuffer(64)
	for i := 0; i < 100; i++ {
		mustOK(t, b.Table("t"))
		mustOK(t, b.Int64Field("v", int64(i)))
		mustOK(t, b.Commit())
	}
	grown := cap(b.buf)
	if grown <= 64 {
		t.Fatalf("cap = %d, expected growth beyond 64", grown)
	}

	b.Reset()
	if b.Len() != 0 || b.Rows() != 0 {
		t.Errorf("after reset Len=%d Rows=%d", b.Len(), b.Rows())
	}
	if cap(b.buf) != grown {
		t.Errorf("Reset released capacity: %d -> %d", grown, cap(b.buf))
	}
}

func TestBufferRowOrderPreserved(t *testing.T) {
	b := NewBuffer(0)
	for i := 0; i < 3; i++ {
		mustOK(t, b.Table("t"))
		mustOK(t, b.Int64Field("seq", int64(i)))
		mustOK(t, b.Commit())
	}
	want := "t seq=0i\nt seq=1i\nt seq=2i\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("buffer = %q, want %q", got, want)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
