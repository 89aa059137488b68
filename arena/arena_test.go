package arena

import "testing"

func TestTapeAppendReturnsStableSpans(t *testing.T) {
	a := New()
	tape := a.NewTape()

	off1, n1 := tape.Append([]byte("hello"))
	off2, n2 := tape.Append([]byte("world!!"))

	buf := tape.Bytes()
	if string(buf[off1:off1+n1]) != "hello" {
		t.Fatalf("first span = %q", buf[off1:off1+n1])
	}
	if string(buf[off2:off2+n2]) != "world!!" {
		t.Fatalf("second span = %q", buf[off2:off2+n2])
	}
	if off2 != off1+n1 {
		t.Fatalf("spans aren't contiguous: off1=%d n1=%d off2=%d", off1, n1, off2)
	}
}

func TestAllocOrDummy(t *testing.T) {
	a := New()
	if got := a.Int64s(5, false); got != nil {
		t.Fatalf("want=false should return nil, got %v", got)
	}
	if got := a.Int64s(0, true); got != nil {
		t.Fatalf("n=0 should return nil, got %v", got)
	}
	got := a.Int64s(3, true)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestResetReleasesTapes(t *testing.T) {
	a := New()
	tape := a.NewTape()
	tape.Append([]byte("data"))
	if len(a.tapes) != 1 {
		t.Fatalf("expected 1 tracked tape, got %d", len(a.tapes))
	}
	a.Reset()
	if len(a.tapes) != 0 {
		t.Fatalf("expected 0 tracked tapes after Reset, got %d", len(a.tapes))
	}
	if tape.buf != nil {
		t.Fatalf("tape's buffer should be forgotten after Reset")
	}
}

func TestGrowthPreservesContents(t *testing.T) {
	a := New()
	tape := a.NewTape()
	var want []byte
	for i := 0; i < 10000; i++ {
		b := []byte{byte(i), byte(i >> 8)}
		want = append(want, b...)
		tape.Append(b)
	}
	if string(tape.Bytes()) != string(want) {
		t.Fatalf("tape contents diverged after growth")
	}
}
