package bufpool

import "testing"

func TestPoolReuse(t *testing.T) {
	p := New(64, 1024)

	buf := p.Get()
	buf.WriteString("hello")
	p.Put(buf)

	buf2 := p.Get()
	if buf2.Len() != 0 {
		t.Errorf("reused buffer not reset: len = %d", buf2.Len())
	}
}

func TestPoolDropsOversized(t *testing.T) {
	p := New(16, 32)

	buf := p.Get()
	buf.Write(make([]byte, 1024))
	p.Put(buf) // grew past maxKeep, must be dropped

	buf2 := p.Get()
	if buf2.Cap() > 32 {
		t.Errorf("oversized buffer retained: cap = %d", buf2.Cap())
	}
}
