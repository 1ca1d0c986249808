package encoder

import (
	"testing"
	"time"
)

func TestParseProgress(t *testing.T) {
	line := "frame= 2400 fps= 96 q=28.0 size=   10240kB time=00:01:40.00 bitrate= 838.9kbits/s speed=4.0x"
	p, ok := ParseProgress(line, 200*time.Second)
	if !ok {
		t.Fatal("expected progress line to parse")
	}
	if p.Elapsed != 100*time.Second || p.Speed != 4.0 {
		t.Fatalf("unexpected progress %+v", p)
	}
	if p.Percent != 50 || p.ETA != 25*time.Second {
		t.Fatalf("unexpected percent/eta %+v", p)
	}
	if got := p.Message(); got != "Encoding 50.0% (ETA 25s, @ 4.0x)" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestParseProgressUnknownDuration(t *testing.T) {
	p, ok := ParseProgress("size=1kB time=01:00:05.50 bitrate=1kbits/s speed=N/A", 0)
	if !ok {
		t.Fatal("expected progress line to parse")
	}
	if p.Percent != -1 || p.Speed != 0 || p.ETA != 0 {
		t.Fatalf("unexpected progress %+v", p)
	}
	if got := p.Message(); got != "Encoding 1h0m6s" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestParseProgressIgnoresOtherLines(t *testing.T) {
	if _, ok := ParseProgress("Stream mapping:", time.Minute); ok {
		t.Fatal("non-stats line must not parse")
	}
}
