package sensors

import (
	"bufio"
	"bytes"
	"context"
	"testing"
)

// memLink builds a Link reading from an in-memory byte stream.
func memLink(stream []byte) *Link {
	return &Link{
		r:       bufio.NewReaderSize(bytes.NewReader(stream), 4*frameLen),
		samples: make(chan Sample, 1),
	}
}

func TestLinkResyncsPastGarbage(t *testing.T) {
	frame := Sample{KeyMask: 1 << 9, CrankRaw: 42}.Encode()

	var stream bytes.Buffer
	stream.Write([]byte{0x13, 0x37, SOF0, 0x00, 0xFF}) // noise, incl. a lone SOF0
	stream.Write(frame)

	l := memLink(stream.Bytes())
	go l.Run(context.Background())

	s, ok := <-l.samples
	if !ok {
		t.Fatal("stream closed before delivering the frame")
	}
	if s.KeyMask != 1<<9 || s.CrankRaw != 42 {
		t.Fatalf("decoded %+v, want the frame past the garbage", s)
	}
}

func TestLinkKeepsNewestSample(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(Sample{CrankRaw: 1}.Encode())
	stream.Write(Sample{CrankRaw: 2}.Encode())
	stream.Write(Sample{CrankRaw: 3}.Encode())

	l := memLink(stream.Bytes())
	// Run to completion with no consumer: older samples get dropped.
	l.Run(context.Background())

	s, ok := <-l.samples
	if !ok {
		t.Fatal("no sample delivered")
	}
	if s.CrankRaw != 3 {
		t.Fatalf("got sample %d, want the newest (3)", s.CrankRaw)
	}
	if _, ok := <-l.samples; ok {
		t.Fatal("channel should be closed after the stream ends")
	}
}

func TestLinkSkipsCorruptFrames(t *testing.T) {
	bad := Sample{CrankRaw: 1}.Encode()
	bad[len(bad)-1] ^= 0xFF // break the checksum

	var stream bytes.Buffer
	stream.Write(bad)
	stream.Write(Sample{CrankRaw: 2}.Encode())

	l := memLink(stream.Bytes())
	l.Run(context.Background())

	s := <-l.samples
	if s.CrankRaw != 2 {
		t.Fatalf("got sample %d, want the good frame after the corrupt one", s.CrankRaw)
	}
}
