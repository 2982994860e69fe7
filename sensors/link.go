package sensors

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"

	"go-gurdy/debug"
)

// Link reads sensor frames from the instrument's MCU over a serial port and
// delivers decoded Samples on a channel. The channel has capacity one and
// is overwritten on overflow: the control loop only ever wants the newest
// sample, never a backlog.
type Link struct {
	port    serial.Port
	r       *bufio.Reader
	samples chan Sample
}

// Open opens the named serial device at the given baud rate.
func Open(name string, baud int) (*Link, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("sensors: open %s: %w", name, err)
	}
	debug.Log("sensors", "port opened: %s @ %d baud", name, baud)
	return &Link{
		port:    p,
		r:       bufio.NewReaderSize(p, 4*frameLen),
		samples: make(chan Sample, 1),
	}, nil
}

// Samples returns the channel of decoded sensor samples.
func (l *Link) Samples() <-chan Sample {
	return l.samples
}

// Run reads frames until the context is cancelled or the port errors out.
// Blocking - run in a goroutine.
func (l *Link) Run(ctx context.Context) {
	defer close(l.samples)
	for {
		if ctx.Err() != nil {
			return
		}
		s, err := l.readFrame()
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return
			}
			debug.Log("sensors", "frame error: %v", err)
			continue
		}
		select {
		case l.samples <- s:
		default:
			// Drop the stale sample and replace it with the fresh one.
			select {
			case <-l.samples:
			default:
			}
			select {
			case l.samples <- s:
			default:
			}
		}
	}
}

// readFrame scans for the SOF bytes then decodes one frame.
func (l *Link) readFrame() (Sample, error) {
	if err := l.resync(); err != nil {
		return Sample{}, err
	}
	buf := make([]byte, frameLen)
	buf[0], buf[1] = SOF0, SOF1
	if _, err := io.ReadFull(l.r, buf[2:]); err != nil {
		return Sample{}, err
	}
	return DecodeFrame(buf)
}

// resync consumes bytes until the two-byte start-of-frame marker is seen.
func (l *Link) resync() error {
	for {
		b, err := l.r.ReadByte()
		if err != nil {
			return err
		}
		if b != SOF0 {
			continue
		}
		next, err := l.r.Peek(1)
		if err != nil {
			return err
		}
		if next[0] == SOF1 {
			l.r.Discard(1)
			return nil
		}
	}
}

// Close closes the underlying serial port.
func (l *Link) Close() error {
	debug.Log("sensors", "closing port")
	return l.port.Close()
}

// ListPorts enumerates serial devices on this machine.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
