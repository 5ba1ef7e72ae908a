package common

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mbalug7/go-rurp/pkg/hal"
	"github.com/tarm/serial"
)

// receive loop wakes at least this often to notice Close
const linkPollInterval = 100 * time.Millisecond

// hostLink is the tty link. A receive goroutine drains the port into a
// buffer so Available can report pending bytes without blocking.
type hostLink struct {
	tty     string
	port    *serial.Port
	rx      bytes.Buffer
	readErr error         // first receive failure, reported once the buffer is empty
	done    chan struct{} // closed to stop the receive goroutine
	stopped chan struct{} // closed by the receive goroutine on exit
	mu      sync.Mutex
}

func newHostLink(tty string) *hostLink {
	return &hostLink{tty: tty}
}

func (obj *hostLink) Open(baudRate int) error {
	if err := obj.Close(); err != nil {
		return err
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        obj.tty,
		Baud:        baudRate,
		Size:        8,
		ReadTimeout: linkPollInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", obj.tty, err)
	}
	// drop whatever the line picked up before it was ours
	if err := port.Flush(); err != nil {
		port.Close()
		return fmt.Errorf("failed to flush serial port %s: %w", obj.tty, err)
	}

	obj.mu.Lock()
	obj.port = port
	obj.rx.Reset()
	obj.readErr = nil
	obj.done = make(chan struct{})
	obj.stopped = make(chan struct{})
	obj.mu.Unlock()

	go obj.receive(port, obj.done, obj.stopped)
	return nil
}

func (obj *hostLink) receive(port *serial.Port, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	buf := make([]byte, 512)
	for {
		select {
		case <-done:
			return
		default:
		}
		n, err := port.Read(buf)
		if n > 0 {
			obj.mu.Lock()
			obj.rx.Write(buf[:n])
			obj.mu.Unlock()
		}
		if err != nil && !errors.Is(err, io.EOF) {
			obj.mu.Lock()
			obj.readErr = fmt.Errorf("failed to receive data: %w", err)
			obj.mu.Unlock()
			return
		}
	}
}

func (obj *hostLink) Ready() (bool, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.port != nil && obj.readErr == nil, nil
}

func (obj *hostLink) Available() (int, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.port == nil {
		return 0, hal.ErrLinkClosed
	}
	if obj.rx.Len() == 0 && obj.readErr != nil {
		return 0, obj.readErr
	}
	return obj.rx.Len(), nil
}

func (obj *hostLink) Read(p []byte) (int, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.port == nil {
		return 0, hal.ErrLinkClosed
	}
	if obj.rx.Len() == 0 {
		if obj.readErr != nil {
			return 0, obj.readErr
		}
		return 0, io.EOF
	}
	return obj.rx.Read(p)
}

func (obj *hostLink) Write(p []byte) (int, error) {
	obj.mu.Lock()
	port := obj.port
	obj.mu.Unlock()
	if port == nil {
		return 0, hal.ErrLinkClosed
	}
	n, err := port.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to send data: %w", err)
	}
	return n, nil
}

// Flush has nothing to wait for: tty writes return once the kernel owns
// the bytes.
func (obj *hostLink) Flush() error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.port == nil {
		return hal.ErrLinkClosed
	}
	return nil
}

// Close stops the receive goroutine and releases the tty. Closing a closed
// link is a no-op.
func (obj *hostLink) Close() error {
	obj.mu.Lock()
	port, done, stopped := obj.port, obj.done, obj.stopped
	obj.port = nil
	obj.mu.Unlock()
	if port == nil {
		return nil
	}

	close(done)
	<-stopped
	if err := port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", obj.tty, err)
	}
	return nil
}
