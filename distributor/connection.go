package distributor

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"unicode/utf8"

	"ceres/imap"
)

// Variables

// ErrLineTooLong is returned by Receive when a client line
// exceeds the configured maximum length. The line has been
// consumed, the connection stays usable.
var ErrLineTooLong = errors.New("client line exceeded the maximum line length")

// ErrNotUTF8 is returned by Receive when a client line is
// not valid UTF-8. The connection stays usable.
var ErrNotUTF8 = errors.New("client line was not valid UTF-8")

// Structs

// Connection carries all information specific to one
// observed client connection. Responses are enqueued on
// the outbound channel and written by a dedicated writer
// goroutine, so the handler and the registry can both
// send without interleaving partial lines.
type Connection struct {
	IncConn       net.Conn
	IncReader     *bufio.Reader
	ClientAddr    string
	Session       *imap.Session
	MaxLineLength int
	outbound      chan string
	done          chan struct{}
	terminate     sync.Once
}

// Functions

// NewConnection wraps an accepted network connection and
// starts its writer goroutine.
func NewConnection(conn net.Conn, maxLineLength int) *Connection {

	c := &Connection{
		IncConn:       conn,
		IncReader:     bufio.NewReader(conn),
		ClientAddr:    conn.RemoteAddr().String(),
		MaxLineLength: maxLineLength,
		outbound:      make(chan string, 32),
		done:          make(chan struct{}),
	}

	go c.writeLoop()

	return c
}

// writeLoop drains the outbound channel onto the network
// connection. After termination was signalled, already
// enqueued responses are still flushed before the network
// connection is closed.
func (c *Connection) writeLoop() {

	for {

		select {

		case text := <-c.outbound:
			fmt.Fprintf(c.IncConn, "%s\r\n", text)

		case <-c.done:

			for {

				select {

				case text := <-c.outbound:
					fmt.Fprintf(c.IncConn, "%s\r\n", text)

				default:
					c.IncConn.Close()
					return
				}
			}
		}
	}
}

// Send takes in an answer text as a string and enqueues it
// for writing to the connection to the client. In case the
// connection was already terminated, this method returns
// an error to the calling function.
func (c *Connection) Send(text string) error {

	select {

	case c.outbound <- text:
		return nil

	case <-c.done:
		return fmt.Errorf("connection to %s already terminated", c.ClientAddr)
	}
}

// Receive wraps the main io.Reader function that awaits text
// until an IMAP newline symbol and deletes the symbols after-
// wards again. Overlong and non-UTF-8 lines come back with a
// recoverable error, transport faults with the raw error.
// The line is read in reader-buffer sized chunks so that a
// peer streaming bytes without a newline never occupies more
// than the configured maximum plus one buffer.
func (c *Connection) Receive() (string, error) {

	line := make([]byte, 0, 128)

	for {

		chunk, err := c.IncReader.ReadSlice('\n')
		if (err != nil) && (err != bufio.ErrBufferFull) {
			return "", err
		}

		line = append(line, chunk...)

		if (c.MaxLineLength > 0) && (len(line) > c.MaxLineLength) {

			// The rest of the overlong line is thrown away
			// so the next Receive starts on a fresh one.
			if err == bufio.ErrBufferFull {

				err = c.discardLine()
				if err != nil {
					return "", err
				}
			}

			return "", ErrLineTooLong
		}

		if err == nil {
			break
		}
	}

	if !utf8.Valid(line) {
		return "", ErrNotUTF8
	}

	return strings.TrimRight(string(line), "\r\n"), nil
}

// discardLine consumes input up to and including the next
// newline without retaining it.
func (c *Connection) discardLine() error {

	for {

		_, err := c.IncReader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}

		return err
	}
}

// Terminate signals the writer goroutine to flush pending
// responses and close the network connection. It is safe
// to call multiple times.
func (c *Connection) Terminate() {

	c.terminate.Do(func() {
		close(c.done)
	})
}
