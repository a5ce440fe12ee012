package distributor_test

import (
	"bufio"
	"net"
	"testing"

	"ceres/distributor"
	"ceres/imap"
	"github.com/stretchr/testify/assert"
)

// Functions

// newPipeConnection builds a connection around an in-memory
// pipe and returns the reading end for inspecting output.
func newPipeConnection(t *testing.T) (*distributor.Connection, *bufio.Reader) {

	t.Helper()

	server, client := net.Pipe()

	c := distributor.NewConnection(server, 0)
	c.Session = &imap.Session{
		State:      imap.StateNotAuthenticated,
		ClientAddr: c.ClientAddr,
	}

	t.Cleanup(func() {
		c.Terminate()
		client.Close()
	})

	return c, bufio.NewReader(client)
}

// TestRegistry executes a white-box unit test on the
// implemented Insert(), Get(), Remove(), and Size()
// functions.
func TestRegistry(t *testing.T) {

	registry := distributor.NewRegistry()

	c, _ := newPipeConnection(t)

	assert.Equal(t, 0, registry.Size(), "[distributor.TestRegistry] Expected empty registry at start")

	registry.Insert(c)
	assert.Equal(t, 1, registry.Size(), "[distributor.TestRegistry] Expected one entry after insert")

	session, found := registry.Get(c.ClientAddr)
	assert.Equal(t, true, found, "[distributor.TestRegistry] Expected inserted connection to be found")
	assert.Equal(t, imap.StateNotAuthenticated, session.State, "[distributor.TestRegistry] Expected fresh session state")

	_, found = registry.Get("203.0.113.7:143")
	assert.Equal(t, false, found, "[distributor.TestRegistry] Expected unknown address to not be found")

	// The first removal wins, the second is a no-op.
	assert.Equal(t, true, registry.Remove(c.ClientAddr), "[distributor.TestRegistry] Expected first removal to report an entry")
	assert.Equal(t, false, registry.Remove(c.ClientAddr), "[distributor.TestRegistry] Expected second removal to report no entry")
	assert.Equal(t, 0, registry.Size(), "[distributor.TestRegistry] Expected empty registry after removal")
}

// TestRegistrySend executes a white-box unit test on the
// implemented Send() function.
func TestRegistrySend(t *testing.T) {

	registry := distributor.NewRegistry()

	c, reader := newPipeConnection(t)
	registry.Insert(c)

	err := registry.Send(c.ClientAddr, "* 1 EXISTS")
	assert.Nil(t, err, "[distributor.TestRegistrySend] Expected send to registered connection to succeed but received: %v", err)

	line, err := reader.ReadString('\n')
	assert.Nil(t, err, "[distributor.TestRegistrySend] Expected reading sent line to succeed but received: %v", err)
	assert.Equal(t, "* 1 EXISTS\r\n", line, "[distributor.TestRegistrySend] Expected sent line on the wire")

	// Sending to a removed entry has to surface an error.
	registry.Remove(c.ClientAddr)

	err = registry.Send(c.ClientAddr, "* 2 EXISTS")
	assert.NotNil(t, err, "[distributor.TestRegistrySend] Expected send after removal to fail")
}
