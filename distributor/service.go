package distributor

import (
	"fmt"
	"io"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	uuid "github.com/satori/go.uuid"

	"ceres/auth"
	"ceres/config"
	"ceres/imap"
	"ceres/mailbox"
)

// Structs

type service struct {
	logger        log.Logger
	authenticator auth.Authenticator
	store         *mailbox.Store
	registry      *Registry
	name          string
	version       string
	greeting      string
	separator     string
	maxLineLength int
}

// Interfaces

// Service defines the interface the client-facing IMAP
// front end provides. One method per implemented command
// plus the accept loop, so that logging and metrics
// middleware can wrap each operation.
type Service interface {

	// Run loops over incoming requests and dispatches
	// each one to a goroutine taking care of the commands
	// supplied. Commands are invoked on the supplied
	// top-level service so that wrapping middleware
	// observes every operation.
	Run(net.Listener, Service) error

	// Capability handles the IMAP CAPABILITY command.
	// It outputs the supported actions in the current state.
	Capability(c *Connection, req *imap.Command) bool

	// Login performs the authentication of a client
	// via the IMAP LOGIN command.
	Login(c *Connection, req *imap.Command) bool

	// AuthPlain answers the first step of an IMAP
	// AUTHENTICATE PLAIN exchange with a continuation
	// prompt and arms the session for the credentials.
	AuthPlain(c *Connection, req *imap.Command) bool

	// AuthPlainCredentials consumes the credentials line
	// a client sends after the continuation prompt and
	// finishes or fails the pending authentication.
	AuthPlainCredentials(c *Connection, blob string) bool

	// Logout correctly ends a connection with a client.
	Logout(c *Connection, req *imap.Command) bool

	// Noop answers the IMAP NOOP command in any state.
	Noop(c *Connection, req *imap.Command) bool

	// Select handles the IMAP SELECT and EXAMINE commands.
	Select(c *Connection, req *imap.Command) bool

	// List handles the IMAP LIST command.
	List(c *Connection, req *imap.Command) bool

	// Lsub handles the IMAP LSUB command.
	Lsub(c *Connection, req *imap.Command) bool

	// Create handles the IMAP CREATE command.
	Create(c *Connection, req *imap.Command) bool

	// Subscribe handles the IMAP SUBSCRIBE command.
	Subscribe(c *Connection, req *imap.Command) bool

	// Status handles the IMAP STATUS command.
	Status(c *Connection, req *imap.Command) bool

	// Namespace handles the IMAP NAMESPACE command.
	Namespace(c *Connection, req *imap.Command) bool

	// ID handles the IMAP ID command.
	ID(c *Connection, req *imap.Command) bool

	// Close handles the IMAP CLOSE command, returning a
	// connection from selected to authenticated state.
	Close(c *Connection, req *imap.Command) bool
}

// Functions

// NewService takes in all required parameters for spinning
// up the client-facing IMAP front end and returns a service
// struct wrapping all information.
func NewService(logger log.Logger, authenticator auth.Authenticator, store *mailbox.Store, registry *Registry, conf *config.Config, version string) Service {

	return &service{
		logger:        logger,
		authenticator: authenticator,
		store:         store,
		registry:      registry,
		name:          conf.IMAP.Name,
		version:       version,
		greeting:      conf.IMAP.Greeting,
		separator:     conf.IMAP.HierarchySeparator,
		maxLineLength: conf.Distributor.MaxLineLength,
	}
}

// Run loops over incoming requests and dispatches each one
// to a goroutine taking care of the commands supplied. The
// supplied dispatch service is the outermost element of the
// middleware chain, commands are invoked on it so that the
// wrappers observe every operation.
func (s *service) Run(listener net.Listener, dispatch Service) error {

	if dispatch == nil {
		dispatch = s
	}

	for {
		// Accept request or fail on error.
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accepting incoming request failed with: %v", err)
		}

		// Dispatch into own goroutine.
		go s.handleConnection(conn, dispatch)
	}
}

// handleConnection performs the main actions on one client
// connection. It aggregates the session, sends the greeting,
// and invokes correct methods for supplied IMAP commands
// under the gating rules of the session state.
func (s *service) handleConnection(conn net.Conn, dispatch Service) {

	// Create a new connection struct for incoming request.
	c := NewConnection(conn, s.maxLineLength)

	c.Session = &imap.Session{
		State:      imap.StateNotAuthenticated,
		Token:      uuid.NewV4().String(),
		ClientAddr: c.ClientAddr,
	}

	// Connections are tracked from accept to teardown.
	s.registry.Insert(c)

	// Send initial server greeting.
	err := c.Send(fmt.Sprintf("* OK [CAPABILITY IMAP4rev1 LITERAL+ AUTH=PLAIN] %s", s.greeting))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		s.registry.Remove(c.ClientAddr)
		c.Terminate()
		return
	}

	// As long as we did not receive a LOGOUT command from
	// client or experienced an error, we accept requests.
	recvUntil := ""
	cmdOK := false

	for recvUntil != "LOGOUT" {

		// Receive next incoming client command.
		rawReq, err := c.Receive()
		if err != nil {

			// Overlong or malformed lines are answered
			// in-band, the connection survives them.
			if (err == ErrLineTooLong) || (err == ErrNotUTF8) {

				err := c.Send("* BAD unknown command")
				if err != nil {
					level.Error(s.logger).Log(
						"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
						"err", err,
					)
					break
				}

				continue
			}

			// Check if error was a simple disconnect.
			if err == io.EOF {
				level.Debug(s.logger).Log("msg", fmt.Sprintf("client at %s disconnected", c.ClientAddr))
			} else {
				level.Error(s.logger).Log(
					"msg", fmt.Sprintf("error while receiving text from client %s", c.ClientAddr),
					"err", err,
				)
			}

			break
		}

		// A session armed by AUTHENTICATE PLAIN treats the
		// next raw line as the base64 credentials, not as
		// a command.
		if c.Session.State == imap.StateAuthenticatingPlain {

			cmdOK = dispatch.AuthPlainCredentials(c, rawReq)
			if !cmdOK {
				break
			}

			continue
		}

		// Parse received next raw request into struct.
		req := imap.Parse(rawReq)

		switch {

		case req.Kind == imap.KindUnrecognized:

			// Client sent a line outside the grammar.
			// Signal untagged error, connection survives.
			err := c.Send("* BAD unknown command")
			if err != nil {
				level.Error(s.logger).Log(
					"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
					"err", err,
				)
				cmdOK = false
				break
			}

			cmdOK = true

		case req.Kind == imap.KindCapability:
			cmdOK = dispatch.Capability(c, &req)

		case req.Kind == imap.KindNoop:
			cmdOK = dispatch.Noop(c, &req)

		case req.Kind == imap.KindLogout:
			cmdOK = dispatch.Logout(c, &req)
			if cmdOK {
				// A LOGOUT marks connection termination.
				recvUntil = "LOGOUT"
			}

		case req.Kind == imap.KindLogin:
			cmdOK = dispatch.Login(c, &req)

		case req.Kind == imap.KindAuthPlain:
			cmdOK = dispatch.AuthPlain(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindSelect):
			cmdOK = dispatch.Select(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindList):
			cmdOK = dispatch.List(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindLsub):
			cmdOK = dispatch.Lsub(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindCreate):
			cmdOK = dispatch.Create(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindSubscribe):
			cmdOK = dispatch.Subscribe(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindStatus):
			cmdOK = dispatch.Status(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindNamespace):
			cmdOK = dispatch.Namespace(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindID):
			cmdOK = dispatch.ID(c, &req)

		case c.Session.Authenticated() && (req.Kind == imap.KindClose):
			cmdOK = dispatch.Close(c, &req)

		default:

			// Client sent a mailbox command before
			// authenticating. Signal tagged error.
			err := c.Send(fmt.Sprintf("%s NO Please Login first!", req.Tag))
			if err != nil {
				level.Error(s.logger).Log(
					"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
					"err", err,
				)
				cmdOK = false
				break
			}

			cmdOK = true
		}

		// Executed command above indicated failure in
		// operation. Return from function.
		if !cmdOK {
			break
		}
	}

	// The LOGOUT handler already removed the entry, every
	// other teardown path removes it here exactly once.
	s.registry.Remove(c.ClientAddr)

	c.Terminate()
}

// Capability handles the IMAP CAPABILITY command.
// It outputs the supported actions in the current state.
func (s *service) Capability(c *Connection, req *imap.Command) bool {

	// Send mandatory capability options. This means,
	// AUTH=PLAIN is allowed and nothing else.
	err := c.Send(fmt.Sprintf("* CAPABILITY IMAP4rev1 AUTH=PLAIN UTF8=ONLY NAMESPACE ID ENABLE\r\n%s OK CAPABILITY completed", req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Login performs the authentication of a client via the
// IMAP LOGIN command.
func (s *service) Login(c *Connection, req *imap.Command) bool {

	if c.Session.Authenticated() {

		// Connection was already once authenticated,
		// cannot do that a second time, client error.
		// Send tagged BAD response.
		err := c.Send(fmt.Sprintf("%s BAD Command LOGIN cannot be executed in this state", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	user, err := s.lookupAndVerify(req.Username, req.Password)
	if err != nil {

		level.Warn(s.logger).Log(
			"msg", fmt.Sprintf("failed LOGIN of user '%s' from %s", req.Username, c.ClientAddr),
			"err", err,
		)

		// If supplied credentials failed to authenticate
		// client, they are invalid. Return NO statement.
		err := c.Send(fmt.Sprintf("%s NO credentials invalid", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	return s.finishAuthentication(c, req.Tag, user)
}

// AuthPlain answers the first step of an IMAP AUTHENTICATE
// PLAIN exchange with a continuation prompt and arms the
// session for the credentials line.
func (s *service) AuthPlain(c *Connection, req *imap.Command) bool {

	if c.Session.Authenticated() {

		err := c.Send(fmt.Sprintf("%s BAD Command AUTHENTICATE cannot be executed in this state", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	// Remember the request tag, the tagged answer follows
	// the credentials line the client sends next.
	c.Session.BeginAuthPlain(req.Tag)

	err := c.Send("+")
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// AuthPlainCredentials consumes the credentials line a
// client sends after the continuation prompt and finishes
// or fails the pending authentication.
func (s *service) AuthPlainCredentials(c *Connection, blob string) bool {

	tag := c.Session.PendingAuthTag

	_, username, password, err := imap.DecodePlain(blob)
	if err != nil {

		c.Session.FailAuth()

		level.Warn(s.logger).Log(
			"msg", fmt.Sprintf("malformed AUTHENTICATE credentials from %s", c.ClientAddr),
			"err", err,
		)

		err := c.Send(fmt.Sprintf("%s BAD Unable to parse credentials", tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	user, err := s.lookupAndVerify(username, password)
	if err != nil {

		c.Session.FailAuth()

		level.Warn(s.logger).Log(
			"msg", fmt.Sprintf("failed AUTHENTICATE of user '%s' from %s", username, c.ClientAddr),
			"err", err,
		)

		err := c.Send(fmt.Sprintf("%s NO credentials rejected", tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	return s.finishAuthentication(c, tag, user)
}

// lookupAndVerify retrieves the user record for the supplied
// name and compares the supplied password against its stored
// hash. An unknown user and a wrong password are equivalent
// to the caller.
func (s *service) lookupAndVerify(username string, password string) (*auth.User, error) {

	user, err := s.authenticator.Lookup(username)
	if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("password did not match stored hash")
	}

	return user, nil
}

// finishAuthentication transitions the session into
// authenticated state, makes sure the user's mailbox
// exists on disk, and signals success to the client.
func (s *service) finishAuthentication(c *Connection, tag string, user *auth.User) bool {

	err := s.store.ForUser(user.Email).EnsureRoot()
	if err != nil {

		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("failed to prepare mailbox of user '%s'", user.Email),
			"err", err,
		)

		c.Session.FailAuth()

		err := c.Send(fmt.Sprintf("%s NO server-side mailbox error", tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	c.Session.FinishAuth(user)

	err = c.Send(fmt.Sprintf("%s OK [CAPABILITY IMAP4rev1 LITERAL+ AUTH=PLAIN] AUTHENTICATE completed", tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Logout correctly ends a connection with a client. The
// registry entry is removed before the final answer is
// flushed so no late cross-connection send can race the
// teardown.
func (s *service) Logout(c *Connection, req *imap.Command) bool {

	s.registry.Remove(c.ClientAddr)

	err := c.Send(fmt.Sprintf("* BYE %s logging out\r\n%s OK LOGOUT completed", s.name, req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Noop answers the IMAP NOOP command in any state.
func (s *service) Noop(c *Connection, req *imap.Command) bool {

	err := c.Send(fmt.Sprintf("%s OK NOOP completed", req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Select handles the IMAP SELECT and EXAMINE commands.
func (s *service) Select(c *Connection, req *imap.Command) bool {

	box := s.store.ForUser(c.Session.User.Email)

	if !box.Exists(req.Mailbox) {

		err := c.Send(fmt.Sprintf("%s NO SELECT failure, no mailbox with that name", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	num, next, err := box.Status(req.Mailbox)
	if err != nil {

		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("failed to determine status of mailbox '%s' for user '%s'", req.Mailbox, c.Session.User.Email),
			"err", err,
		)

		err := c.Send(fmt.Sprintf("%s NO SELECT failure, server-side mailbox error", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	access := "READ-WRITE"
	completed := "SELECT completed"
	if req.ReadOnly {
		access = "READ-ONLY"
		completed = "EXAMINE completed"
	}

	answer := fmt.Sprintf("* FLAGS (\\Answered \\Flagged \\Deleted \\Seen \\Draft)\r\n"+
		"* OK [PERMANENTFLAGS (\\Answered \\Flagged \\Deleted \\Seen \\Draft \\*)] Flags permitted\r\n"+
		"* OK [UIDVALIDITY %d] UIDs valid\r\n"+
		"* OK [UIDNEXT %d] Predicted next UID\r\n"+
		"* %d EXISTS\r\n"+
		"* 0 RECENT\r\n"+
		"%s OK [%s] %s", c.Session.User.UIDValidity, next, num, req.Tag, access, completed)

	err = c.Send(answer)
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	c.Session.SelectMailbox(req.Mailbox)

	return true
}

// List handles the IMAP LIST command.
func (s *service) List(c *Connection, req *imap.Command) bool {
	return s.sendListing(c, req, "LIST")
}

// Lsub handles the IMAP LSUB command. All existing folders
// count as subscribed.
func (s *service) Lsub(c *Connection, req *imap.Command) bool {
	return s.sendListing(c, req, "LSUB")
}

func (s *service) sendListing(c *Connection, req *imap.Command, verb string) bool {

	box := s.store.ForUser(c.Session.User.Email)

	var folders []mailbox.Folder
	var err error

	if verb == "LSUB" {
		folders, err = box.Lsub(req.Pattern)
	} else {
		folders, err = box.List(req.Pattern)
	}

	if err != nil {

		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("failed to list mailbox folders for user '%s'", c.Session.User.Email),
			"err", err,
		)

		err := c.Send(fmt.Sprintf("%s NO %s failure, server-side mailbox error", req.Tag, verb))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	answer := ""
	for _, folder := range folders {

		attributes := ""
		for i, attribute := range folder.Attributes {

			if i > 0 {
				attributes += " "
			}

			attributes += attribute
		}

		answer += fmt.Sprintf("* %s (%s) \"%s\" \"%s\"\r\n", verb, attributes, s.separator, folder.Name)
	}

	answer += fmt.Sprintf("%s OK %s Completed", req.Tag, verb)

	err = c.Send(answer)
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Create handles the IMAP CREATE command. Hierarchy
// separators in the supplied name translate into nested
// folders, creating an existing folder succeeds.
func (s *service) Create(c *Connection, req *imap.Command) bool {

	box := s.store.ForUser(c.Session.User.Email)

	err := box.CreateFolder(req.Mailbox)
	if err != nil {

		level.Warn(s.logger).Log(
			"msg", fmt.Sprintf("failed to create mailbox folder '%s' for user '%s'", req.Mailbox, c.Session.User.Email),
			"err", err,
		)

		err := c.Send(fmt.Sprintf("%s NO CREATE failure", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	err = c.Send(fmt.Sprintf("%s OK CREATE Completed", req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Subscribe handles the IMAP SUBSCRIBE command.
// Subscriptions are implicit, every folder is subscribed.
func (s *service) Subscribe(c *Connection, req *imap.Command) bool {

	err := c.Send(fmt.Sprintf("%s OK SUBSCRIBE Completed", req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Status handles the IMAP STATUS command.
func (s *service) Status(c *Connection, req *imap.Command) bool {

	box := s.store.ForUser(c.Session.User.Email)

	num, next, err := box.Status(req.Mailbox)
	if err != nil {

		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("failed to determine status of mailbox '%s' for user '%s'", req.Mailbox, c.Session.User.Email),
			"err", err,
		)

		err := c.Send(fmt.Sprintf("%s NO STATUS failure, server-side mailbox error", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	err = c.Send(fmt.Sprintf("* STATUS %s (MESSAGES %d UIDNEXT %d UNSEEN 0 RECENT 0)\r\n%s OK STATUS Completed", req.Mailbox, num, next, req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Namespace handles the IMAP NAMESPACE command. There is
// one personal namespace rooted at the empty prefix.
func (s *service) Namespace(c *Connection, req *imap.Command) bool {

	err := c.Send(fmt.Sprintf("* NAMESPACE ((\"\" \"%s\")) NIL NIL\r\n%s OK Namespace completed.", s.separator, req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// ID handles the IMAP ID command. The client's payload is
// accepted but not interpreted.
func (s *service) ID(c *Connection, req *imap.Command) bool {

	err := c.Send(fmt.Sprintf("* ID (\"name\" \"%s\" \"version\" \"%s\")\r\n%s OK ID Completed", s.name, s.version, req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}

// Close handles the IMAP CLOSE command, returning a
// connection from selected to authenticated state.
func (s *service) Close(c *Connection, req *imap.Command) bool {

	if c.Session.State != imap.StateMailboxSelected {

		err := c.Send(fmt.Sprintf("%s BAD No mailbox selected", req.Tag))
		if err != nil {
			level.Error(s.logger).Log(
				"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
				"err", err,
			)
			return false
		}

		return true
	}

	c.Session.CloseMailbox()

	err := c.Send(fmt.Sprintf("%s OK CLOSE completed", req.Tag))
	if err != nil {
		level.Error(s.logger).Log(
			"msg", fmt.Sprintf("error while sending text to client %s", c.ClientAddr),
			"err", err,
		)
		return false
	}

	return true
}
