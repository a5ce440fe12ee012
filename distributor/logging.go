package distributor

import (
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"ceres/imap"
)

type loggingService struct {
	logger  log.Logger
	service Service
}

// NewLoggingService wraps a provided existing
// service with the provided logger.
func NewLoggingService(s Service, logger log.Logger) Service {
	return &loggingService{logger, s}
}

// Run wraps this service's Run method with
// added logging capabilities.
func (s *loggingService) Run(listener net.Listener, dispatch Service) error {

	err := s.service.Run(listener, dispatch)

	level.Warn(s.logger).Log(
		"msg", "failed to run distributor service",
		"err", err,
	)

	return err
}

// logOutcome reports one dispatched operation with the
// session context attached.
func (s *loggingService) logOutcome(method string, c *Connection, ok bool) {

	logger := log.With(s.logger,
		"method", method,
		"session", c.Session.Token,
		"client", c.ClientAddr,
	)

	if !ok {
		level.Info(logger).Log("msg", ("failed to perform operation " + method + " correctly"))
	} else {
		level.Debug(logger).Log()
	}
}

// Capability wraps this service's Capability
// method with added logging capabilities.
func (s *loggingService) Capability(c *Connection, req *imap.Command) bool {

	ok := s.service.Capability(c, req)
	s.logOutcome("CAPABILITY", c, ok)

	return ok
}

// Login wraps this service's Login method
// with added logging capabilities.
func (s *loggingService) Login(c *Connection, req *imap.Command) bool {

	ok := s.service.Login(c, req)
	s.logOutcome("LOGIN", c, ok)

	return ok
}

// AuthPlain wraps this service's AuthPlain
// method with added logging capabilities.
func (s *loggingService) AuthPlain(c *Connection, req *imap.Command) bool {

	ok := s.service.AuthPlain(c, req)
	s.logOutcome("AUTHENTICATE", c, ok)

	return ok
}

// AuthPlainCredentials wraps this service's
// AuthPlainCredentials method with added
// logging capabilities. The credentials line
// itself is never logged.
func (s *loggingService) AuthPlainCredentials(c *Connection, blob string) bool {

	ok := s.service.AuthPlainCredentials(c, blob)
	s.logOutcome("AUTHENTICATE", c, ok)

	return ok
}

// Logout wraps this service's Logout method
// with added logging capabilities.
func (s *loggingService) Logout(c *Connection, req *imap.Command) bool {

	ok := s.service.Logout(c, req)
	s.logOutcome("LOGOUT", c, ok)

	return ok
}

// Noop wraps this service's Noop method
// with added logging capabilities.
func (s *loggingService) Noop(c *Connection, req *imap.Command) bool {

	ok := s.service.Noop(c, req)
	s.logOutcome("NOOP", c, ok)

	return ok
}

// Select wraps this service's Select method
// with added logging capabilities.
func (s *loggingService) Select(c *Connection, req *imap.Command) bool {

	ok := s.service.Select(c, req)
	s.logOutcome("SELECT", c, ok)

	return ok
}

// List wraps this service's List method
// with added logging capabilities.
func (s *loggingService) List(c *Connection, req *imap.Command) bool {

	ok := s.service.List(c, req)
	s.logOutcome("LIST", c, ok)

	return ok
}

// Lsub wraps this service's Lsub method
// with added logging capabilities.
func (s *loggingService) Lsub(c *Connection, req *imap.Command) bool {

	ok := s.service.Lsub(c, req)
	s.logOutcome("LSUB", c, ok)

	return ok
}

// Create wraps this service's Create method
// with added logging capabilities.
func (s *loggingService) Create(c *Connection, req *imap.Command) bool {

	ok := s.service.Create(c, req)
	s.logOutcome("CREATE", c, ok)

	return ok
}

// Subscribe wraps this service's Subscribe
// method with added logging capabilities.
func (s *loggingService) Subscribe(c *Connection, req *imap.Command) bool {

	ok := s.service.Subscribe(c, req)
	s.logOutcome("SUBSCRIBE", c, ok)

	return ok
}

// Status wraps this service's Status method
// with added logging capabilities.
func (s *loggingService) Status(c *Connection, req *imap.Command) bool {

	ok := s.service.Status(c, req)
	s.logOutcome("STATUS", c, ok)

	return ok
}

// Namespace wraps this service's Namespace
// method with added logging capabilities.
func (s *loggingService) Namespace(c *Connection, req *imap.Command) bool {

	ok := s.service.Namespace(c, req)
	s.logOutcome("NAMESPACE", c, ok)

	return ok
}

// ID wraps this service's ID method
// with added logging capabilities.
func (s *loggingService) ID(c *Connection, req *imap.Command) bool {

	ok := s.service.ID(c, req)
	s.logOutcome("ID", c, ok)

	return ok
}

// Close wraps this service's Close method
// with added logging capabilities.
func (s *loggingService) Close(c *Connection, req *imap.Command) bool {

	ok := s.service.Close(c, req)
	s.logOutcome("CLOSE", c, ok)

	return ok
}
