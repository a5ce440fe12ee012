package distributor

import (
	"net"

	"github.com/go-kit/kit/metrics"

	"ceres/imap"
)

type metricsService struct {
	service  Service
	logins   metrics.Counter
	logouts  metrics.Counter
	commands metrics.Counter
}

// NewMetricsService wraps a provided existing service
// with counters for authentications, logouts, and the
// per-command request volume.
func NewMetricsService(s Service, logins metrics.Counter, logouts metrics.Counter, commands metrics.Counter) Service {
	return &metricsService{
		service:  s,
		logins:   logins,
		logouts:  logouts,
		commands: commands,
	}
}

func (s *metricsService) Run(listener net.Listener, dispatch Service) error {
	return s.service.Run(listener, dispatch)
}

func (s *metricsService) Capability(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "CAPABILITY").Add(1)

	return s.service.Capability(c, req)
}

func (s *metricsService) Login(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "LOGIN").Add(1)

	ok := s.service.Login(c, req)

	if ok && c.Session.Authenticated() {
		s.logins.Add(1)
	}

	return ok
}

func (s *metricsService) AuthPlain(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "AUTHENTICATE").Add(1)

	return s.service.AuthPlain(c, req)
}

func (s *metricsService) AuthPlainCredentials(c *Connection, blob string) bool {

	ok := s.service.AuthPlainCredentials(c, blob)

	if ok && c.Session.Authenticated() {
		s.logins.Add(1)
	}

	return ok
}

func (s *metricsService) Logout(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "LOGOUT").Add(1)

	ok := s.service.Logout(c, req)

	if ok {
		s.logouts.Add(1)
	}

	return ok
}

func (s *metricsService) Noop(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "NOOP").Add(1)

	return s.service.Noop(c, req)
}

func (s *metricsService) Select(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "SELECT").Add(1)

	return s.service.Select(c, req)
}

func (s *metricsService) List(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "LIST").Add(1)

	return s.service.List(c, req)
}

func (s *metricsService) Lsub(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "LSUB").Add(1)

	return s.service.Lsub(c, req)
}

func (s *metricsService) Create(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "CREATE").Add(1)

	return s.service.Create(c, req)
}

func (s *metricsService) Subscribe(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "SUBSCRIBE").Add(1)

	return s.service.Subscribe(c, req)
}

func (s *metricsService) Status(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "STATUS").Add(1)

	return s.service.Status(c, req)
}

func (s *metricsService) Namespace(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "NAMESPACE").Add(1)

	return s.service.Namespace(c, req)
}

func (s *metricsService) ID(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "ID").Add(1)

	return s.service.ID(c, req)
}

func (s *metricsService) Close(c *Connection, req *imap.Command) bool {

	s.commands.With("command", "CLOSE").Add(1)

	return s.service.Close(c, req)
}
