package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"hunk/application/http/actor/client"
	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"
	"hunk/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type ServerTestSuite struct {
	suite.Suite

	transport *pipe.Transport
	listener  *pipe.Listener
	addr      pipe.Addr

	server *Server

	clock *clock.Mock
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.clock = clock.NewMock()

	s.transport = pipe.NewTransport(s.clock)
	s.addr = pipe.Addr{Name: "addr"}

	var err error
	s.listener, err = s.transport.Listen(s.addr)
	s.Require().NoError(err)

	s.server = New(s.listener, slog.New(slog.NewTextHandler(io.Discard, nil)), s.clock, textHandle("served"), Options{})
}

func (s *ServerTestSuite) TearDownTest() {
	s.listener.Close()
	goleak.VerifyNone(s.T())
}

func (s *ServerTestSuite) dial() *client.Conn {
	c, err := client.Dial(context.Background(), s.transport, s.addr, client.Options{})
	s.Require().NoError(err)
	return c
}

func (s *ServerTestSuite) TestStart() {
	s.server.Start()

	for i := 0; i < 2; i++ {
		c := s.dial()

		response, err := c.RoundTrip(newRequest(semantic.MethodGet, nil))
		s.Require().NoError(err)
		s.Equal(status.OK.Code, response.Status.Code)

		b, err := io.ReadAll(response.Body)
		s.NoError(err)
		s.Equal("served", string(b))

		s.NoError(c.Close())
	}

	s.NoError(s.server.Close())
}

func (s *ServerTestSuite) TestCloseIdleConns() {
	s.server.Start()

	c := s.dial()
	response, err := c.RoundTrip(newRequest(semantic.MethodGet, nil))
	s.Require().NoError(err)
	_, err = io.ReadAll(response.Body)
	s.Require().NoError(err)

	// The connection is kept alive, and Close must not wait for the client.
	s.NoError(s.server.Close())

	_, err = c.RoundTrip(newRequest(semantic.MethodGet, nil))
	s.Error(err)
	c.Close()
}
