package tcp

import (
	"context"
	"testing"
	"time"

	"hunk/transport"
	"hunk/transport/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TCPConnTestSuite struct {
	test.ConnTestSuite
}

func TestTCPConnTestSuite(t *testing.T) {
	suite.Run(t, new(TCPConnTestSuite))
}

func (s *TCPConnTestSuite) SetupTest() {
	s.ConnTestSuite.SetupTest()

	l, err := Listen("127.0.0.1:0")
	s.Require().NoError(err)
	defer l.Close()

	accepted := make(chan transport.Conn, 1)
	go func() {
		c, err := l.Accept(context.Background())
		s.NoError(err)
		accepted <- c
	}()

	var d Dialer
	s.C1, err = d.Dial(context.Background(), l.Addr())
	s.Require().NoError(err)
	s.C2 = <-accepted
	s.Require().NotNil(s.C2)
}

func TestListenerAcceptCanceled(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c, err := l.Accept(ctx)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListenerClosed(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = l.Accept(context.Background())
	assert.ErrorIs(t, err, transport.ErrConnListenerClosed)
	assert.ErrorIs(t, l.Close(), transport.ErrConnListenerClosed)
}

func TestListenAddrInUse(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	_, err = Listen(l.Addr().String())
	assert.ErrorIs(t, err, transport.ErrAddrAlreadyInUse)
}

func TestDialRefused(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr()
	require.NoError(t, l.Close())

	var d Dialer
	_, err = d.Dial(context.Background(), addr)
	assert.ErrorIs(t, err, transport.ErrConnRefused)
}
