package pipe

import (
	"context"
	"testing"

	"github.com/ImBIOS/may-minihttp/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type PipeTransportTestSuite struct {
	suite.Suite

	transport *PipeTransport
	addr      Addr
}

func TestPipeTransportTestSuite(t *testing.T) {
	suite.Run(t, new(PipeTransportTestSuite))
}

func (s *PipeTransportTestSuite) SetupTest() {
	s.transport = NewPipeTransport(clock.NewMock())
	s.addr = Addr{Name: "listener"}
}

func (s *PipeTransportTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

func (s *PipeTransportTestSuite) TestListenDial() {
	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)

	accepted := make(chan transport.Conn, 1)
	go func() {
		conn, err := lis.Accept(context.Background())
		s.Require().NoError(err)
		accepted <- conn
	}()

	dialed, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)

	conn := <-accepted
	s.Equal(dialed.RemoteAddr(), conn.LocalAddr())

	s.NoError(dialed.Close())
	s.NoError(lis.Close())
}

func (s *PipeTransportTestSuite) TestListenTwice() {
	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)

	_, err = s.transport.Listen(s.addr)
	s.ErrorIs(err, transport.ErrAddrAlreadyInUse)

	s.NoError(lis.Close())
}

func (s *PipeTransportTestSuite) TestDialNoListener() {
	_, err := s.transport.Dial(context.Background(), s.addr)
	s.ErrorIs(err, transport.ErrNetUnreachable)
}

func (s *PipeTransportTestSuite) TestDialClosedListener() {
	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)
	s.Require().NoError(lis.Close())

	_, err = s.transport.Dial(context.Background(), s.addr)
	// The addr was released on close.
	s.ErrorIs(err, transport.ErrNetUnreachable)
}

func (s *PipeTransportTestSuite) TestAcceptCanceled() {
	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = lis.Accept(ctx)
	s.ErrorIs(err, context.Canceled)

	s.NoError(lis.Close())
}

func (s *PipeTransportTestSuite) TestAcceptAfterClose() {
	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)
	s.Require().NoError(lis.Close())

	_, err = lis.Accept(context.Background())
	s.ErrorIs(err, transport.ErrConnListenerClosed)

	s.ErrorIs(lis.Close(), transport.ErrConnListenerClosed)
}
