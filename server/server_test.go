package server

import (
	"context"
	"testing"
	"time"

	"github.com/ImBIOS/may-minihttp/http"
	"github.com/ImBIOS/may-minihttp/transport"
	"github.com/ImBIOS/may-minihttp/transport/pipe"
	"github.com/ImBIOS/may-minihttp/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func echoTarget(request *http.Request) (*http.Response, error) {
	return &http.Response{Body: []byte(request.Target)}, nil
}

type ServerTestSuite struct {
	suite.Suite

	clock  *clock.Mock
	pt     *pipe.PipeTransport
	logbuf *syncBuffer
	server *Server
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.pt = pipe.NewPipeTransport(s.clock)
	s.server = nil
}

func (s *ServerTestSuite) TearDownTest() {
	if s.server != nil {
		s.Require().NoError(s.server.Close())
	}
	goleak.VerifyNone(s.T())
}

func (s *ServerTestSuite) startServer(l transport.ConnListener) {
	logger, logbuf := newTestLogger()
	s.logbuf = logbuf

	s.server = New(l, logger, s.clock, echoTarget, Options{})
	s.server.Start()
}

func (s *ServerTestSuite) roundTrip(target string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	con, err := s.pt.Dial(ctx, pipe.Addr{Name: "server"})
	s.Require().NoError(err)
	defer con.Close()

	_, err = con.Write([]byte(request(target)))
	s.Require().NoError(err)

	r := &responseReader{c: con}
	response, err := r.next()
	s.Require().NoError(err)
	s.Equal(200, response.status())
	s.Equal(target, response.body)
}

func (s *ServerTestSuite) TestServesConnections() {
	listener, err := s.pt.Listen(pipe.Addr{Name: "server"})
	s.Require().NoError(err)

	s.startServer(listener)

	s.roundTrip("/first")
	s.roundTrip("/second")
}

// flakyListener fails its first accept and then delegates. The accept
// loop should log the failure and keep serving.
type flakyListener struct {
	transport.ConnListener
	failed bool
}

func (f *flakyListener) Accept(ctx context.Context) (transport.Conn, error) {
	if !f.failed {
		f.failed = true
		return nil, errors.New("transient accept failure")
	}
	return f.ConnListener.Accept(ctx)
}

func (s *ServerTestSuite) TestAcceptFailureDoesNotStopListening() {
	listener, err := s.pt.Listen(pipe.Addr{Name: "server"})
	s.Require().NoError(err)

	s.startServer(&flakyListener{ConnListener: listener})

	s.roundTrip("/after-failure")

	s.Contains(s.logbuf.String(), "unexpected error when accepting connection")
	s.Contains(s.logbuf.String(), "transient accept failure")
}

func (s *ServerTestSuite) TestCloseWaitsForConnections() {
	listener, err := s.pt.Listen(pipe.Addr{Name: "server"})
	s.Require().NoError(err)

	s.startServer(listener)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	con, err := s.pt.Dial(ctx, pipe.Addr{Name: "server"})
	s.Require().NoError(err)

	_, err = con.Write([]byte(request("/live")))
	s.Require().NoError(err)

	r := &responseReader{c: con}
	response, err := r.next()
	s.Require().NoError(err)
	s.Equal("/live", response.body)

	// The connection loop is still running; Close must wait for it.
	s.Require().NoError(con.Close())
	s.Require().NoError(s.server.Close())
	s.server = nil
}

func TestServerOverTCP(t *testing.T) {
	defer goleak.VerifyNone(t)

	listener, err := tcp.Listen("127.0.0.1:0")
	require.NoError(t, err)

	logger, _ := newTestLogger()
	server := New(listener, logger, clock.New(), echoTarget, Options{
		Pipeline: PipelineOptions{Enabled: true},
	})
	server.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var d tcp.Dialer
	con, err := d.Dial(ctx, listener.Addr())
	require.NoError(t, err)

	_, err = con.Write([]byte(request("/a") + request("/b")))
	require.NoError(t, err)

	r := &responseReader{c: con}
	for _, expected := range []string{"/a", "/b"} {
		response, err := r.next()
		require.NoError(t, err)
		require.Equal(t, expected, response.body)
	}

	require.NoError(t, con.Close())
	require.NoError(t, server.Close())
}

func TestListenAndServeBindFailure(t *testing.T) {
	_, err := ListenAndServe("127.0.0.1:-1", nil, clock.New(), echoTarget, Options{})
	require.Error(t, err)
}
