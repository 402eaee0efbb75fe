package server

import (
	"bytes"
	"sync"

	"github.com/ImBIOS/may-minihttp/http"
	"github.com/ImBIOS/may-minihttp/lib/bytebuf"
	iolib "github.com/ImBIOS/may-minihttp/lib/io"
	"github.com/ImBIOS/may-minihttp/lib/seq"
	"github.com/ImBIOS/may-minihttp/transport"

	"github.com/pkg/errors"
)

// servePipeline is the pipelined loop. It owns the read half and the
// accumulator exclusively and never blocks on handler completion: each
// decoded request is handed to its own goroutine together with a
// sequencer ticket taken at decode time. The ticket decides when that
// goroutine may touch the shared write half, so responses hit the wire
// in decode order no matter how handler latencies interleave.
func (c *conn) servePipeline() error {
	acc := bytebuf.NewAccumulator(c.readBufOpts().unpack())
	sequencer := seq.New()

	// Graceful drain: when the loop stops issuing tickets, requests
	// already in flight still complete and write in order.
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		request, n, err := c.dec.Decode(acc.Bytes())
		if err != nil {
			return errors.Wrap(err, "decoding request")
		}

		if request == nil {
			// Need more data.
			if err := c.fill(acc); err != nil {
				return err
			}
			continue
		}

		acc.Discard(n)

		// Issued synchronously here, so ticket order is decode order.
		ticket := sequencer.Next()

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.respond(request, ticket)
		}()
	}
}

// respond runs the handler, encodes into a private buffer, then writes
// once the ticket's turn comes.
func (c *conn) respond(request *http.Request, ticket seq.Ticket) {
	response := c.doHandle(request)

	rsp := bytes.NewBuffer(make([]byte, 0, responseBufCap))
	c.enc.Encode(response, rsp)

	ticket.Acquire()
	defer ticket.Release()

	if _, err := iolib.WriteFull(c.con, rsp.Bytes()); err != nil {
		// No retry. Later tickets will observe the same broken
		// connection and give up likewise.
		if !transport.IsBenignClose(err) {
			c.logger.Error("writing pipelined response", "error", err)
		}
	}
}
