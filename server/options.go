package server

import (
	"github.com/ImBIOS/may-minihttp/http"
)

type Options struct {
	Decode http.DecodeOptions
	Encode http.EncodeOptions

	Pipeline PipelineOptions

	// ReadBuffer overrides the connection read-accumulator sizing.
	// Zero fields fall back to the per-mode defaults.
	ReadBuffer BufferOptions
}

type PipelineOptions struct {
	// Enabled switches connections to the pipelined loop: requests are
	// handled concurrently and responses are written back in decode order.
	Enabled bool
}

type BufferOptions struct {
	InitialCap uint
	// LowWater is the spare-capacity threshold under which the buffer
	// grows by Growth before the next read.
	LowWater uint
	Growth   uint
}

// The sequential loop keeps a small buffer; pipelined connections are
// expected to carry bursts of frames, so they start larger.
var (
	serveReadBuffer    = BufferOptions{InitialCap: 512, LowWater: 256, Growth: 512}
	pipelineReadBuffer = BufferOptions{InitialCap: 4096, LowWater: 1024, Growth: 4096}
)

const responseBufCap = 512

func (o BufferOptions) withDefaults(def BufferOptions) BufferOptions {
	if o.InitialCap == 0 {
		o.InitialCap = def.InitialCap
	}
	if o.LowWater == 0 {
		o.LowWater = def.LowWater
	}
	if o.Growth == 0 {
		o.Growth = def.Growth
	}
	return o
}
