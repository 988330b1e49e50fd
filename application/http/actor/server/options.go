package server

import (
	"time"

	"hunk/application/http"
	"hunk/application/http/semantic"
	"hunk/application/http/transfer"
)

type Options struct {
	Serve ServeOptions

	ExtraTransferCoders []transfer.Coder
}

type ServeOptions struct {
	Encode http.EncodeOptions
	Decode http.DecodeOptions

	Parse semantic.ParseRequestOptions

	Timeout TimeoutOptions

	// MaxContentLen rejects requests declaring a longer body. Zero means no limit.
	MaxContentLen uint
}

type TimeoutOptions struct {
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultOptions is a reasonable configuration for serving untrusted clients.
var DefaultOptions = Options{
	Serve: ServeOptions{
		Encode: http.DefaultEncodeOptions,
		Decode: http.DefaultDecodeOptions,
		Parse: semantic.ParseRequestOptions{
			ParseMessageOptions: semantic.ParseMessageOptions{
				RequiredFields: []string{"Host"},
			},
			MaxURILen: 8000,
		},
		Timeout: TimeoutOptions{
			IdleTimeout: time.Minute,
			ReadTimeout: 30 * time.Second,
		},
		MaxContentLen: 1 << 20,
	},
}
