package discover

import "github.com/muurk/mdns/internal/mdnserr"

// Error is the error type returned by discovery and resolution.
type Error = mdnserr.Error

// Kind classifies an Error.
type Kind = mdnserr.Kind

const (
	KindIO      = mdnserr.KindIO
	KindDecode  = mdnserr.KindDecode
	KindTimeout = mdnserr.KindTimeout
	KindConfig  = mdnserr.KindConfig
	KindClosed  = mdnserr.KindClosed
)

// Sentinels for errors.Is.
var (
	ErrIO      = mdnserr.ErrIO
	ErrDecode  = mdnserr.ErrDecode
	ErrTimeout = mdnserr.ErrTimeout
	ErrConfig  = mdnserr.ErrConfig
	ErrClosed  = mdnserr.ErrClosed
)
