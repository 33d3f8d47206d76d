package domain

import "errors"

var (
	ErrInvalidQuery           = errors.New("invalid query")
	ErrUpstreamTimeout        = errors.New("upstream timed out")
	ErrUpstreamThrottled      = errors.New("upstream rate limited")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
	ErrMalformedResponse      = errors.New("malformed upstream response")
)
