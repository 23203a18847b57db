// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Package proxystrategy defines the hook surface a proxy handshake
// exposes to pluggable auth strategies: a plain struct of optional
// functions, composed by a Chain that tries each in order. No
// concrete strategy (basic auth, NTLM/Kerberos) is implemented here;
// those belong to the caller supplying
// streammanager.Options.ProxyFn.
package proxystrategy

import "net/http"

// Strategy is a capability set: each field is an optional hook a
// caller fills in to participate in one part of establishing a
// connection through a proxy. A nil field means "this strategy has
// nothing to say here"; the chain just moves on to the next one.
type Strategy struct {
	// TransformConnect is given the CONNECT request about to be sent
	// to the proxy and may add headers (e.g. Proxy-Authorization) or
	// otherwise rewrite it in place.
	TransformConnect func(req *http.Request) error

	// OnStatus is called with the proxy's response status to the
	// CONNECT request. Returning a non-nil error aborts the
	// connection attempt.
	OnStatus func(statusCode int) error

	// OnHeaders is called once per response header block from the
	// proxy while a CONNECT handshake is in flight (e.g. to harvest a
	// challenge header for a multi-round strategy like NTLM).
	OnHeaders func(header http.Header) error

	// OnBody is called with any response body bytes the proxy sends
	// back during the CONNECT handshake; most strategies ignore it.
	OnBody func(p []byte) error
}

// Chain tries each strategy's hook of a given kind in order, stopping
// at the first one that returns a non-nil error. Several independent
// capability sets (e.g. one supplying auth, another just logging) can
// be combined without either knowing about the other.
type Chain []Strategy

func (c Chain) TransformConnect(req *http.Request) error {
	for _, s := range c {
		if s.TransformConnect == nil {
			continue
		}
		if err := s.TransformConnect(req); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) OnStatus(statusCode int) error {
	for _, s := range c {
		if s.OnStatus == nil {
			continue
		}
		if err := s.OnStatus(statusCode); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) OnHeaders(header http.Header) error {
	for _, s := range c {
		if s.OnHeaders == nil {
			continue
		}
		if err := s.OnHeaders(header); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) OnBody(p []byte) error {
	for _, s := range c {
		if s.OnBody == nil {
			continue
		}
		if err := s.OnBody(p); err != nil {
			return err
		}
	}
	return nil
}
