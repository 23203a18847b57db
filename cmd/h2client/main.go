// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

/*
The h2client command drives streammanager.Manager against a single
h2-prior-knowledge server: it fires a configurable number of
concurrent GET requests through the manager and reports each
response's status plus an overall success count.

Usage:
  $ h2client [flags] <host:port>

This is not an interactive console: there is no TLS/ALPN negotiation
and no terminal REPL, just a fixed run exercising streammanager end
to end over h2 prior knowledge.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"h2stack/conn"
	"h2stack/streammanager"
)

var (
	flagRequests      = flag.Int("requests", 10, "number of concurrent GET requests to fire")
	flagMaxConns      = flag.Int("max-conns", 4, "maximum connections the manager may open")
	flagPath          = flag.String("path", "/", "request path")
	flagTimeout       = flag.Duration("timeout", 10*time.Second, "overall timeout for the run")
	flagAssumeMaxConc = flag.Uint("assume-max-concurrent-streams", 100, "assumed per-connection stream cap before SETTINGS arrives")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: h2client [flags] <host:port>\n\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
	}
	hostport := flag.Arg(0)
	host, port, err := splitHostPort(hostport)
	if err != nil {
		log.Fatalf("h2client: %v", err)
	}

	m := streammanager.New(streammanager.Options{
		Host:                             host,
		Port:                             port,
		MaxConnections:                   *flagMaxConns,
		InitialAssumeMaxConcurrentStream: uint32(*flagAssumeMaxConc),
		Logf:                             log.Printf,
	})
	defer m.Release()

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]error, *flagRequests)
	for i := 0; i < *flagRequests; i++ {
		wg.Add(1)
		i := i
		m.AcquireStream(ctx, conn.RequestParams{
			Method:    "GET",
			Scheme:    "http",
			Authority: hostport,
			Path:      *flagPath,
		}, func(s *conn.Stream, err error) {
			defer wg.Done()
			if err != nil {
				results[i] = err
				return
			}
			resp, err := s.Response(ctx)
			if err != nil {
				results[i] = err
				return
			}
			log.Printf("request %d: %d", i, resp.StatusCode)
		})
	}
	wg.Wait()

	var failed int
	for i, err := range results {
		if err != nil {
			failed++
			log.Printf("request %d failed: %v", i, err)
		}
	}
	log.Printf("%d/%d requests completed, %d failed", *flagRequests-failed, *flagRequests, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
