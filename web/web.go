// Debug web server
//
// Copyright (c) 2025
//
// This file is part of go-sedma.
//
// go-sedma is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-sedma is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-sedma. If not, see
// <http://www.gnu.org/licenses/>

// Package web exposes the optional HTTP side of the server: a
// Prometheus metrics endpoint and a websocket transport that speaks
// the same line protocol as the TCP port.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	sedma "go-sedma"
	"go-sedma/conf"
	"go-sedma/proto"
)

type web struct {
	conf    *conf.Conf
	handler sedma.Handler
	mux     *http.ServeMux
	srv     *http.Server
}

func (s *web) makeClient(rwc io.ReadWriteCloser, addr string) *proto.Client {
	return proto.MakeClient(rwc, addr, s.conf, s.handler)
}

func (s *web) Start() {
	s.mux = http.NewServeMux()
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.upgrader())
	s.mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /")
	})

	addr := fmt.Sprintf(":%d", s.conf.HTTPPort)
	s.conf.Web.Infof("Listening via HTTP on %s", addr)

	s.srv = &http.Server{Addr: addr, Handler: s.mux}
	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		s.conf.Web.Errorf("HTTP server: %s", err)
	}
}

func (s *web) Shutdown() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.srv.Shutdown(ctx)
}

func (*web) String() string { return "Web Server" }

// Prepare registers the web server when a HTTP port is configured.
func Prepare(c *conf.Conf, h sedma.Handler) {
	if c.HTTPPort == 0 {
		return
	}
	c.Register(&web{conf: c, handler: h})
}
