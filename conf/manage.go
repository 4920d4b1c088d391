// Service management
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

package conf

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// A Manager is a subsystem with its own lifecycle: the TCP listener,
// the lobby ticker, the debug web server.
type Manager interface {
	fmt.Stringer
	Start()
	Shutdown()
}

// Register adds a manager to be started by Start.  Registering after
// Start is a programming error.
func (c *Conf) Register(m Manager) {
	if c.run {
		panic(fmt.Sprintf("late register: %v", m))
	}
	c.man = append(c.man, m)
}

// RequestShutdown asks the running server to stop.  Safe to call more
// than once.
func (c *Conf) RequestShutdown() {
	c.stopOnce.Do(func() { close(c.shutdown) })
}

// Start launches every registered manager and blocks until a shutdown
// is requested by signal or by RequestShutdown.  Teardown happens
// here, on the caller's goroutine, never inside a signal handler.
func (c *Conf) Start() {
	for _, m := range c.man {
		c.Log.Debugf("Starting %s", m)
		go m.Start()
	}
	c.run = true

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt, syscall.SIGTERM)
	select {
	case <-intr:
		c.Log.Infof("Caught interrupt")
	case <-c.shutdown:
		c.Log.Infof("Requested shutdown")
	}

	for _, m := range c.man {
		c.Log.Debugf("Shutting %s down", m)
		m.Shutdown()
	}
	c.Log.Infof("Shutting down")
}
