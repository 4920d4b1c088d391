// Operator console
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

package main

import (
	"bufio"
	"os"
	"strings"

	"go-sedma/conf"
)

// console watches stdin for a quit command.  A closed stdin also
// stops the server, so piping works as expected.
type console struct {
	conf *conf.Conf
}

func (c *console) Start() {
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		switch strings.TrimSpace(in.Text()) {
		case "quit", "exit", "q":
			c.conf.RequestShutdown()
			return
		}
	}
	c.conf.RequestShutdown()
}

func (*console) Shutdown() {}

func (*console) String() string { return "Operator console" }
