// Entry point
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
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"go-sedma/conf"
	"go-sedma/lobby"
	"go-sedma/proto"
	"go-sedma/web"
)

// CLI flags override the configuration file, which overrides the
// built-in defaults.  Pointers distinguish "not given" from a zero.
type CLI struct {
	Config     string  `short:"c" help:"Configuration file (INI)." type:"path"`
	IP         *string `help:"Listen address."`
	Port       *int    `help:"TCP port for the game protocol."`
	MaxClients *int    `name:"max-clients" help:"Client slot table size."`
	MaxRooms   *int    `name:"max-rooms" help:"Room table size."`
	HTTPPort   *int    `name:"http-port" help:"Debug HTTP port (0 disables)."`
	Debug      bool    `short:"v" help:"Enable debug logging."`
}

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("sedma-server"),
		kong.Description("Multi-room Sedma card game server."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if _, err := parser.Parse(os.Args[1:]); err != nil {
		parser.Errorf("%s", err)
		os.Exit(2)
	}

	config := conf.Default()

	if cli.Config != "" {
		if err := config.Load(cli.Config); err != nil {
			fmt.Fprintf(os.Stderr,
				"Warning: cannot load config file %q, using defaults\n",
				cli.Config)
		}
	}

	if cli.IP != nil {
		config.IP = *cli.IP
	}
	if cli.Port != nil {
		config.Port = *cli.Port
	}
	if cli.MaxClients != nil {
		config.MaxClients = *cli.MaxClients
	}
	if cli.MaxRooms != nil {
		config.MaxRooms = *cli.MaxRooms
	}
	if cli.HTTPPort != nil {
		config.HTTPPort = *cli.HTTPPort
	}
	config.Debug = config.Debug || cli.Debug

	config.InitLogging(os.Stderr)

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}

	// The coordinator behind every transport
	coord := lobby.New(config)
	config.Register(coord)

	// Bind the game port before committing to anything else
	listener := proto.MakeListener(config, coord)
	if err := listener.Bind(); err != nil {
		fmt.Fprintf(os.Stderr, "Listen failed: %s\n", err)
		os.Exit(1)
	}
	config.Register(listener)

	// Enable the debug web interface
	web.Prepare(config, coord)

	// Accept quit commands on stdin
	config.Register(&console{config})

	config.Log.Infof("Listening on %s:%d", config.IP, config.Port)
	config.Log.Infof("Type 'quit' or 'exit' to stop")

	config.Start()
}
