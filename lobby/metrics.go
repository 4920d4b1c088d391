// Prometheus metrics
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

package lobby

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedma_connections_total",
			Help: "TCP and websocket connections accepted",
		},
	)
	linesOutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedma_lines_out_total",
			Help: "Protocol lines written to clients",
		},
	)
	protoErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedma_proto_errors_total",
			Help: "Lines rejected by the protocol parser",
		},
	)
	loginsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedma_logins_total",
			Help: "Successful LOGIN requests",
		},
	)
	resumesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedma_resumes_total",
			Help: "Successful RESUME requests",
		},
	)
	gamesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedma_games_total",
			Help: "Games started",
		},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sedma_commands_total",
			Help: "Requests dispatched, by command",
		},
		[]string{"command"},
	)
	slotsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sedma_client_slots",
			Help: "Occupied client slots, online or offline",
		},
	)
	roomsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sedma_rooms",
			Help: "Rooms currently allocated",
		},
	)
	gamesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sedma_games_running",
			Help: "Games currently in progress",
		},
	)
)

func init() {
	prometheus.MustRegister(connectionsTotal)
	prometheus.MustRegister(linesOutTotal)
	prometheus.MustRegister(protoErrorsTotal)
	prometheus.MustRegister(loginsTotal)
	prometheus.MustRegister(resumesTotal)
	prometheus.MustRegister(gamesTotal)
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(slotsGauge)
	prometheus.MustRegister(roomsGauge)
	prometheus.MustRegister(gamesGauge)
}

// knownCommands keeps client-chosen strings out of the label set.
var knownCommands = map[string]bool{
	"LOGIN": true, "RESUME": true, "LOGOUT": true, "PING": true,
	"LIST_ROOMS": true, "CREATE_ROOM": true, "JOIN_ROOM": true,
	"LEAVE_ROOM": true, "START_GAME": true, "PLAY": true, "DRAW": true,
}

func countCommand(cmd string) {
	if !knownCommands[cmd] {
		cmd = "unknown"
	}
	commandsTotal.WithLabelValues(cmd).Inc()
}
