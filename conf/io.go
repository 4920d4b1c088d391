// Configuration loading
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
	"gopkg.in/ini.v1"
)

// Load reads an INI file into CONF.  Only known keys are applied;
// anything else is ignored.  A missing or unreadable file is the
// caller's problem to report, the record is left untouched then.
func (c *Conf) Load(path string) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		// Values like ip=0.0.0.0 carry no quotes.
		IgnoreInlineComment: false,
	}, path)
	if err != nil {
		return err
	}

	sec := f.Section(ini.DefaultSection)
	if sec.HasKey("ip") {
		c.IP = sec.Key("ip").String()
	}
	if sec.HasKey("port") {
		c.Port = sec.Key("port").MustInt(0)
	}
	if sec.HasKey("max_clients") {
		c.MaxClients = sec.Key("max_clients").MustInt(0)
	}
	if sec.HasKey("max_rooms") {
		c.MaxRooms = sec.Key("max_rooms").MustInt(0)
	}
	if sec.HasKey("http_port") {
		c.HTTPPort = sec.Key("http_port").MustInt(0)
	}
	return nil
}
