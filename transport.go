/*  flutbot - Pixelflut image flooding client
    Copyright (C) 2019  David Vogel

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.  */

package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// One bidirectional command stream to a pixelflut server. Every worker owns
// exactly one transport for its lifetime; transports are never shared.
type transport interface {
	Write(p []byte) error
	ReadLine() (string, error)
	Close() error
}

// Dials a fresh transport. Workers get handed one of these instead of a
// process-wide server address.
type dialFunc func() (transport, error)

type transportType struct {
	Name string

	FunctionDial func(address string) (transport, error)
}

var transportTypes = map[string]transportType{
	"tcp": {Name: "Plain TCP", FunctionDial: dialTCP},
	"ws":  {Name: "WebSocket bridge", FunctionDial: dialWS},
}

// Returns a dialer for the given transport name and server address.
func newDialer(transportName, address string) (dialFunc, error) {
	tt, ok := transportTypes[transportName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transport %q", errConfig, transportName)
	}

	return func() (transport, error) {
		return tt.FunctionDial(address)
	}, nil
}

type tcpTransport struct {
	Conn   net.Conn
	Reader *bufio.Reader
}

func dialTCP(address string) (transport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to %v: %v", errConnection, address, err)
	}

	return &tcpTransport{
		Conn:   conn,
		Reader: bufio.NewReader(conn),
	}, nil
}

// Writes the whole buffer, retrying the remaining bytes after a partial write.
func (t *tcpTransport) Write(p []byte) error {
	for len(p) > 0 {
		n, err := t.Conn.Write(p)
		if err != nil {
			return fmt.Errorf("%w: write failed: %v", errConnection, err)
		}
		p = p[n:]
	}
	return nil
}

func (t *tcpTransport) ReadLine() (string, error) {
	line, err := t.Reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: can't read line: %v", errConnection, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *tcpTransport) Close() error {
	return t.Conn.Close()
}

// Transport for servers that expose the pixelflut protocol over a websocket
// bridge. Each write becomes one text message, replies arrive as messages.
type wsTransport struct {
	Conn *websocket.Conn
}

func dialWS(address string) (transport, error) {
	u := address
	if !strings.Contains(u, "://") {
		u = "ws://" + u
	}

	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to websocket server %v: %v", errConnection, u, err)
	}

	return &wsTransport{Conn: c}, nil
}

func (t *wsTransport) Write(p []byte) error {
	if err := t.Conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return fmt.Errorf("%w: websocket write failed: %v", errConnection, err)
	}
	return nil
}

func (t *wsTransport) ReadLine() (string, error) {
	_, message, err := t.Conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("%w: websocket read failed: %v", errConnection, err)
	}
	return strings.TrimRight(string(message), "\r\n"), nil
}

func (t *wsTransport) Close() error {
	t.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.Conn.Close()
}
