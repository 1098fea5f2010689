package stream

import (
	"fmt"
	"net"
)

// UDPSink sends events as JSON datagrams to a fixed address.
//
// The connection is "connected UDP": Dial resolves the target once and
// Write needs no per-packet addressing. Nothing is ever read back.
type UDPSink struct {
	conn net.Conn
	addr string
}

// NewUDPSink dials the target address (host:port).
func NewUDPSink(addr string) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialling stream target %s: %w", addr, err)
	}
	return &UDPSink{conn: conn, addr: addr}, nil
}

// Send encodes and transmits one event. A failed write is returned for
// logging; the caller continues regardless.
func (s *UDPSink) Send(ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encoding stream event: %w", err)
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("sending stream event: %w", err)
	}
	return nil
}

// Close releases the socket.
func (s *UDPSink) Close() error {
	return s.conn.Close()
}

// Addr returns the configured target address.
func (s *UDPSink) Addr() string {
	return s.addr
}
