package database

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// ConnectNATS opens a connection to the NATS server used for cross-node
// notification fan-out. An empty address disables the broker and returns nil.
func ConnectNATS(address, name string) (*nats.Conn, error) {
	if address == "" {
		return nil, nil
	}

	conn, err := nats.Connect(address, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}
