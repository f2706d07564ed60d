package wallet

import "fmt"

// ConnectionStatus follows the lifecycle of a wallet connection.
type ConnectionStatus int

const (
	Initializing ConnectionStatus = iota
	AttemptingAutoConnection
	ReadyForConnection
	Connecting
	Connected
	Resetting
	Errored
)

var statusNames = [...]string{
	Initializing:             "Initializing",
	AttemptingAutoConnection: "AttemptingAutoConnection",
	ReadyForConnection:       "ReadyForConnection",
	Connecting:               "Connecting",
	Connected:                "Connected",
	Resetting:                "Resetting",
	Errored:                  "Errored",
}

func (s ConnectionStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("ConnectionStatus(%d)", int(s))
	}
	return statusNames[s]
}

func (s ConnectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Busy reports whether a connection change is in progress.
func (s ConnectionStatus) Busy() bool {
	switch s {
	case Initializing, AttemptingAutoConnection, Connecting, Resetting:
		return true
	}
	return false
}
