// Package netstatus reports whether the host currently has a usable network
// connection. The session uses it to tell "offline" apart from other
// transport failures.
package netstatus

import (
	"net"
)

// Checker reports host connectivity.
type Checker interface {
	Online() bool
}

// Probe inspects the host's network interfaces.
type Probe struct {
	// Interfaces overrides net.Interfaces for tests.
	Interfaces func() ([]net.Interface, error)
}

// Online reports whether any non-loopback interface is up. Lookup errors
// count as online so a broken probe never masks the real failure.
func (p Probe) Online() bool {
	list := p.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return true
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		return true
	}
	return false
}

// Static is a Checker with a fixed answer.
type Static bool

func (s Static) Online() bool { return bool(s) }
