package netstatus

import (
	"errors"
	"net"
	"testing"
)

func TestProbeOnline(t *testing.T) {
	tests := []struct {
		name   string
		ifaces []net.Interface
		err    error
		want   bool
	}{
		{
			name:   "loopback only",
			ifaces: []net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}},
			want:   false,
		},
		{
			name: "ethernet up",
			ifaces: []net.Interface{
				{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
				{Name: "eth0", Flags: net.FlagUp | net.FlagBroadcast},
			},
			want: true,
		},
		{
			name:   "ethernet down",
			ifaces: []net.Interface{{Name: "eth0", Flags: net.FlagBroadcast}},
			want:   false,
		},
		{
			name: "lookup error",
			err:  errors.New("no netlink"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Probe{Interfaces: func() ([]net.Interface, error) { return tt.ifaces, tt.err }}
			if got := p.Online(); got != tt.want {
				t.Errorf("Online() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	var c Checker = Static(false)
	if c.Online() {
		t.Error("Static(false).Online() = true")
	}
}
