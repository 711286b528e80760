/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"
)

// ErrNetwork wraps every socket-level failure while sending a magic packet
var ErrNetwork = errors.New("network error")

// SenderOptions configures where magic packets are sent
type SenderOptions struct {
	// BroadcastAddress overrides the destination; defaults to 255.255.255.255
	// or to the directed broadcast of Interface when one is set.
	BroadcastAddress string
	// Port defaults to DefaultWOLPort
	Port int
	// Interface binds the socket to the first IPv4 address of this interface
	Interface string
}

// Sender emits magic packets as single UDP broadcast datagrams
type Sender struct {
	local  *net.UDPAddr
	target *net.UDPAddr
	log    logr.Logger
}

// NewSender creates a new WOL sender
func NewSender(opts SenderOptions, log logr.Logger) (*Sender, error) {
	port := opts.Port
	if port <= 0 {
		port = DefaultWOLPort
	}
	if port > 65535 {
		return nil, fmt.Errorf("port %d out of range (must be 1-65535)", port)
	}

	s := &Sender{log: log}
	targetIP := net.IPv4bcast

	if opts.Interface != "" {
		iface, err := net.InterfaceByName(opts.Interface)
		if err != nil {
			return nil, fmt.Errorf("failed to get interface %s: %w", opts.Interface, err)
		}
		local, bcast, err := interfaceBroadcast(*iface)
		if err != nil {
			return nil, err
		}
		s.local = &net.UDPAddr{IP: local}
		targetIP = bcast
	}

	if opts.BroadcastAddress != "" {
		ip := net.ParseIP(opts.BroadcastAddress)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("invalid broadcast address %q", opts.BroadcastAddress)
		}
		targetIP = ip.To4()
	}

	s.target = &net.UDPAddr{IP: targetIP, Port: port}
	return s, nil
}

// Target returns the destination address of every datagram
func (s *Sender) Target() string {
	return s.target.String()
}

// Broadcast sends packet exactly once. A nil error only means the datagram
// left the local stack.
func (s *Sender) Broadcast(ctx context.Context, packet MagicPacket) error {
	laddr := ":0"
	if s.local != nil {
		laddr = net.JoinHostPort(s.local.IP.String(), "0")
	}

	lc := net.ListenConfig{Control: enableBroadcast}
	conn, err := lc.ListenPacket(ctx, "udp4", laddr)
	if err != nil {
		ErrorsTotal.Inc()
		return fmt.Errorf("%w: failed to open UDP socket on %s: %w", ErrNetwork, laddr, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.log.Error(err, "Failed to close UDP socket")
		}
	}()

	n, err := conn.WriteTo(packet[:], s.target)
	if err != nil {
		ErrorsTotal.Inc()
		return fmt.Errorf("%w: failed to send to %s: %w", ErrNetwork, s.target, err)
	}
	if n != len(packet) {
		ErrorsTotal.Inc()
		return fmt.Errorf("%w: short write to %s (%d of %d bytes)", ErrNetwork, s.target, n, len(packet))
	}

	PacketsSentTotal.Inc()
	s.log.V(1).Info("Magic packet sent", "destination", s.target.String(), "size", n)
	return nil
}

// enableBroadcast sets SO_BROADCAST before the socket is bound
func enableBroadcast(network, address string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	if sockErr != nil {
		return fmt.Errorf("SO_BROADCAST: %w", sockErr)
	}
	return nil
}

// interfaceBroadcast returns the first IPv4 address of iface and the directed
// broadcast address of its subnet
func interfaceBroadcast(iface net.Interface) (net.IP, net.IP, error) {
	// Skip loopback or down
	if (iface.Flags&net.FlagLoopback) != 0 || (iface.Flags&net.FlagUp) == 0 {
		return nil, nil, fmt.Errorf("interface %s is down or loopback", iface.Name)
	}
	if (iface.Flags & net.FlagBroadcast) == 0 {
		return nil, nil, fmt.Errorf("interface %s does not support broadcast", iface.Name)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get addresses of %s: %w", iface.Name, err)
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		local, bcast, ok := directedBroadcast(ipnet)
		if ok {
			return local, bcast, nil
		}
	}

	return nil, nil, fmt.Errorf("interface %s has no IPv4 address", iface.Name)
}

func directedBroadcast(ipnet *net.IPNet) (net.IP, net.IP, bool) {
	ip := ipnet.IP.To4()
	if ip == nil {
		return nil, nil, false
	}
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil, nil, false
	}

	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = ip[i] | ^mask[i]
	}
	return ip, bcast, true
}

