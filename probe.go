package pcap

import (
	"fmt"
	"net"
	"strings"
)

// ConnectionStatus is one interface's link state as reported by device
// enumeration.
type ConnectionStatus int

const (
	ConnectionStatusUnknown ConnectionStatus = iota
	ConnectionStatusConnected
	ConnectionStatusDisconnected
	// ConnectionStatusNotApplicable marks interfaces that have no
	// meaningful link state, such as loopback and tunnels.
	ConnectionStatusNotApplicable
)

// knownBrokenVersions lists build version prefixes on which the loopback
// device accepts a capture but never delivers a packet. Compile-time
// version checks don't help here because binaries routinely run on a
// different build than they were compiled on, so the running version is
// checked instead. The well-known 64-bit releases below (with or without
// updates) are affected; the list is a package variable so it can be
// extended, or emptied on a stack where loopback capture works.
var knownBrokenVersions = []string{
	"hrev56578", // R1/beta4
	"hrev55182", // R1/beta3
	"hrev54154", // R1/beta2
	"hrev52295", // R1/beta1
	"hrev44702", // R1/alpha4
}

// canBeBound reports whether a capture on the named device can work on
// the given build version. It must be consulted before any socket is
// opened for the device.
func canBeBound(device, version string) bool {
	if device != "loop" {
		return true
	}
	for _, bad := range knownBrokenVersions {
		if strings.HasPrefix(version, bad) {
			return false
		}
	}
	return true
}

// Interface is one entry of a device list.
type Interface struct {
	Name             string
	Loopback         bool
	ConnectionStatus ConnectionStatus
}

// connectionStatus answers an enumeration query for one named interface
// without an active capture. Loopback interfaces and tunnels have no link
// state to report; a tun-mode tunnel is identifiable by its interface
// type, but tap-mode tunnels share the Ethernet type with real NICs, so
// the name prefix is the only usable signal for either. Everything else
// gets a short-lived control socket to read the link flag from.
func connectionStatus(name string, loopback bool, sys syscalls) (ConnectionStatus, error) {
	if err := validateIfname(name); err != nil {
		return ConnectionStatusUnknown, err
	}
	if loopback || strings.HasPrefix(name, "tun") || strings.HasPrefix(name, "tap") {
		return ConnectionStatusNotApplicable, nil
	}

	fd, err := sys.DgramSocket(afLink)
	if err != nil {
		return ConnectionStatusUnknown, fmt.Errorf("socket: %v", err)
	}
	var ifr ifreq
	ifr.setName(name)
	if err := sys.IoctlIfreq(fd, opGetFlags, &ifr); err != nil {
		_ = sys.Close(fd)
		return ConnectionStatusUnknown, fmt.Errorf("SIOCGIFFLAGS: %v", err)
	}
	_ = sys.Close(fd)

	if ifr.Flags&ifFlagLink != 0 {
		return ConnectionStatusConnected, nil
	}
	return ConnectionStatusDisconnected, nil
}

// FindAllDevs lists the interfaces a capture can be opened on, with their
// connection status. Devices that cannot be bound on the running build
// are omitted.
func FindAllDevs() ([]Interface, error) {
	return findAllDevs(hostSyscalls)
}

func findAllDevs(sys syscalls) ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %v", err)
	}
	version := sys.PlatformVersion()
	devs := make([]Interface, 0, len(ifaces))
	for _, in := range ifaces {
		if !canBeBound(in.Name, version) {
			continue
		}
		loopback := in.Flags&net.FlagLoopback != 0
		status, err := connectionStatus(in.Name, loopback, sys)
		if err != nil {
			return nil, err
		}
		devs = append(devs, Interface{
			Name:             in.Name,
			Loopback:         loopback,
			ConnectionStatus: status,
		})
	}
	return devs, nil
}
