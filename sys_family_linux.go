//go:build linux

package pcap

import "golang.org/x/sys/unix"

// nativeFamily maps the backend's symbolic address families to the host's.
// Linux has no AF_LINK; AF_PACKET is its link-layer equivalent.
func nativeFamily(family int) int {
	if family == afLink {
		return unix.AF_PACKET
	}
	return unix.AF_INET
}
