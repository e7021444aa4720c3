//go:build darwin || freebsd

package pcap

import "golang.org/x/sys/unix"

// nativeFamily maps the backend's symbolic address families to the host's.
func nativeFamily(family int) int {
	if family == afLink {
		return unix.AF_LINK
	}
	return unix.AF_INET
}
