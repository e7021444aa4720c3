//go:build linux || darwin || freebsd

package pcap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// hostSyscalls is the implementation OpenLive uses.
var hostSyscalls syscalls = sysUnix{}

// sysUnix talks to the OS directly. The scratch record in sys.go mirrors
// the platform's ifreq layout, so it is handed to ioctl as-is.
type sysUnix struct{}

func (sysUnix) DgramSocket(family int) (int, error) {
	return unix.Socket(nativeFamily(family), unix.SOCK_DGRAM, 0)
}

func (sysUnix) IoctlIfreq(fd int, op uintptr, ifr *ifreq) error {
	//nolint:staticcheck // unix.SYS_IOCTL is deprecated, but golang does not provide a better alternative
	// as of this writing for passing pointers
	_, _, errno := unix.RawSyscall(unix.SYS_IOCTL, uintptr(fd), op, uintptr(unsafe.Pointer(ifr)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (sysUnix) Recvfrom(fd int, buf []byte) (int, error) {
	// MSG_TRUNC makes an oversized datagram report its full length
	// instead of failing; the excess is discarded.
	n, _, err := unix.Recvfrom(fd, buf, unix.MSG_TRUNC)
	return n, err
}

func (sysUnix) Close(fd int) error {
	return unix.Close(fd)
}

func (sysUnix) SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

func (sysUnix) PlatformVersion() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	v := uts.Version[:]
	for i, c := range v {
		if c == 0 {
			v = v[:i]
			break
		}
	}
	return string(v)
}
