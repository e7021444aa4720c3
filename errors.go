package pcap

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrInterrupted reports that BreakLoop was called. It is a stop
	// request, not a failure; the handle remains usable.
	ErrInterrupted = errors.New("capture interrupted")

	// ErrPromiscNotSupported is returned by OpenLive together with a
	// usable handle when promiscuous mode was requested but the
	// interface refused to enable it. Capture proceeds without it.
	ErrPromiscNotSupported = errors.New("promiscuous mode not supported on this interface")

	// ErrInjectNotSupported is returned by Inject; this backend cannot
	// send packets.
	ErrInjectNotSupported = errors.New("sending packets isn't supported yet")

	// ErrNoPacket is returned by ReadPacketData on a non-blocking handle
	// when no packet was available.
	ErrNoPacket = errors.New("no packet available")
)

// ValidationError rejects a device name before any resource is allocated.
type ValidationError struct {
	Device string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("interface %q: %s", e.Device, e.Reason)
}

// DeviceNotFoundError reports that the named interface does not exist.
// Raised when the statistics probe at activation fails with EINVAL, the
// most reliable non-existence signal the control interface offers; callers
// can try another backend for the same name.
type DeviceNotFoundError struct {
	Device string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("no such device %q", e.Device)
}

// errnoIs matches err against an errno regardless of how many layers of
// wrapping the syscalls implementation added.
func errnoIs(err error, target unix.Errno) bool {
	return errors.Is(err, target)
}

// isNoData reports whether a receive failed only because the socket is
// non-blocking and nothing was queued.
func isNoData(err error) bool {
	return errnoIs(err, unix.EAGAIN) || errnoIs(err, unix.EWOULDBLOCK)
}

// isInterruptedSyscall reports a benign signal interruption; the receive
// loop resumes transparently on these.
func isInterruptedSyscall(err error) bool {
	return errnoIs(err, unix.EINTR)
}

// isInvalidArgument matches the errno the statistics request fails with
// for a name that is not a device.
func isInvalidArgument(err error) bool {
	return errnoIs(err, unix.EINVAL)
}
