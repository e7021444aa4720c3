package pcap

import (
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/bpf"
)

// Stats are the counters for one handle.
type Stats struct {
	// Received counts frames that reached the filter stage, including
	// frames the filter later rejected.
	Received uint32
	// FilterDropped counts frames rejected by the attached filter.
	FilterDropped uint32
	// InterfaceDropped is the number of frames the interface dropped
	// before delivery since the handle was opened. It is the difference
	// of two 32-bit kernel counters and is not corrected for wraparound.
	InterfaceDropped uint32
}

// Handle is one open capture on one interface. It owns its receive buffer
// and both of its descriptors; the filter program is referenced, never
// owned. A Handle is driven by a single goroutine; see BreakLoop for the
// only cross-goroutine operation.
type Handle struct {
	sys    syscalls
	device string

	// fd receives captured frames; auxFd carries control requests.
	// They are independent and independently closable; -1 means closed.
	fd    int
	auxFd int

	// ifr is the scratch record shared by every control request this
	// handle issues; see the contract on the type.
	ifr ifreq

	buf      []byte
	snaplen  int32
	linkType uint32
	filter   *bpf.VM

	stats          Stats
	ifdropBaseline uint32

	// promiscuous is whether promiscuous capture was requested;
	// origPromisc is the flag's state found at open time. Together they
	// decide whether Close restores the flag.
	promiscuous bool
	origPromisc bool

	nonblocking bool
	breakLoop   atomic.Bool
}

func validateIfname(device string) error {
	if len(device) >= ifNameSize {
		return &ValidationError{Device: device, Reason: "name is too long"}
	}
	return nil
}

func openLive(device string, snaplen int32, promiscuous bool, sys syscalls) (*Handle, error) {
	// Both name checks run before any socket is opened.
	if err := validateIfname(device); err != nil {
		return nil, err
	}
	if !canBeBound(device, sys.PlatformVersion()) {
		return nil, &ValidationError{Device: device, Reason: "does not support capturing traffic"}
	}

	logger := log.WithFields(log.Fields{
		"iface":       device,
		"snaplen":     snaplen,
		"promiscuous": promiscuous,
	})
	logger.Debug("opening capture")

	h := &Handle{
		sys:         sys,
		device:      device,
		fd:          -1,
		auxFd:       -1,
		snaplen:     snaplen,
		promiscuous: promiscuous,
	}
	h.ifr.setName(device)

	if err := h.activate(); err != nil {
		// Cleanup of whatever was acquired before the failure.
		h.Close()
		return nil, err
	}

	if promiscuous {
		on, err := h.getPromisc()
		if err != nil {
			h.Close()
			return nil, err
		}
		h.origPromisc = on
		if !on {
			if err := h.setPromisc(true); err != nil {
				// Non-fatal: capture proceeds without promiscuous
				// mode, and the handle is otherwise usable.
				logger.WithError(err).Debug("promiscuous mode refused")
				return h, ErrPromiscNotSupported
			}
		}
	}
	logger.Debug("capture open")
	return h, nil
}

// activate acquires the handle's sockets and derives its link type. On
// error the caller runs Close; partially acquired state is safe to tear
// down because the descriptors start out marked closed.
func (h *Handle) activate() error {
	// The control socket: flags, statistics and promiscuous state all go
	// through it.
	auxFd, err := h.sys.DgramSocket(afInet)
	if err != nil {
		return fmt.Errorf("socket: %v", err)
	}
	h.auxFd = auxFd

	// Baseline for Stats. This is also the earliest reliable existence
	// check for the interface: the stats request fails with EINVAL when
	// the name does not resolve to a device.
	if err := h.sys.IoctlIfreq(h.auxFd, opGetStats, &h.ifr); err != nil {
		if isInvalidArgument(err) {
			return &DeviceNotFoundError{Device: h.device}
		}
		return fmt.Errorf("SIOCGIFSTATS: %v", err)
	}
	h.ifdropBaseline = h.ifr.Stats.Receive.Dropped

	// The capture socket, link-layer family.
	fd, err := h.sys.DgramSocket(afLink)
	if err != nil {
		return fmt.Errorf("socket: %v", err)
	}
	h.fd = fd

	// Derive the link type from the interface type code carried in the
	// link-level address. The dedicated type request cannot be used for
	// this: it is not answered usefully on either socket family.
	if err := h.sys.IoctlIfreq(h.fd, opGetAddress, &h.ifr); err != nil {
		return fmt.Errorf("SIOCGIFADDR: %v", err)
	}
	if h.ifr.Addr.Family != afLink {
		return fmt.Errorf("got address family %d instead of AF_LINK for interface %q", h.ifr.Addr.Family, h.device)
	}
	switch h.ifr.Addr.IfType {
	case ifTypeEther:
		// Ethernet interfaces, and also tap (L2) mode tunnels.
		h.linkType = LinkTypeEthernet
	case ifTypeTunnel, ifTypeLoop:
		// Loopback always; tun (L3) mode tunnels on builds that have
		// them. Both used to prepend a dummy Ethernet header before the
		// stack delivered bare payloads, hence the raw link type.
		h.linkType = LinkTypeRaw
	default:
		return fmt.Errorf("unknown interface type %#x for interface %q", h.ifr.Addr.IfType, h.device)
	}

	// Start monitoring on the capture socket.
	if err := h.sys.IoctlIfreq(h.fd, opStartCapture, &h.ifr); err != nil {
		return fmt.Errorf("SIOCSPACKETCAP: %v", err)
	}

	if h.snaplen <= 0 || h.snaplen > MaximumSnapLen {
		h.snaplen = MaximumSnapLen
	}
	h.buf = make([]byte, defaultBufferSize)
	return nil
}

// getPromisc reports whether the interface's promiscuous flag is set now,
// by whomever. The flags request would work on either socket; the control
// socket is used because the set request only works there.
func (h *Handle) getPromisc() (bool, error) {
	if err := h.sys.IoctlIfreq(h.auxFd, opGetFlags, &h.ifr); err != nil {
		return false, fmt.Errorf("SIOCGIFFLAGS: %v", err)
	}
	return h.ifr.Flags&ifFlagPromisc != 0, nil
}

// setPromisc applies the promiscuous bit unconditionally, on top of the
// flags left in the scratch record by the preceding getPromisc. Deciding
// whether a transition is needed is the caller's job; see openLive and
// Close for the policy.
func (h *Handle) setPromisc(enable bool) error {
	if enable {
		h.ifr.Flags |= ifFlagPromisc
	} else {
		h.ifr.Flags &^= ifFlagPromisc
	}
	if err := h.sys.IoctlIfreq(h.auxFd, opSetFlags, &h.ifr); err != nil {
		return fmt.Errorf("SIOCSIFFLAGS: %v", err)
	}
	return nil
}

// Stats returns the handle's counters. The in-process counters are always
// current; InterfaceDropped is refreshed from the kernel on each call and
// is the only part that can fail. On failure the returned counters still
// hold the in-process values.
func (h *Handle) Stats() (Stats, error) {
	s := h.stats
	if err := h.sys.IoctlIfreq(h.auxFd, opGetStats, &h.ifr); err != nil {
		return s, fmt.Errorf("SIOCGIFSTATS: %v", err)
	}
	// Subject to 32-bit wraparound; cannot be improved while the kernel
	// counter itself is 32 bits wide.
	s.InterfaceDropped = h.ifr.Stats.Receive.Dropped - h.ifdropBaseline
	return s, nil
}

// Inject is unsupported on this backend.
func (h *Handle) Inject([]byte) error {
	return ErrInjectNotSupported
}

// SetNonblock switches the capture descriptor between blocking and
// non-blocking receives.
func (h *Handle) SetNonblock(nonblocking bool) error {
	if err := h.sys.SetNonblock(h.fd, nonblocking); err != nil {
		return fmt.Errorf("setting non-blocking mode: %v", err)
	}
	h.nonblocking = nonblocking
	return nil
}

// Nonblock reports the mode last applied with SetNonblock.
func (h *Handle) Nonblock() bool {
	return h.nonblocking
}

// LinkType return the link type, compliant with pcap-linktype(7) and
// http://www.tcpdump.org/linktypes.html.
func (h *Handle) LinkType() uint32 {
	return h.linkType
}

// Close releases the handle's resources. It is idempotent, and safe to
// call on a handle whose activation failed partway.
//
// Closing the sockets does not touch the interface's promiscuous flag, so
// it is restored here — but only if this handle turned it on and it is
// still on now. The flag is systemwide and another process may have
// claimed it since; never clobber state that is no longer ours.
func (h *Handle) Close() {
	if h.fd >= 0 {
		_ = h.sys.Close(h.fd)
		h.fd = -1
	}
	if h.auxFd >= 0 {
		if h.promiscuous && !h.origPromisc {
			if on, err := h.getPromisc(); err == nil && on {
				_ = h.setPromisc(false)
			}
		}
		_ = h.sys.Close(h.auxFd)
		h.auxFd = -1
		log.WithField("iface", h.device).Debug("capture closed")
	}
}
