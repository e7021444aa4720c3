package pcap

// link type constants, compliant with pcap-linktype(7) and http://www.tcpdump.org/linktypes.html.
const (
	LinkTypeNull     uint32 = 0x0
	LinkTypeEthernet uint32 = 0x01
	LinkTypeRaw      uint32 = 0x0c
)

const (
	// MaximumSnapLen is the largest snapshot length a handle will use.
	// Snapshot lengths <= 0 or above this are clamped to it at open time.
	MaximumSnapLen = 262144

	// ifNameSize is the interface name limit, terminator included.
	ifNameSize = 32

	// defaultBufferSize is the receive buffer allocated per handle.
	// TODO: derive from the interface MTU instead of a fixed value.
	defaultBufferSize = 65536
)

// Address families of the two sockets a handle owns. The generic family
// carries control requests, the link-layer family carries captured frames.
const (
	afInet = 1
	afLink = 4
)

// Device control request codes, mirroring the platform's <sys/sockio.h>.
// Only the requests this backend issues are listed.
const (
	opSetFlags       uintptr = 8906 // SIOCSIFFLAGS: write interface flags
	opGetFlags       uintptr = 8907 // SIOCGIFFLAGS: read interface flags
	opGetAddress     uintptr = 8903 // SIOCGIFADDR: read link-level address
	opGetStats       uintptr = 8928 // SIOCGIFSTATS: read interface statistics
	opStartCapture   uintptr = 8931 // SIOCSPACKETCAP: start capturing on a socket
)

// Interface flag bits as reported/accepted by the flags requests.
const (
	ifFlagLoopback int32 = 0x0008
	ifFlagPromisc  int32 = 0x0100
	ifFlagLink     int32 = 0x1000
)

// Interface type codes as reported in the link-level address.
const (
	ifTypeEther  = 0x06
	ifTypeLoop   = 0x18
	ifTypeTunnel = 0x83
)

// ifTypeTun is the pre-rename spelling of ifTypeTunnel; the platform renamed
// the constant without changing its value, and interfaces created on older
// builds still report it. Kept as an alias so both spellings stay valid.
const ifTypeTun = ifTypeTunnel
