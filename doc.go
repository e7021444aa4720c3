package pcap

/*
 This backend captures over plain datagram sockets instead of a kernel
 capture facility. The network stack hands complete link-layer frames to
 a link-layer-family datagram socket once capturing has been started on it
 with a device control request, and all interface state (flags, link
 address, drop statistics) is driven through ioctl-style requests on a
 second, generic-family socket. This is the model used by the Haiku
 network stack; the request codes in constants.go mirror its sockio.h.

 There is no kernel-side filtering in this model: BPF programs are
 evaluated in userspace after delivery, against the full received frame.
*/
