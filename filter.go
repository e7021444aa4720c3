package pcap

import (
	"errors"
	"fmt"

	"golang.org/x/net/bpf"
)

// SetBPF attaches a compiled BPF program to the handle. There is no
// kernel-side filtering on this backend: the program runs in userspace on
// every received frame, before clamping to the snapshot length, and a
// zero return rejects the frame. A nil or empty program removes any
// attached filter.
func (h *Handle) SetBPF(prog []bpf.Instruction) error {
	if len(prog) == 0 {
		h.filter = nil
		return nil
	}
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return fmt.Errorf("invalid filter program: %v", err)
	}
	h.filter = vm
	return nil
}

// SetRawBPF attaches a filter given in raw (assembled) form, the
// representation BPF compilers emit.
func (h *Handle) SetRawBPF(prog []bpf.RawInstruction) error {
	if len(prog) == 0 {
		h.filter = nil
		return nil
	}
	insns, ok := bpf.Disassemble(prog)
	if !ok {
		return errors.New("filter program contains unrecognized instructions")
	}
	return h.SetBPF(insns)
}
