package rfm95

import (
	"fmt"
	"strings"
)

// RegisterDump is a snapshot of the register space indexed by address.
type RegisterDump [RegisterMax + 1]byte

// String formats the dump as a hex table, 16 registers per line.
func (d *RegisterDump) String() string {
	var b strings.Builder
	for i, v := range d {
		if i%16 == 0 {
			if i != 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%02x:", i)
		}
		fmt.Fprintf(&b, " %02x", v)
	}
	return b.String()
}

// DumpRegisters reads every register. Reading RegFifo advances the FIFO
// pointer, so the pointer is restored afterwards.
func (l *Lora) DumpRegisters() (*RegisterDump, error) {
	if !l.diagnostics {
		return nil, ErrDiagnosticsDisabled
	}
	ptr, err := l.conn.ReadRegister(RegFifoAddrPtr)
	if err != nil {
		return nil, err
	}
	var d RegisterDump
	for i := range d {
		if d[i], err = l.conn.ReadRegister(Register(i)); err != nil {
			return nil, err
		}
	}
	return &d, l.conn.WriteRegister(RegFifoAddrPtr, ptr)
}

// DumpFIFO reads the whole FIFO and restores the FIFO address pointer.
func (l *Lora) DumpFIFO() (*[FIFOSize]byte, error) {
	if !l.diagnostics {
		return nil, ErrDiagnosticsDisabled
	}
	ptr, err := l.conn.ReadRegister(RegFifoAddrPtr)
	if err != nil {
		return nil, err
	}
	var fifo [FIFOSize]byte
	for i := range fifo {
		if err := l.conn.WriteRegister(RegFifoAddrPtr, byte(i)); err != nil {
			return nil, err
		}
		if fifo[i], err = l.conn.ReadRegister(RegFifo); err != nil {
			return nil, err
		}
	}
	return &fifo, l.conn.WriteRegister(RegFifoAddrPtr, ptr)
}
