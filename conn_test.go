package rfm95

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestSPIConnection(t *testing.T) {
	p := &spitest.Playback{
		Playback: conntest.Playback{
			Ops: []conntest.IO{
				{W: []byte{0x42, 0x00}, R: []byte{0x00, 0x12}},
				{W: []byte{0xb9, 0x34}, R: []byte{0x00, 0x00}},
				{W: []byte{0x0d, 0x00}, R: []byte{0x00, 0x80}},
			},
			DontPanic: true,
		},
	}
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := c.ReadRegister(RegVersion); err != nil || v != 0x12 {
		t.Errorf("ReadRegister(RegVersion) == %#x, %v, want 0x12", v, err)
	}
	if err := c.WriteRegister(RegSyncWord, 0x34); err != nil {
		t.Errorf("WriteRegister(RegSyncWord) error: %v", err)
	}
	if v, err := c.ReadRegister(RegFifoAddrPtr); err != nil || v != 0x80 {
		t.Errorf("ReadRegister(RegFifoAddrPtr) == %#x, %v, want 0x80", v, err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}

func TestSPIConnectionTransportError(t *testing.T) {
	p := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ReadRegister(RegVersion); !errors.Is(err, ErrTransport) {
		t.Errorf("ReadRegister() error == %v, want ErrTransport", err)
	}
	if err := c.WriteRegister(RegOpMode, 0x80); !errors.Is(err, ErrTransport) {
		t.Errorf("WriteRegister() error == %v, want ErrTransport", err)
	}
}

func TestNewOverSPI(t *testing.T) {
	// Reset register values: FSK standby, low frequency mode.
	ops := []conntest.IO{
		{W: []byte{0x42, 0x00}, R: []byte{0x00, 0x12}},
		{W: []byte{0x01, 0x00}, R: []byte{0x00, 0x09}},
		{W: []byte{0x81, 0x08}, R: []byte{0x00, 0x00}},
		{W: []byte{0x01, 0x00}, R: []byte{0x00, 0x08}},
		{W: []byte{0x81, 0x88}, R: []byte{0x00, 0x00}},
		{W: []byte{0x01, 0x00}, R: []byte{0x00, 0x88}},
		{W: []byte{0x81, 0x89}, R: []byte{0x00, 0x00}},
		{W: []byte{0x01, 0x00}, R: []byte{0x00, 0x89}},
		{W: []byte{0x81, 0x89}, R: []byte{0x00, 0x00}},
		{W: []byte{0x8e, 0x00}, R: []byte{0x00, 0x00}},
		{W: []byte{0x8f, 0x00}, R: []byte{0x00, 0x00}},
		{W: []byte{0x89, 0xff}, R: []byte{0x00, 0x00}},
	}
	p := &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(c, nil, &Options{Delay: func(d time.Duration) {}}); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}
