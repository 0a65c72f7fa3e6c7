package rfm95

import (
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// RegisterConnection performs single register transactions. Each call must
// scope the chip select to exactly that transaction.
type RegisterConnection interface {
	ReadRegister(reg Register) (byte, error)
	WriteRegister(reg Register, value byte) error
}

// SPIConnection is a RegisterConnection over a periph SPI connection.
type SPIConnection struct {
	SPI spi.Conn
}

// Open connects to the radio on an SPI port at 8MHz in mode 0.
func Open(port spi.Port) (*SPIConnection, error) {
	c, err := port.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, errorf(ErrTransport, "connect: %v", err)
	}
	return &SPIConnection{SPI: c}, nil
}

// ReadRegister reads one register. The address is sent with bit 7 cleared.
func (s *SPIConnection) ReadRegister(reg Register) (byte, error) {
	w := []byte{byte(reg) & 0x7f, 0x00}
	r := make([]byte, len(w))
	if err := s.SPI.Tx(w, r); err != nil {
		return 0, errorf(ErrTransport, "read %s: %v", reg, err)
	}
	return r[1], nil
}

// WriteRegister writes one register. The address is sent with bit 7 set.
func (s *SPIConnection) WriteRegister(reg Register, value byte) error {
	w := []byte{byte(reg) | 0x80, value}
	if err := s.SPI.Tx(w, make([]byte, len(w))); err != nil {
		return errorf(ErrTransport, "write %s: %v", reg, err)
	}
	return nil
}

func (s *SPIConnection) String() string {
	return "rfm95{" + s.SPI.String() + "}"
}
