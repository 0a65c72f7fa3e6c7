package rfm95

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// SpreadingFactor is the base two logarithm of the chips per symbol.
type SpreadingFactor uint8

const (
	SF6 SpreadingFactor = iota + 6
	SF7
	SF8
	SF9
	SF10
	SF11
	SF12
)

// ChipsPerSymbol returns 2^sf.
func (sf SpreadingFactor) ChipsPerSymbol() int64 { return 1 << sf }

func (sf SpreadingFactor) valid() bool { return sf >= SF6 && sf <= SF12 }

func (sf SpreadingFactor) String() string { return fmt.Sprintf("SF%d", uint8(sf)) }

func parseSpreadingFactor(raw byte) (SpreadingFactor, error) {
	sf := SpreadingFactor(raw)
	if !sf.valid() {
		return 0, errorf(ErrDevice, "invalid spreading factor register value %#x", raw)
	}
	return sf, nil
}

// Bandwidth is a LoRa signal bandwidth in Hz. Only the constants below are
// supported by the hardware.
type Bandwidth uint32

const (
	BW7_8k   Bandwidth = 7800
	BW10_4k  Bandwidth = 10400
	BW15_6k  Bandwidth = 15600
	BW20_8k  Bandwidth = 20800
	BW31_25k Bandwidth = 31250
	BW41_7k  Bandwidth = 41700
	BW62_5k  Bandwidth = 62500
	BW125k   Bandwidth = 125000
	BW250k   Bandwidth = 250000
	BW500k   Bandwidth = 500000
)

// bwBins is indexed by the RegModemConfig1 bandwidth code.
var bwBins = [...]Bandwidth{BW7_8k, BW10_4k, BW15_6k, BW20_8k, BW31_25k, BW41_7k, BW62_5k, BW125k, BW250k, BW500k}

// Hertz returns the bandwidth in Hz.
func (bw Bandwidth) Hertz() int64 { return int64(bw) }

// Physic returns the bandwidth as a physic.Frequency.
func (bw Bandwidth) Physic() physic.Frequency { return physic.Frequency(bw) * physic.Hertz }

func (bw Bandwidth) String() string { return bw.Physic().String() }

func (bw Bandwidth) raw() (byte, error) {
	for i, b := range bwBins {
		if b == bw {
			return byte(i), nil
		}
	}
	return 0, errorf(ErrInvalidArgument, "unsupported bandwidth %d Hz", uint32(bw))
}

func parseBandwidth(raw byte) (Bandwidth, error) {
	if int(raw) >= len(bwBins) {
		return 0, errorf(ErrDevice, "invalid bandwidth register value %#x", raw)
	}
	return bwBins[raw], nil
}

// CodingRate is the forward error correction rate 4/(4+cr).
type CodingRate uint8

const (
	CR4_5 CodingRate = 1
	CR4_6 CodingRate = 2
	CR4_7 CodingRate = 3
	CR4_8 CodingRate = 4
)

func (cr CodingRate) valid() bool { return cr >= CR4_5 && cr <= CR4_8 }

func (cr CodingRate) String() string { return fmt.Sprintf("4/%d", uint8(cr)+4) }

func parseCodingRate(raw byte) (CodingRate, error) {
	cr := CodingRate(raw)
	if !cr.valid() {
		return 0, errorf(ErrDevice, "invalid coding rate register value %#x", raw)
	}
	return cr, nil
}

// Polarity selects normal or inverted I and Q signals.
type Polarity uint8

const (
	PolarityNormal   Polarity = 0
	PolarityInverted Polarity = 1
)

func (p Polarity) String() string {
	if p == PolarityInverted {
		return "inverted"
	}
	return "normal"
}

func parsePolarity(raw byte) (Polarity, error) {
	switch Polarity(raw) {
	case PolarityNormal, PolarityInverted:
		return Polarity(raw), nil
	}
	return 0, errorf(ErrDevice, "invalid IQ polarity register value %#x", raw)
}

// HeaderMode defines the presence of a header in the LoRa packet. An implicit
// header means both ends agree on the packet layout in advance.
type HeaderMode uint8

const (
	HeaderExplicit HeaderMode = 0
	HeaderImplicit HeaderMode = 1
)

func (h HeaderMode) String() string {
	if h == HeaderImplicit {
		return "implicit"
	}
	return "explicit"
}

func parseHeaderMode(raw byte) (HeaderMode, error) {
	switch HeaderMode(raw) {
	case HeaderExplicit, HeaderImplicit:
		return HeaderMode(raw), nil
	}
	return 0, errorf(ErrDevice, "invalid header mode register value %#x", raw)
}

// CrcMode enables payload CRC generation and checking.
type CrcMode uint8

const (
	CrcDisabled CrcMode = 0
	CrcEnabled  CrcMode = 1
)

func (c CrcMode) String() string {
	if c == CrcEnabled {
		return "crc"
	}
	return "nocrc"
}

func parseCrcMode(raw byte) (CrcMode, error) {
	switch CrcMode(raw) {
	case CrcDisabled, CrcEnabled:
		return CrcMode(raw), nil
	}
	return 0, errorf(ErrDevice, "invalid crc mode register value %#x", raw)
}

// SyncWord is the network identifier matched by the receiver. 0x34 is
// reserved for LoRaWAN networks, 0x12 is the private default.
type SyncWord uint8

// PreambleLength is the number of programmed preamble symbols. The modem
// adds 4.25 symbols to it.
type PreambleLength uint16

// Frequency is a carrier frequency in Hz.
type Frequency uint32

const (
	Freq433_0M Frequency = 433_050_000
	Freq868_1M Frequency = 868_100_000
	Freq915_0M Frequency = 915_000_000
)

// Physic returns the frequency as a physic.Frequency.
func (f Frequency) Physic() physic.Frequency { return physic.Frequency(f) * physic.Hertz }

func (f Frequency) String() string { return f.Physic().String() }

// frequencyStepMilliHz is one synthesizer step, 32MHz/2^19, in milli-Hz.
const frequencyStepMilliHz = 61_035

// hzToRaw converts Hz to the 24-bit synthesizer value.
func hzToRaw(f Frequency) (uint32, error) {
	raw := uint64(f) * 1000 / frequencyStepMilliHz
	if raw > 0xffffff {
		return 0, errorf(ErrInvalidArgument, "frequency %d Hz out of range", uint32(f))
	}
	return uint32(raw), nil
}

// rawToHz converts the 24-bit synthesizer value back to Hz.
func rawToHz(raw uint32) Frequency {
	return Frequency(uint64(raw&0xffffff) * frequencyStepMilliHz / 1000)
}
