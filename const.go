package rfm95

import "fmt"

// Register is the 7-bit address of one 8-bit hardware register.
type Register byte

const (
	RegFifo               Register = 0x00
	RegOpMode             Register = 0x01
	RegFrfMsb             Register = 0x06
	RegFrfMid             Register = 0x07
	RegFrfLsb             Register = 0x08
	RegPaConfig           Register = 0x09
	RegOcp                Register = 0x0b
	RegLna                Register = 0x0c
	RegFifoAddrPtr        Register = 0x0d
	RegFifoTxBaseAddr     Register = 0x0e
	RegFifoRxBaseAddr     Register = 0x0f
	RegFifoRxCurrentAddr  Register = 0x10
	RegIrqFlagsMask       Register = 0x11
	RegIrqFlags           Register = 0x12
	RegRxNbBytes          Register = 0x13
	RegPktSnrValue        Register = 0x19
	RegPktRssiValue       Register = 0x1a
	RegRssiValue          Register = 0x1b
	RegModemConfig1       Register = 0x1d
	RegModemConfig2       Register = 0x1e
	RegSymbTimeoutLsb     Register = 0x1f
	RegPreambleMsb        Register = 0x20
	RegPreambleLsb        Register = 0x21
	RegPayloadLength      Register = 0x22
	RegModemConfig3       Register = 0x26
	RegRssiWideBand       Register = 0x2c
	RegDetectionOptimize  Register = 0x31
	RegInvertIQ           Register = 0x33
	RegDetectionThreshold Register = 0x37
	RegSyncWord           Register = 0x39
	RegDioMapping1        Register = 0x40
	RegVersion            Register = 0x42
	RegPaDac              Register = 0x4d

	// RegisterMax is the highest implemented register address.
	RegisterMax Register = 0x70
)

var registerNames = map[Register]string{
	RegFifo:               "RegFifo",
	RegOpMode:             "RegOpMode",
	RegFrfMsb:             "RegFrfMsb",
	RegFrfMid:             "RegFrfMid",
	RegFrfLsb:             "RegFrfLsb",
	RegPaConfig:           "RegPaConfig",
	RegOcp:                "RegOcp",
	RegLna:                "RegLna",
	RegFifoAddrPtr:        "RegFifoAddrPtr",
	RegFifoTxBaseAddr:     "RegFifoTxBaseAddr",
	RegFifoRxBaseAddr:     "RegFifoRxBaseAddr",
	RegFifoRxCurrentAddr:  "RegFifoRxCurrentAddr",
	RegIrqFlagsMask:       "RegIrqFlagsMask",
	RegIrqFlags:           "RegIrqFlags",
	RegRxNbBytes:          "RegRxNbBytes",
	RegPktSnrValue:        "RegPktSnrValue",
	RegPktRssiValue:       "RegPktRssiValue",
	RegRssiValue:          "RegRssiValue",
	RegModemConfig1:       "RegModemConfig1",
	RegModemConfig2:       "RegModemConfig2",
	RegSymbTimeoutLsb:     "RegSymbTimeoutLsb",
	RegPreambleMsb:        "RegPreambleMsb",
	RegPreambleLsb:        "RegPreambleLsb",
	RegPayloadLength:      "RegPayloadLength",
	RegModemConfig3:       "RegModemConfig3",
	RegRssiWideBand:       "RegRssiWideBand",
	RegDetectionOptimize:  "RegDetectionOptimize",
	RegInvertIQ:           "RegInvertIQ",
	RegDetectionThreshold: "RegDetectionThreshold",
	RegSyncWord:           "RegSyncWord",
	RegDioMapping1:        "RegDioMapping1",
	RegVersion:            "RegVersion",
	RegPaDac:              "RegPaDac",
}

func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reg(0x%02x)", byte(r))
}

// field is a bit range inside one register. mask is already shifted into
// place. Fields of a write-1-to-clear register only write their own bits.
type field struct {
	reg   Register
	mask  byte
	shift uint
	w1c   bool
}

func (f field) decode(v byte) byte { return (v & f.mask) >> f.shift }

func (f field) encode(old, v byte) byte { return old&^f.mask | (v<<f.shift)&f.mask }

var (
	fOpModeLongRange       = field{reg: RegOpMode, mask: 0x80, shift: 7}
	fOpModeAccessSharedReg = field{reg: RegOpMode, mask: 0x40, shift: 6}
	fOpModeLowFrequency    = field{reg: RegOpMode, mask: 0x08, shift: 3}
	fOpModeMode            = field{reg: RegOpMode, mask: 0x07}

	fModemConfig1Bw             = field{reg: RegModemConfig1, mask: 0xf0, shift: 4}
	fModemConfig1CodingRate     = field{reg: RegModemConfig1, mask: 0x0e, shift: 1}
	fModemConfig1ImplicitHeader = field{reg: RegModemConfig1, mask: 0x01}

	fModemConfig2SpreadingFactor = field{reg: RegModemConfig2, mask: 0xf0, shift: 4}
	fModemConfig2RxPayloadCrcOn  = field{reg: RegModemConfig2, mask: 0x04, shift: 2}
	fModemConfig2SymbTimeout98   = field{reg: RegModemConfig2, mask: 0x03}

	fModemConfig3LowDataRateOptimize = field{reg: RegModemConfig3, mask: 0x08, shift: 3}

	fInvertIQRx = field{reg: RegInvertIQ, mask: 0x40, shift: 6}

	fDetectionOptimize = field{reg: RegDetectionOptimize, mask: 0x07}

	fIrqMaskRxTimeout       = field{reg: RegIrqFlagsMask, mask: IrqRxTimeoutMask, shift: 7}
	fIrqMaskRxDone          = field{reg: RegIrqFlagsMask, mask: IrqRxDoneMask, shift: 6}
	fIrqMaskPayloadCrcError = field{reg: RegIrqFlagsMask, mask: IrqPayloadCrcErrorMask, shift: 5}
	fIrqMaskTxDone          = field{reg: RegIrqFlagsMask, mask: IrqTxDoneMask, shift: 3}

	fIrqRxTimeout       = field{reg: RegIrqFlags, mask: IrqRxTimeoutMask, shift: 7, w1c: true}
	fIrqRxDone          = field{reg: RegIrqFlags, mask: IrqRxDoneMask, shift: 6, w1c: true}
	fIrqPayloadCrcError = field{reg: RegIrqFlags, mask: IrqPayloadCrcErrorMask, shift: 5, w1c: true}
	fIrqTxDone          = field{reg: RegIrqFlags, mask: IrqTxDoneMask, shift: 3, w1c: true}
)

// Mode is the value of the three mode bits of RegOpMode.
type Mode byte

const (
	ModeSleep        Mode = 0x00
	ModeStandby      Mode = 0x01
	ModeTx           Mode = 0x03
	ModeRxContinuous Mode = 0x05
	ModeRxSingle     Mode = 0x06
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeStandby:
		return "standby"
	case ModeTx:
		return "tx"
	case ModeRxContinuous:
		return "rx-continuous"
	case ModeRxSingle:
		return "rx-single"
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

const (
	IrqRxTimeoutMask       byte = 0x80
	IrqRxDoneMask          byte = 0x40
	IrqPayloadCrcErrorMask byte = 0x20
	IrqValidHeaderMask     byte = 0x10
	IrqTxDoneMask          byte = 0x08
	IrqCadDoneMask         byte = 0x04
	IrqFhssChangeMask      byte = 0x02
	IrqCadDetectedMask     byte = 0x01
)

const (
	// FIFOSize is the size of the packet buffer shared by TX and RX.
	FIFOSize = 256
	// MaxPktLength is the largest payload RegPayloadLength can describe.
	MaxPktLength = 255

	// HighFrequencyThreshold splits the low band (up to 525MHz) from the
	// high band (from 779MHz).
	HighFrequencyThreshold Frequency = 652_000_000

	RssiOffsetHfPort int16 = -157
	RssiOffsetLfPort int16 = -164

	// maxSymbolTimeout is the largest value of the 10-bit symbol timeout counter.
	maxSymbolTimeout = 1023
	paConfigMax      = 0xff
)

// supportedRevisions lists the RegVersion values this driver talks to.
var supportedRevisions = []byte{0x11, 0x12}

// IrqFlags is a snapshot of RegIrqFlags.
type IrqFlags byte

var irqFlagNames = [8]string{"CadDetected", "FhssChange", "CadDone", "TxDone", "ValidHeader", "PayloadCrcError", "RxDone", "RxTimeout"}

func (f IrqFlags) String() string {
	s := "["
	for i := 7; i >= 0; i-- {
		if f&(1<<uint(i)) == 0 {
			continue
		}
		if len(s) > 1 {
			s += ","
		}
		s += irqFlagNames[i]
	}
	return s + "]"
}
