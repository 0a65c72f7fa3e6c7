// Package rfm95 is a register level driver for the Semtech SX1276/77/78/79
// LoRa transceiver as found on HopeRF RFM95/96/97/98 modules.
//
// The driver polls the radio: StartTx and StartRx schedule an operation and
// return immediately, CompleteTx and CompleteRx report whether it finished.
// Poll cadence and give-up policy belong to the caller, which can abort an
// operation at any time with Standby.
//
// A Lora is not safe for concurrent use.
package rfm95

import (
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// LogPrintf is the function used for logging.
type LogPrintf func(format string, v ...interface{})

// Options are driver flags that do not touch the radio configuration.
type Options struct {
	// SkipVersionCheck accepts any silicon revision.
	SkipVersionCheck bool
	// Diagnostics enables DumpRegisters and DumpFIFO.
	Diagnostics bool
	// Delay blocks for the given duration; defaults to time.Sleep.
	Delay func(time.Duration)
	// Logger receives init and mode change messages; defaults to no logging.
	Logger LogPrintf
}

// Message is a received packet with its link quality.
type Message struct {
	Data     []byte
	RSSI     int16
	SNR      int8
	Strength int16
}

// Lora is an initialized radio in LoRa mode.
type Lora struct {
	conn        RegisterConnection
	log         LogPrintf
	diagnostics bool
}

// New resets the radio, checks its silicon revision and puts it in LoRa
// standby mode with the whole FIFO available to both directions and the
// power amplifier at maximum. The modem configuration is left untouched; use
// SetConfig.
//
// New blocks for at least 11ms. A nil reset pin skips the reset pulse but
// still waits for the chip to boot.
func New(conn RegisterConnection, reset gpio.PinOut, opts *Options) (*Lora, error) {
	if opts == nil {
		opts = &Options{}
	}
	delay := opts.Delay
	if delay == nil {
		delay = time.Sleep
	}
	l := &Lora{
		conn:        conn,
		log:         func(format string, v ...interface{}) {},
		diagnostics: opts.Diagnostics,
	}
	if opts.Logger != nil {
		l.log = opts.Logger
	}
	if err := resetModule(reset, delay); err != nil {
		return nil, err
	}
	if err := l.setupModule(opts.SkipVersionCheck); err != nil {
		return nil, err
	}
	return l, nil
}

func resetModule(reset gpio.PinOut, delay func(time.Duration)) error {
	if reset != nil {
		if err := reset.Out(gpio.Low); err != nil {
			return errorf(ErrTransport, "pull reset low: %v", err)
		}
		delay(time.Millisecond)
		if err := reset.Out(gpio.High); err != nil {
			return errorf(ErrTransport, "pull reset high: %v", err)
		}
	}
	delay(10 * time.Millisecond)
	return nil
}

func (l *Lora) setupModule(skipVersionCheck bool) error {
	v, err := l.Version()
	if err != nil {
		return err
	}
	l.log("rfm95: silicon revision %#x", v)
	if !skipVersionCheck && !supportedRevision(v) {
		return errorf(ErrDevice, "unsupported silicon revision %#x", v)
	}

	// LongRangeMode can only be changed in sleep, AccessSharedReg only once
	// LoRa mode is active.
	if err := l.write(fOpModeMode, byte(ModeSleep)); err != nil {
		return err
	}
	if err := l.write(fOpModeLongRange, 1); err != nil {
		return err
	}
	if err := l.write(fOpModeMode, byte(ModeStandby)); err != nil {
		return err
	}
	if err := l.write(fOpModeAccessSharedReg, 0); err != nil {
		return err
	}

	if err := l.conn.WriteRegister(RegFifoTxBaseAddr, 0); err != nil {
		return err
	}
	if err := l.conn.WriteRegister(RegFifoRxBaseAddr, 0); err != nil {
		return err
	}
	return l.conn.WriteRegister(RegPaConfig, paConfigMax)
}

func supportedRevision(v byte) bool {
	for _, r := range supportedRevisions {
		if r == v {
			return true
		}
	}
	return false
}

// Version returns the silicon revision.
func (l *Lora) Version() (byte, error) {
	return l.conn.ReadRegister(RegVersion)
}

// Mode returns the current operating mode.
func (l *Lora) Mode() (Mode, error) {
	m, err := l.read(fOpModeMode)
	return Mode(m), err
}

// Standby returns the radio to standby, aborting any TX or RX in flight.
func (l *Lora) Standby() error {
	return l.setMode(ModeStandby)
}

// Sleep puts the radio in its lowest power mode. The FIFO content is lost.
func (l *Lora) Sleep() error {
	return l.setMode(ModeSleep)
}

func (l *Lora) setMode(m Mode) error {
	l.log("rfm95: mode %s", m)
	return l.write(fOpModeMode, byte(m))
}

// SetConfig applies cfg. The spreading factor is written before the
// bandwidth so that the low data rate optimization bit is computed against
// the final pair; this ordering is the supported way of changing both.
func (l *Lora) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := l.SetSpreadingFactor(cfg.SpreadingFactor); err != nil {
		return err
	}
	if err := l.SetBandwidth(cfg.Bandwidth); err != nil {
		return err
	}
	if err := l.SetCodingRate(cfg.CodingRate); err != nil {
		return err
	}
	if err := l.SetPolarity(cfg.Polarity); err != nil {
		return err
	}
	if err := l.SetHeaderMode(cfg.HeaderMode); err != nil {
		return err
	}
	if err := l.SetCrcMode(cfg.CrcMode); err != nil {
		return err
	}
	if err := l.SetSyncWord(cfg.SyncWord); err != nil {
		return err
	}
	if err := l.SetPreambleLength(cfg.PreambleLength); err != nil {
		return err
	}
	return l.SetFrequency(cfg.Frequency)
}

// Config reads the whole configuration back from the radio.
func (l *Lora) Config() (cfg Config, err error) {
	if cfg.SpreadingFactor, err = l.SpreadingFactor(); err != nil {
		return cfg, err
	}
	if cfg.Bandwidth, err = l.Bandwidth(); err != nil {
		return cfg, err
	}
	if cfg.CodingRate, err = l.CodingRate(); err != nil {
		return cfg, err
	}
	if cfg.Polarity, err = l.Polarity(); err != nil {
		return cfg, err
	}
	if cfg.HeaderMode, err = l.HeaderMode(); err != nil {
		return cfg, err
	}
	if cfg.CrcMode, err = l.CrcMode(); err != nil {
		return cfg, err
	}
	if cfg.SyncWord, err = l.SyncWord(); err != nil {
		return cfg, err
	}
	if cfg.PreambleLength, err = l.PreambleLength(); err != nil {
		return cfg, err
	}
	cfg.Frequency, err = l.Frequency()
	return cfg, err
}

func (l *Lora) SpreadingFactor() (SpreadingFactor, error) {
	raw, err := l.read(fModemConfig2SpreadingFactor)
	if err != nil {
		return 0, err
	}
	return parseSpreadingFactor(raw)
}

// SetSpreadingFactor sets the spreading factor together with the detection
// settings it implies, and recomputes low data rate optimization against the
// bandwidth currently in the radio. When changing both, use SetConfig.
func (l *Lora) SetSpreadingFactor(sf SpreadingFactor) error {
	if !sf.valid() {
		return errorf(ErrInvalidArgument, "spreading factor %d out of range", uint8(sf))
	}
	bw, err := l.Bandwidth()
	if err != nil {
		return err
	}

	var detectionOptimize, detectionThreshold byte = 0x03, 0x0a
	if sf == SF6 {
		detectionOptimize, detectionThreshold = 0x05, 0x0c
	}
	if err := l.write(fDetectionOptimize, detectionOptimize); err != nil {
		return err
	}
	if err := l.conn.WriteRegister(RegDetectionThreshold, detectionThreshold); err != nil {
		return err
	}

	if err := l.write(fModemConfig2SpreadingFactor, byte(sf)); err != nil {
		return err
	}
	return l.write(fModemConfig3LowDataRateOptimize, b2u8(NeedsLDO(sf, bw)))
}

func (l *Lora) Bandwidth() (Bandwidth, error) {
	raw, err := l.read(fModemConfig1Bw)
	if err != nil {
		return 0, err
	}
	return parseBandwidth(raw)
}

// SetBandwidth sets the bandwidth and recomputes low data rate optimization
// against the spreading factor currently in the radio. When changing both,
// use SetConfig.
func (l *Lora) SetBandwidth(bw Bandwidth) error {
	raw, err := bw.raw()
	if err != nil {
		return err
	}
	sf, err := l.SpreadingFactor()
	if err != nil {
		return err
	}
	if err := l.write(fModemConfig1Bw, raw); err != nil {
		return err
	}
	return l.write(fModemConfig3LowDataRateOptimize, b2u8(NeedsLDO(sf, bw)))
}

// LowDataRateOptimize reports whether the LDO bit is set.
func (l *Lora) LowDataRateOptimize() (bool, error) {
	v, err := l.read(fModemConfig3LowDataRateOptimize)
	return v == 1, err
}

func (l *Lora) CodingRate() (CodingRate, error) {
	raw, err := l.read(fModemConfig1CodingRate)
	if err != nil {
		return 0, err
	}
	return parseCodingRate(raw)
}

func (l *Lora) SetCodingRate(cr CodingRate) error {
	if !cr.valid() {
		return errorf(ErrInvalidArgument, "coding rate %d out of range", uint8(cr))
	}
	return l.write(fModemConfig1CodingRate, byte(cr))
}

func (l *Lora) Polarity() (Polarity, error) {
	raw, err := l.read(fInvertIQRx)
	if err != nil {
		return 0, err
	}
	return parsePolarity(raw)
}

func (l *Lora) SetPolarity(p Polarity) error {
	if p > PolarityInverted {
		return errorf(ErrInvalidArgument, "bad IQ polarity %d", uint8(p))
	}
	return l.write(fInvertIQRx, byte(p))
}

func (l *Lora) HeaderMode() (HeaderMode, error) {
	raw, err := l.read(fModemConfig1ImplicitHeader)
	if err != nil {
		return 0, err
	}
	return parseHeaderMode(raw)
}

func (l *Lora) SetHeaderMode(h HeaderMode) error {
	if h > HeaderImplicit {
		return errorf(ErrInvalidArgument, "bad header mode %d", uint8(h))
	}
	return l.write(fModemConfig1ImplicitHeader, byte(h))
}

func (l *Lora) CrcMode() (CrcMode, error) {
	raw, err := l.read(fModemConfig2RxPayloadCrcOn)
	if err != nil {
		return 0, err
	}
	return parseCrcMode(raw)
}

func (l *Lora) SetCrcMode(c CrcMode) error {
	if c > CrcEnabled {
		return errorf(ErrInvalidArgument, "bad crc mode %d", uint8(c))
	}
	return l.write(fModemConfig2RxPayloadCrcOn, byte(c))
}

func (l *Lora) SyncWord() (SyncWord, error) {
	v, err := l.conn.ReadRegister(RegSyncWord)
	return SyncWord(v), err
}

func (l *Lora) SetSyncWord(s SyncWord) error {
	return l.conn.WriteRegister(RegSyncWord, byte(s))
}

func (l *Lora) PreambleLength() (PreambleLength, error) {
	msb, err := l.conn.ReadRegister(RegPreambleMsb)
	if err != nil {
		return 0, err
	}
	lsb, err := l.conn.ReadRegister(RegPreambleLsb)
	if err != nil {
		return 0, err
	}
	return PreambleLength(uint16(msb)<<8 | uint16(lsb)), nil
}

func (l *Lora) SetPreambleLength(length PreambleLength) error {
	if err := l.conn.WriteRegister(RegPreambleMsb, byte(length>>8)); err != nil {
		return err
	}
	return l.conn.WriteRegister(RegPreambleLsb, byte(length))
}

// Frequency returns the carrier frequency, rounded down to whole Hz.
func (l *Lora) Frequency() (Frequency, error) {
	var raw uint32
	for _, reg := range []Register{RegFrfMsb, RegFrfMid, RegFrfLsb} {
		v, err := l.conn.ReadRegister(reg)
		if err != nil {
			return 0, err
		}
		raw = raw<<8 | uint32(v)
	}
	return rawToHz(raw), nil
}

// SetFrequency sets the carrier frequency and selects the matching low or
// high frequency mode. The result is within one synthesizer step (~61Hz) of
// freq.
func (l *Lora) SetFrequency(freq Frequency) error {
	raw, err := hzToRaw(freq)
	if err != nil {
		return err
	}
	if err := l.write(fOpModeLowFrequency, b2u8(freq < HighFrequencyThreshold)); err != nil {
		return err
	}
	if err := l.conn.WriteRegister(RegFrfMsb, byte(raw>>16)); err != nil {
		return err
	}
	if err := l.conn.WriteRegister(RegFrfMid, byte(raw>>8)); err != nil {
		return err
	}
	// A new frequency only takes effect once the LSB is written.
	return l.conn.WriteRegister(RegFrfLsb, byte(raw))
}

// StartTx copies data into the FIFO and starts a single transmission. It
// returns immediately; poll CompleteTx to learn when the packet is sent.
func (l *Lora) StartTx(data []byte) error {
	if len(data) == 0 || len(data) > MaxPktLength {
		return errorf(ErrInvalidArgument, "invalid TX data length %d", len(data))
	}
	for i, b := range data {
		if err := l.conn.WriteRegister(RegFifoAddrPtr, byte(i)); err != nil {
			return err
		}
		if err := l.conn.WriteRegister(RegFifo, b); err != nil {
			return err
		}
	}
	if err := l.conn.WriteRegister(RegPayloadLength, byte(len(data))); err != nil {
		return err
	}

	if err := l.write(fIrqMaskTxDone, 0); err != nil {
		return err
	}
	if err := l.write(fIrqTxDone, 1); err != nil {
		return err
	}
	return l.setMode(ModeTx)
}

// CompleteTx reports whether the transmission started by StartTx is done
// and, if so, how many bytes were sent.
func (l *Lora) CompleteTx() (n int, done bool, err error) {
	flag, err := l.read(fIrqTxDone)
	if err != nil || flag == 0 {
		return 0, false, err
	}
	sent, err := l.conn.ReadRegister(RegPayloadLength)
	if err != nil {
		return 0, false, err
	}
	return int(sent), true, nil
}

// RxTimeoutMax returns the longest timeout StartRx accepts with the current
// spreading factor and bandwidth. The value must be recomputed after either
// changes.
func (l *Lora) RxTimeoutMax() (time.Duration, error) {
	symbol, err := l.symbolAirtime()
	if err != nil {
		return 0, err
	}
	return saturatingMul(symbol, maxSymbolTimeout), nil
}

func (l *Lora) symbolAirtime() (time.Duration, error) {
	sf, err := l.SpreadingFactor()
	if err != nil {
		return 0, err
	}
	bw, err := l.Bandwidth()
	if err != nil {
		return 0, err
	}
	return SymbolAirtime(sf, bw), nil
}

// StartRx starts a single reception that gives up after timeout, rounded up
// to whole symbols. It returns immediately; poll CompleteRx for the result.
func (l *Lora) StartRx(timeout time.Duration) error {
	symbol, err := l.symbolAirtime()
	if err != nil {
		return err
	}
	symbolMicros := int32(symbol / time.Microsecond)

	micros := int64(timeout / time.Microsecond)
	if micros < 0 || micros > math.MaxInt32 {
		return errorf(ErrInvalidArgument, "timeout %s is too long", timeout)
	}
	symbols := ceilDiv(int32(micros), symbolMicros)
	if symbols > maxSymbolTimeout {
		return errorf(ErrInvalidArgument, "timeout %s exceeds %d symbols of %s", timeout, maxSymbolTimeout, symbol)
	}

	if err := l.write(fModemConfig2SymbTimeout98, byte(symbols>>8)); err != nil {
		return err
	}
	if err := l.conn.WriteRegister(RegSymbTimeoutLsb, byte(symbols)); err != nil {
		return err
	}
	if err := l.conn.WriteRegister(RegFifoAddrPtr, 0); err != nil {
		return err
	}

	for _, f := range []field{fIrqMaskRxDone, fIrqMaskRxTimeout, fIrqMaskPayloadCrcError} {
		if err := l.write(f, 0); err != nil {
			return err
		}
	}
	for _, f := range []field{fIrqRxDone, fIrqRxTimeout, fIrqPayloadCrcError} {
		if err := l.write(f, 1); err != nil {
			return err
		}
	}
	return l.setMode(ModeRxSingle)
}

// CompleteRx reports whether the reception started by StartRx is done. When
// it is, up to len(buf) bytes of the packet are copied into buf and the
// received length is returned; n > len(buf) means the packet was truncated.
// A reception that timed out returns ErrTimeout, one with a bad CRC returns
// ErrInvalidMessage. Either way StartRx must be called again.
func (l *Lora) CompleteRx(buf []byte) (n int, done bool, err error) {
	timedOut, err := l.read(fIrqRxTimeout)
	if err != nil {
		return 0, false, err
	}
	if timedOut == 1 {
		return 0, false, errorf(ErrTimeout, "no packet before symbol timeout")
	}
	crcError, err := l.read(fIrqPayloadCrcError)
	if err != nil {
		return 0, false, err
	}
	if crcError == 1 {
		return 0, false, errorf(ErrInvalidMessage, "payload crc mismatch")
	}
	rxDone, err := l.read(fIrqRxDone)
	if err != nil || rxDone == 0 {
		return 0, false, err
	}

	start, err := l.conn.ReadRegister(RegFifoRxCurrentAddr)
	if err != nil {
		return 0, false, err
	}
	received, err := l.conn.ReadRegister(RegRxNbBytes)
	if err != nil {
		return 0, false, err
	}
	toCopy := int(received)
	if len(buf) < toCopy {
		toCopy = len(buf)
	}
	for i := 0; i < toCopy; i++ {
		// FIFO addresses wrap at 256.
		if err := l.conn.WriteRegister(RegFifoAddrPtr, start+byte(i)); err != nil {
			return 0, false, err
		}
		if buf[i], err = l.conn.ReadRegister(RegFifo); err != nil {
			return 0, false, err
		}
	}
	return int(received), true, nil
}

// PollMessage is CompleteRx plus the link quality of the packet. It returns
// a nil Message while the reception is in progress. Data holds at most
// len(buf) bytes and aliases buf.
func (l *Lora) PollMessage(buf []byte) (*Message, error) {
	n, done, err := l.CompleteRx(buf)
	if err != nil || !done {
		return nil, err
	}
	if n > len(buf) {
		n = len(buf)
	}
	rssi, err := l.PacketRSSI()
	if err != nil {
		return nil, err
	}
	snr, err := l.PacketSNR()
	if err != nil {
		return nil, err
	}
	return &Message{
		Data:     buf[:n],
		RSSI:     rssi,
		SNR:      snr,
		Strength: strength(rssi, snr),
	}, nil
}

// IRQFlags returns the raw interrupt flags.
func (l *Lora) IRQFlags() (IrqFlags, error) {
	v, err := l.conn.ReadRegister(RegIrqFlags)
	return IrqFlags(v), err
}

// PacketRSSI returns the RSSI of the last received packet in dBm.
func (l *Lora) PacketRSSI() (int16, error) {
	raw, err := l.conn.ReadRegister(RegPktRssiValue)
	if err != nil {
		return 0, err
	}
	lf, err := l.read(fOpModeLowFrequency)
	if err != nil {
		return 0, err
	}
	return rssi(raw, lf == 1), nil
}

// rssi applies the port offset. The band comes from LowFrequencyModeOn,
// which SetFrequency derives from the requested frequency; the read back
// frequency can round down across the threshold.
func rssi(raw byte, lowFrequency bool) int16 {
	if lowFrequency {
		return int16(raw) + RssiOffsetLfPort
	}
	return int16(raw) + RssiOffsetHfPort
}

// PacketSNR returns the SNR of the last received packet in dB.
func (l *Lora) PacketSNR() (int8, error) {
	raw, err := l.conn.ReadRegister(RegPktSnrValue)
	if err != nil {
		return 0, err
	}
	return snr(raw), nil
}

// snr decodes the two's complement quarter-dB register value.
func snr(raw byte) int8 { return int8(raw) / 4 }

// PacketStrength returns the signal strength of the last received packet in
// dBm. Unlike RSSI it accounts for LoRa demodulating below the noise floor.
func (l *Lora) PacketStrength() (int16, error) {
	s, err := l.PacketSNR()
	if err != nil {
		return 0, err
	}
	r, err := l.PacketRSSI()
	if err != nil {
		return 0, err
	}
	return strength(r, s), nil
}

func strength(rssi int16, snr int8) int16 {
	if snr < 0 {
		return rssi + int16(snr)
	}
	return rssi
}

func (l *Lora) read(f field) (byte, error) {
	v, err := l.conn.ReadRegister(f.reg)
	if err != nil {
		return 0, err
	}
	return f.decode(v), nil
}

func (l *Lora) write(f field, v byte) error {
	if f.w1c || f.mask == 0xff {
		return l.conn.WriteRegister(f.reg, f.encode(0, v))
	}
	old, err := l.conn.ReadRegister(f.reg)
	if err != nil {
		return err
	}
	return l.conn.WriteRegister(f.reg, f.encode(old, v))
}
