package rfm95

import "time"

// Config is the set of modem parameters two radios must agree on to talk to
// each other. It is applied as a unit by SetConfig and read back by
// Lora.Config.
type Config struct {
	SpreadingFactor SpreadingFactor
	Bandwidth       Bandwidth
	CodingRate      CodingRate
	Polarity        Polarity
	HeaderMode      HeaderMode
	CrcMode         CrcMode
	SyncWord        SyncWord
	PreambleLength  PreambleLength
	Frequency       Frequency
}

// DefaultConfig returns the RadioHead compatible Bw125Cr45Sf128 setup on the
// given carrier frequency.
func DefaultConfig(freq Frequency) Config {
	return Config{
		SpreadingFactor: SF7,
		Bandwidth:       BW125k,
		CodingRate:      CR4_5,
		Polarity:        PolarityNormal,
		HeaderMode:      HeaderExplicit,
		CrcMode:         CrcEnabled,
		SyncWord:        0x12,
		PreambleLength:  8,
		Frequency:       freq,
	}
}

// Validate checks every parameter against the hardware's range.
func (cfg Config) Validate() error {
	switch {
	case !cfg.SpreadingFactor.valid():
		return errorf(ErrInvalidArgument, "spreading factor %d out of range", uint8(cfg.SpreadingFactor))
	case cfg.SpreadingFactor == SF6 && cfg.HeaderMode != HeaderImplicit:
		return errorf(ErrInvalidArgument, "SF6 can only be used with implicit header mode")
	case !cfg.CodingRate.valid():
		return errorf(ErrInvalidArgument, "coding rate %d out of range", uint8(cfg.CodingRate))
	case cfg.Polarity > PolarityInverted:
		return errorf(ErrInvalidArgument, "bad IQ polarity %d", uint8(cfg.Polarity))
	case cfg.HeaderMode > HeaderImplicit:
		return errorf(ErrInvalidArgument, "bad header mode %d", uint8(cfg.HeaderMode))
	case cfg.CrcMode > CrcEnabled:
		return errorf(ErrInvalidArgument, "bad crc mode %d", uint8(cfg.CrcMode))
	}
	if _, err := cfg.Bandwidth.raw(); err != nil {
		return err
	}
	_, err := hzToRaw(cfg.Frequency)
	return err
}

// SymbolAirtime returns the symbol duration of the configuration.
func (cfg Config) SymbolAirtime() time.Duration {
	return SymbolAirtime(cfg.SpreadingFactor, cfg.Bandwidth)
}
