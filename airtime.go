package rfm95

import (
	"math"
	"time"
)

// ldoSymbolThreshold is the symbol duration above which low data rate
// optimization is mandated.
const ldoSymbolThreshold = 16 * time.Millisecond

// SymbolAirtime returns the duration of a single modulation symbol, 2^sf/bw.
func SymbolAirtime(sf SpreadingFactor, bw Bandwidth) time.Duration {
	if bw == 0 {
		return 0
	}
	return time.Second * time.Duration(sf.ChipsPerSymbol()) / time.Duration(bw.Hertz())
}

// NeedsLDO reports whether the combination of spreading factor and bandwidth
// produces symbols long enough to require low data rate optimization.
func NeedsLDO(sf SpreadingFactor, bw Bandwidth) bool {
	return SymbolAirtime(sf, bw) > ldoSymbolThreshold
}

// TimeOnAir estimates how long a packet with payloadLength bytes takes to
// transmit with the given configuration. It depends on:
//   - Bandwidth and spreading factor (symbol duration)
//   - CRC presence (presence == longer)
//   - Header mode (explicit == longer)
//   - Coding rate and preamble length
//   - Low data rate optimization, derived from the symbol duration
func TimeOnAir(cfg Config, payloadLength int) time.Duration {
	symbol := SymbolAirtime(cfg.SpreadingFactor, cfg.Bandwidth)
	if symbol == 0 {
		return 0
	}
	sf := int64(cfg.SpreadingFactor)
	crc := int64(cfg.CrcMode)
	ih := int64(cfg.HeaderMode)
	de := int64(b2u8(NeedsLDO(cfg.SpreadingFactor, cfg.Bandwidth)))
	cr := int64(cfg.CodingRate)

	payload := 8*int64(payloadLength) - 4*sf + 28 + 16*crc - 20*ih
	div := 4 * (sf - 2*de)
	if payload < 0 || div <= 0 {
		payload = 0
	} else {
		payload = ceilDiv64(payload, div) * (cr + 4)
	}
	payload += 8
	// The modem adds 4.25 symbols to the programmed preamble; count quarters.
	quarters := 4*int64(cfg.PreambleLength) + 17 + 4*payload
	return symbol * time.Duration(quarters) / 4
}

// saturatingMul multiplies d by n, clamping at the largest duration.
func saturatingMul(d time.Duration, n int64) time.Duration {
	if d != 0 && n > math.MaxInt64/int64(d) {
		return math.MaxInt64
	}
	return d * time.Duration(n)
}

// ceilDiv returns the ceiling of a/b for non-negative a and positive b.
func ceilDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func ceilDiv64(a, b int64) int64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
