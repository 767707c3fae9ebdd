package extension

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

const (
	minEraPeriod = 4
	maxEraPeriod = 1 << 16
)

// Era is the validity window of a transaction. An immortal era is valid
// forever, a mortal one for Period blocks starting at the block whose number
// modulo Period equals Phase.
type Era struct {
	Immortal bool
	Period   uint64
	Phase    uint64
}

func ImmortalEra() Era {
	return Era{Immortal: true}
}

// MortalEra returns the era starting at the given block and lasting roughly
// period blocks. The period is rounded to the next power of two and clamped
// to [4, 65536].
func MortalEra(period, current uint64) Era {
	p := uint64(1)
	if period > 1 {
		p = 1 << bits.Len64(period-1)
	}
	if p < minEraPeriod {
		p = minEraPeriod
	}
	if p > maxEraPeriod {
		p = maxEraPeriod
	}

	phase := current % p
	quantizeFactor := max(p>>12, 1)
	quantizedPhase := phase / quantizeFactor * quantizeFactor

	return Era{Period: p, Phase: quantizedPhase}
}

// Validate checks that a mortal era has a power of two period in
// [4, 65536] and a quantized phase below the period, the only eras that
// have a wire encoding.
func (e Era) Validate() error {
	if e.Immortal {
		return nil
	}
	if e.Period < minEraPeriod || e.Period > maxEraPeriod || bits.OnesCount64(e.Period) != 1 {
		return fmt.Errorf("invalid mortal era period %d", e.Period)
	}
	quantizeFactor := max(e.Period>>12, 1)
	if e.Phase >= e.Period || e.Phase%quantizeFactor != 0 {
		return fmt.Errorf("invalid mortal era phase %d for period %d", e.Phase, e.Period)
	}
	return nil
}

// Birth returns the first block number of the era containing current.
func (e Era) Birth(current uint64) uint64 {
	if e.Immortal {
		return 0
	}
	return (max(current, e.Phase)-e.Phase)/e.Period*e.Period + e.Phase
}

func (e Era) toExtrinsicEra() types.ExtrinsicEra {
	if e.Immortal {
		return types.ExtrinsicEra{IsImmortalEra: true}
	}
	quantizeFactor := max(e.Period>>12, 1)
	low := uint64(bits.TrailingZeros64(e.Period)) - 1
	low = min(max(low, 1), 15)
	encoded := uint16(low) | uint16((e.Phase/quantizeFactor)<<4)

	return types.ExtrinsicEra{
		IsMortalEra: true,
		AsMortalEra: types.MortalEra{First: byte(encoded), Second: byte(encoded >> 8)},
	}
}

func (e Era) encodeTo(buf *bytes.Buffer) {
	writeValue(buf, e.toExtrinsicEra())
}

func decodeEra(r *bytes.Reader) (Era, error) {
	var era types.ExtrinsicEra
	if err := scale.NewDecoder(r).Decode(&era); err != nil {
		return Era{}, fmt.Errorf("failed to decode era: %w", err)
	}
	if era.IsImmortalEra {
		return ImmortalEra(), nil
	}

	encoded := uint64(era.AsMortalEra.First) | uint64(era.AsMortalEra.Second)<<8
	period := uint64(2) << (encoded % 16)
	if period < minEraPeriod {
		return Era{}, fmt.Errorf("invalid mortal era period %d", period)
	}
	quantizeFactor := max(period>>12, 1)
	phase := (encoded >> 4) * quantizeFactor
	if phase >= period {
		return Era{}, fmt.Errorf("invalid mortal era phase %d for period %d", phase, period)
	}
	return Era{Period: period, Phase: phase}, nil
}

func (e Era) String() string {
	if e.Immortal {
		return "immortal"
	}
	return fmt.Sprintf("mortal(period=%d, phase=%d)", e.Period, e.Phase)
}
