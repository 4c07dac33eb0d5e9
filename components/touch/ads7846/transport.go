package ads7846

import (
	"context"

	"go.uber.org/multierr"
)

// Control byte: S | A2 A1 A0 | MODE | SER/DFR | PD1 PD0.
const (
	cmdStart = 0x80

	chanYPosition = 0x10
	chanZ1        = 0x30
	chanZ2        = 0x40
	chanXPosition = 0x50

	mode8Bit = 0x08

	// Differential reference, powered down between conversions with PENIRQ enabled.
	cmdDiffPowerDown = 0x00

	spiMode = 0
)

// exchange lays out one transaction. writeByte queues a command byte; readByte queues a null
// byte and returns the index of the rx byte clocked in alongside it.
type exchange struct {
	tx []byte
}

func (e *exchange) writeByte(b byte) {
	e.tx = append(e.tx, b)
}

func (e *exchange) readByte() int {
	e.tx = append(e.tx, 0x00)
	return len(e.tx) - 1
}

// transaction clocks ex out as one chip-select-bracketed transfer. The bus handle is released
// on every return path. Missing rx bytes read as zero.
func (t *Touch) transaction(ctx context.Context, ex *exchange) (rx []byte, err error) {
	handle, err := t.bus.OpenHandle()
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()

	rx, err = handle.Xfer(ctx, t.baud, t.chipSelect, spiMode, ex.tx)
	if err != nil {
		return nil, err
	}
	if len(rx) < len(ex.tx) {
		padded := make([]byte, len(ex.tx))
		copy(padded, rx)
		rx = padded
	}
	return rx, nil
}
