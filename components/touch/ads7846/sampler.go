package ads7846

import (
	"context"
)

// decode12 extracts a 12-bit conversion from the two bytes following its command. The first
// clock after the command is the busy bit and the last three are padding.
func decode12(hi, lo byte) int {
	return int((uint16(hi)<<8|uint16(lo))>>3) & maxReading
}

// readAxis converts one axis twice within one transaction and accepts the reading only when
// the two conversions agree within the tolerance.
func (t *Touch) readAxis(ctx context.Context, channel byte) (int, bool, error) {
	cmd := byte(cmdStart | channel | cmdDiffPowerDown)

	var ex exchange
	ex.writeByte(cmd)
	hi1, lo1 := ex.readByte(), ex.readByte()
	ex.writeByte(cmd)
	hi2, lo2 := ex.readByte(), ex.readByte()

	rx, err := t.transaction(ctx, &ex)
	if err != nil {
		return 0, false, err
	}

	first := decode12(rx[hi1], rx[lo1])
	second := decode12(rx[hi2], rx[lo2])
	diff := first - second
	if diff < 0 {
		diff = -diff
	}
	if diff > t.tolerance {
		t.logger.Debugw("rejecting noisy sample", "channel", channel, "first", first, "second", second)
		return 0, false, nil
	}
	return second, true, nil
}

func (t *Touch) readRawX(ctx context.Context) (int, bool, error) {
	return t.readAxis(ctx, chanXPosition)
}

func (t *Touch) readRawY(ctx context.Context) (int, bool, error) {
	return t.readAxis(ctx, chanYPosition)
}

// readPressure measures Z1 and Z2 in 8-bit mode. Near zero means nothing is touching the
// panel.
func (t *Touch) readPressure(ctx context.Context) (int, error) {
	var ex exchange
	ex.writeByte(cmdStart | chanZ1 | mode8Bit | cmdDiffPowerDown)
	z1Idx := ex.readByte()
	ex.writeByte(cmdStart | chanZ2 | mode8Bit | cmdDiffPowerDown)
	z2Idx := ex.readByte()

	rx, err := t.transaction(ctx, &ex)
	if err != nil {
		return 0, err
	}

	z1 := int(rx[z1Idx] & 0x7F)
	z2 := int(rx[z2Idx] & 0x7F)
	pressure := z1 + (0x7F - z2)
	if pressure < 0 {
		pressure = 0
	}
	return pressure, nil
}
