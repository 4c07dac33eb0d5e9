package buses

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// NewSPIBus returns the Linux spidev bus a touch controller hangs off, e.g. busSelect "0" for
// /dev/spidev0.*, with the chip select picking the device node. The periph host drivers must
// already be registered (host.Init) before the first Xfer. Handles are handed out one at a
// time, so a panel and a display sharing the bus never interleave transfers.
func NewSPIBus(busSelect string) SPI {
	return &spiBus{bus: busSelect}
}

type spiBus struct {
	mu         sync.Mutex
	openHandle *spiHandle
	bus        string
}

type spiHandle struct {
	bus      *spiBus
	isClosed bool
}

func (sb *spiBus) OpenHandle() (SPIHandle, error) {
	sb.mu.Lock()
	sb.openHandle = &spiHandle{bus: sb, isClosed: false}
	return sb.openHandle, nil
}

func (sb *spiBus) Close(ctx context.Context) error {
	return nil
}

func (sh *spiHandle) Xfer(ctx context.Context, baud uint, chipSelect string, mode uint, tx []byte) (rx []byte, err error) {
	if sh.isClosed {
		return nil, errors.Errorf("spi bus %s: transfer to chip select %q on a released handle", sh.bus.bus, chipSelect)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port, err := spireg.Open(fmt.Sprintf("SPI%s.%s", sh.bus.bus, chipSelect))
	if err != nil {
		return nil, errors.Wrapf(err, "opening spi bus %s chip select %q", sh.bus.bus, chipSelect)
	}
	defer func() {
		err = multierr.Combine(err, port.Close())
	}()
	conn, err := port.Connect(physic.Hertz*physic.Frequency(baud), spi.Mode(mode), 8)
	if err != nil {
		return nil, errors.Wrapf(err, "configuring spi bus %s for %d Hz mode %d", sh.bus.bus, baud, mode)
	}
	rx = make([]byte, len(tx))
	return rx, conn.Tx(tx, rx)
}

func (sh *spiHandle) Close() error {
	if sh.isClosed {
		return errors.Errorf("spi bus %s: handle released twice", sh.bus.bus)
	}
	sh.isClosed = true
	sh.bus.openHandle = nil
	sh.bus.mu.Unlock()
	return nil
}
