package ads7846

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/ads7846/components/board/buses"
)

// SimulatedPanel is an in-memory ADS7846 that answers control bytes the way the chip does.
// It implements buses.SPI so a Touch can run against it without hardware.
type SimulatedPanel struct {
	mu       sync.Mutex
	cond     *sync.Cond
	locked   bool
	queued   map[byte][]int
	steady   map[byte]int
	failNext error
	opened   int
	closed   int
	xfers    int
}

// NewSimulatedPanel returns a panel that nobody is touching.
func NewSimulatedPanel() *SimulatedPanel {
	s := &SimulatedPanel{
		queued: map[byte][]int{},
		steady: map[byte]int{},
	}
	s.cond = sync.NewCond(&s.mu)
	s.Lift()
	return s
}

// Press holds the panel down at raw position (x, y) with the given pressure (0..254).
func (s *SimulatedPanel) Press(x, y, pressure int) {
	z1, z2 := pressureToZ(pressure)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steady[chanXPosition] = x
	s.steady[chanYPosition] = y
	s.steady[chanZ1] = z1
	s.steady[chanZ2] = z2
}

// Lift releases the panel. Position channels keep their last values.
func (s *SimulatedPanel) Lift() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steady[chanZ1] = 0
	s.steady[chanZ2] = 0x7F
}

// QueueX queues conversion results for the X channel. Each conversion consumes one value; once
// the queue drains the steady value is returned again.
func (s *SimulatedPanel) QueueX(values ...int) {
	s.queue(chanXPosition, values)
}

// QueueY is QueueX for the Y channel.
func (s *SimulatedPanel) QueueY(values ...int) {
	s.queue(chanYPosition, values)
}

// QueuePressure queues pressure readings, one per pressure measurement.
func (s *SimulatedPanel) QueuePressure(values ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range values {
		z1, z2 := pressureToZ(p)
		s.queued[chanZ1] = append(s.queued[chanZ1], z1)
		s.queued[chanZ2] = append(s.queued[chanZ2], z2)
	}
}

// pressureToZ splits a pressure into the Z1 and Z2 readings that produce it.
func pressureToZ(pressure int) (int, int) {
	z1 := pressure
	if z1 > 0x7F {
		z1 = 0x7F
	}
	return z1, 0x7F - (pressure - z1)
}

func (s *SimulatedPanel) queue(channel byte, values []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[channel] = append(s.queued[channel], values...)
}

// FailNextXfer makes the next transfer return err.
func (s *SimulatedPanel) FailNextXfer(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Stats returns how many handles were opened and closed and how many transfers ran.
func (s *SimulatedPanel) Stats() (opened, closed, xfers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed, s.xfers
}

// OpenHandle claims the simulated bus, blocking while another handle is open.
func (s *SimulatedPanel) OpenHandle() (buses.SPIHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.locked {
		s.cond.Wait()
	}
	s.locked = true
	s.opened++
	return &simulatedHandle{panel: s}, nil
}

// Close releases nothing; the panel has no resources.
func (s *SimulatedPanel) Close(ctx context.Context) error {
	return nil
}

// conversion must be called with mu held.
func (s *SimulatedPanel) conversion(channel byte) int {
	if q := s.queued[channel]; len(q) != 0 {
		s.queued[channel] = q[1:]
		return q[0]
	}
	return s.steady[channel]
}

type simulatedHandle struct {
	panel  *SimulatedPanel
	closed bool
}

func (h *simulatedHandle) Xfer(ctx context.Context, baud uint, chipSelect string, mode uint, tx []byte) ([]byte, error) {
	if h.closed {
		return nil, errors.Errorf("simulated ads7846: transfer to chip select %q on a released handle", chipSelect)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := h.panel
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xfers++
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, err
	}

	rx := make([]byte, len(tx))
	for i := 0; i < len(tx); i++ {
		cmd := tx[i]
		if cmd&cmdStart == 0 {
			continue
		}
		value := s.conversion(cmd & 0x70)
		if cmd&mode8Bit != 0 {
			if i+1 < len(rx) {
				rx[i+1] = byte(value) & 0x7F
			}
			continue
		}
		word := uint16(value&maxReading) << 3
		if i+1 < len(rx) {
			rx[i+1] = byte(word >> 8)
		}
		if i+2 < len(rx) {
			rx[i+2] = byte(word)
		}
	}
	return rx, nil
}

func (h *simulatedHandle) Close() error {
	if h.closed {
		return errors.New("simulated ads7846: handle released twice")
	}
	h.closed = true
	s := h.panel
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
	s.closed++
	s.cond.Signal()
	return nil
}
