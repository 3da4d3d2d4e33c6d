package gpio

import (
	"fmt"
	"sync"
	"time"

	rpio "github.com/stianeikeland/go-rpio"
)

// rpioPollInterval is how often WaitForEdge samples a line; go-rpio has no
// interrupt-driven edge wait.
const rpioPollInterval = 10 * time.Millisecond

// rpioMaxLine is the highest BCM line on the 40-pin header.
const rpioMaxLine = 27

// RPIODriver drives pins through /dev/gpiomem with go-rpio.
type RPIODriver struct {
	closeOnce sync.Once
}

// NewRPIODriver maps the GPIO registers.
func NewRPIODriver() (*RPIODriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening rpio: %w", err)
	}
	return &RPIODriver{}, nil
}

// Name implements Driver.
func (*RPIODriver) Name() string { return DriverRPIO }

// Open implements Driver. The trailing number of name is the BCM line.
func (*RPIODriver) Open(name string) (Pin, error) {
	n, err := lineNumber(name)
	if err != nil {
		return nil, err
	}
	if n > rpioMaxLine {
		return nil, fmt.Errorf("%w: %q (BCM %d out of range)", ErrPinNotFound, name, n)
	}
	return &rpioPin{name: name, line: rpio.Pin(n)}, nil
}

// Close implements Driver and unmaps the registers.
func (d *RPIODriver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = rpio.Close()
	})
	return err
}

type rpioPin struct {
	name string
	line rpio.Pin
}

func (p *rpioPin) Name() string { return p.name }

func (p *rpioPin) ConfigureInput(bool) error {
	p.line.Input()
	p.line.PullOff()
	return nil
}

func (p *rpioPin) ConfigureOutput(high bool) error {
	p.line.Output()
	return p.Write(high)
}

func (p *rpioPin) Read() (bool, error) {
	return p.line.Read() == rpio.High, nil
}

func (p *rpioPin) Write(high bool) error {
	if high {
		p.line.High()
	} else {
		p.line.Low()
	}
	return nil
}

// WaitForEdge polls until three consecutive samples agree on a new level.
func (p *rpioPin) WaitForEdge(timeout time.Duration) bool {
	start := p.line.Read()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		time.Sleep(rpioPollInterval)
		a, b, c := p.line.Read(), p.line.Read(), p.line.Read()
		if a == b && b == c && a != start {
			return true
		}
	}
	return false
}

// Halt returns the line to a floating input.
func (p *rpioPin) Halt() error {
	p.line.Input()
	p.line.PullOff()
	return nil
}
