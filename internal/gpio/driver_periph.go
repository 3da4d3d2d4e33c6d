package gpio

import (
	"fmt"
	"time"

	pgpio "periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// PeriphDriver resolves pins through the periph.io registry.
type PeriphDriver struct{}

// NewPeriphDriver loads the periph host drivers.
func NewPeriphDriver() (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}
	return &PeriphDriver{}, nil
}

// Name implements Driver.
func (*PeriphDriver) Name() string { return DriverPeriph }

// Open implements Driver.
func (*PeriphDriver) Open(name string) (Pin, error) {
	for _, candidate := range candidateNames(name) {
		if p := gpioreg.ByName(candidate); p != nil {
			return &periphPin{io: p}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
}

// Close implements Driver. periph has no global teardown.
func (*PeriphDriver) Close() error { return nil }

type periphPin struct {
	io pgpio.PinIO
}

func (p *periphPin) Name() string { return p.io.Name() }

func (p *periphPin) ConfigureInput(watch bool) error {
	edge := pgpio.NoEdge
	if watch {
		edge = pgpio.BothEdges
	}
	if err := p.io.In(pgpio.PullNoChange, edge); err != nil {
		return fmt.Errorf("configuring %s as input: %w", p.io.Name(), err)
	}
	return nil
}

func (p *periphPin) ConfigureOutput(high bool) error {
	if err := p.io.Out(periphLevel(high)); err != nil {
		return fmt.Errorf("configuring %s as output: %w", p.io.Name(), err)
	}
	return nil
}

func (p *periphPin) Read() (bool, error) {
	return p.io.Read() == pgpio.High, nil
}

func (p *periphPin) Write(high bool) error {
	if err := p.io.Out(periphLevel(high)); err != nil {
		return fmt.Errorf("writing %s: %w", p.io.Name(), err)
	}
	return nil
}

func (p *periphPin) WaitForEdge(timeout time.Duration) bool {
	return p.io.WaitForEdge(timeout)
}

func (p *periphPin) Halt() error {
	return p.io.Halt()
}

func periphLevel(high bool) pgpio.Level {
	if high {
		return pgpio.High
	}
	return pgpio.Low
}
