package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriver_Unknown(t *testing.T) {
	_, err := NewDriver("sysfs")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestCandidateNames(t *testing.T) {
	assert.Equal(t, []string{"GPIO_34", "GPIO34"}, candidateNames("GPIO_34"))
	assert.Equal(t, []string{"GPIO4"}, candidateNames("GPIO4"))
	assert.Equal(t, []string{"gpio_4", "gpio4", "GPIO_4", "GPIO4"}, candidateNames("gpio_4"))
}

func TestLineNumber(t *testing.T) {
	for name, want := range map[string]int{"GPIO_17": 17, "BCM4": 4, "27": 27} {
		n, err := lineNumber(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, n, name)
	}

	_, err := lineNumber("LED")
	assert.ErrorIs(t, err, ErrPinNotFound)
}

func TestRPIODriver_OpenRange(t *testing.T) {
	d := &RPIODriver{}

	p, err := d.Open("GPIO_17")
	require.NoError(t, err)
	assert.Equal(t, "GPIO_17", p.Name())

	_, err = d.Open("GPIO_34")
	assert.ErrorIs(t, err, ErrPinNotFound)
}
