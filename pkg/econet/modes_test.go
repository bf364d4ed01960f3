package econet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeModeName(t *testing.T) {
	assert.Equal(t, "energy_saver", normalizeModeName("Energy Saver"))
	assert.Equal(t, "heat_pump_only", normalizeModeName("Heat-Pump-Only"))
	assert.Equal(t, "off", normalizeModeName("OFF"))
	assert.Equal(t, "high_demand", normalizeModeName("High demand"))
}

func TestResolveModeIndexExactMatch(t *testing.T) {
	available := []string{"Off", "Energy Saver", "Heat Pump Only", "High Demand"}

	index, err := resolveModeIndex("energy saver", available)
	assert.NoError(t, err)
	assert.Equal(t, 1, index)

	index, err = resolveModeIndex("HEAT-PUMP-ONLY", available)
	assert.NoError(t, err)
	assert.Equal(t, 2, index)
}

func TestResolveModeIndexAliases(t *testing.T) {
	available := []string{"Off", "Energy Saver", "Heat Pump Only", "High Demand"}

	// Every accepted spelling of an alias must land on the same index.
	for _, spelling := range []string{"energy_saving", "Energy Saving", "energysaving", "energy-saver"} {
		index, err := resolveModeIndex(spelling, available)
		assert.NoError(t, err, "spelling '%s' should resolve", spelling)
		assert.Equal(t, 1, index, "spelling '%s' resolved to the wrong index", spelling)
	}

	for _, spelling := range []string{"heat_pump", "heatpump", "Heat Pump"} {
		index, err := resolveModeIndex(spelling, available)
		assert.NoError(t, err, "spelling '%s' should resolve", spelling)
		assert.Equal(t, 2, index, "spelling '%s' resolved to the wrong index", spelling)
	}

	index, err := resolveModeIndex("highdemand", available)
	assert.NoError(t, err)
	assert.Equal(t, 3, index)
}

func TestResolveModeIndexUnknown(t *testing.T) {
	available := []string{"Off", "Energy Saver"}

	_, err := resolveModeIndex("turbo", available)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation), "unknown mode should be a validation error")
	assert.Contains(t, err.Error(), "Energy Saver", "error should list the available modes")
}

func TestResolveModeIndexFirstMatchWins(t *testing.T) {
	// Duplicate entries can show up on some firmwares, the first index wins.
	available := []string{"Energy Saver", "Energy Saver"}

	index, err := resolveModeIndex("energy_saving", available)
	assert.NoError(t, err)
	assert.Equal(t, 0, index)
}
