package econet

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func registryWith(waterHeaters ...*WaterHeater) *registry {
	r := newRegistry()
	r.reset(waterHeaters, nil)
	return r
}

func TestWaterHeaterLookupById(t *testing.T) {
	r := registryWith(
		&WaterHeater{DeviceId: "wh-1", Setpoint: 120},
		&WaterHeater{DeviceId: "wh-2", Setpoint: 130},
	)

	wh, err := r.waterHeater("wh-2")
	assert.NoError(t, err)
	assert.Equal(t, 130, wh.Setpoint)

	_, err = r.waterHeater("wh-9")
	assert.True(t, errors.Is(err, ErrNotFound), "unknown id should be a not found error")
}

func TestWaterHeaterLookupWithoutId(t *testing.T) {
	r := registryWith()
	_, err := r.waterHeater("")
	assert.True(t, errors.Is(err, ErrNotFound), "empty registry should be a not found error")

	r = registryWith(&WaterHeater{DeviceId: "wh-1"})
	wh, err := r.waterHeater("")
	assert.NoError(t, err, "sole device should resolve without id")
	assert.Equal(t, "wh-1", wh.DeviceId)

	r = registryWith(&WaterHeater{DeviceId: "wh-1"}, &WaterHeater{DeviceId: "wh-2"})
	_, err = r.waterHeater("")
	assert.True(t, errors.Is(err, ErrNotFound), "ambiguous lookup should be a not found error")
	assert.Contains(t, err.Error(), "device id required")
}

func TestThermostatLookupWithoutId(t *testing.T) {
	r := newRegistry()
	r.reset(nil, []*Thermostat{{DeviceId: "th-1"}})

	th, err := r.thermostat("")
	assert.NoError(t, err)
	assert.Equal(t, "th-1", th.DeviceId)

	_, err = r.thermostat("th-9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSnapshotsAreCopies(t *testing.T) {
	r := registryWith(&WaterHeater{
		DeviceId:       "wh-1",
		Setpoint:       120,
		AvailableModes: []string{"Off", "Energy Saver"},
	})

	wh, err := r.waterHeater("wh-1")
	assert.NoError(t, err)
	wh.Setpoint = 1
	wh.AvailableModes[0] = "mutated"

	again, err := r.waterHeater("wh-1")
	assert.NoError(t, err)
	assert.Equal(t, 120, again.Setpoint, "mutating a snapshot must not touch the registry")
	assert.Equal(t, "Off", again.AvailableModes[0])
}

func TestEquipmentListsAreSorted(t *testing.T) {
	r := registryWith(
		&WaterHeater{DeviceId: "wh-b"},
		&WaterHeater{DeviceId: "wh-a"},
	)

	equipment := r.equipment()
	assert.Equal(t, "wh-a", equipment.WaterHeaters[0].DeviceId)
	assert.Equal(t, "wh-b", equipment.WaterHeaters[1].DeviceId)
	assert.Empty(t, equipment.Thermostats)
}

func TestApplyReportRouting(t *testing.T) {
	r := newRegistry()
	r.reset(
		[]*WaterHeater{{DeviceId: "wh-1"}},
		[]*Thermostat{{DeviceId: "th-1", HeatSetpoint: 70}},
	)

	notification, ok := r.applyReport(map[string]interface{}{
		"device_name": "wh-1",
		"@SETPOINT":   125.0,
	})
	assert.True(t, ok)
	assert.Equal(t, DeviceTypeWaterHeater, notification.DeviceType)
	assert.Equal(t, []string{"@SETPOINT"}, notification.Fields)

	notification, ok = r.applyReport(map[string]interface{}{
		"device_name":   "th-1",
		"@HEATSETPOINT": 72.0,
	})
	assert.True(t, ok)
	assert.Equal(t, DeviceTypeThermostat, notification.DeviceType)

	th, err := r.thermostat("th-1")
	assert.NoError(t, err)
	assert.Equal(t, 72, th.HeatSetpoint)
}

func TestApplyReportDropsUnknownDevices(t *testing.T) {
	r := registryWith(&WaterHeater{DeviceId: "wh-1"})

	_, ok := r.applyReport(map[string]interface{}{
		"device_name": "ghost",
		"@SETPOINT":   125.0,
	})
	assert.False(t, ok)

	_, ok = r.applyReport(map[string]interface{}{"@SETPOINT": 125.0})
	assert.False(t, ok, "payload without device id should be dropped")

	_, ok = r.applyReport(map[string]interface{}{
		"device_name": "wh-1",
		"@UNKNOWN":    1.0,
	})
	assert.False(t, ok, "payload without known tags should not notify")
}

func TestUpdateWaterHeaterIgnoresUnknownId(t *testing.T) {
	r := registryWith(&WaterHeater{DeviceId: "wh-1", Setpoint: 120})

	r.updateWaterHeater("ghost", func(wh *WaterHeater) {
		wh.Setpoint = 1
	})

	wh, err := r.waterHeater("wh-1")
	assert.NoError(t, err)
	assert.Equal(t, 120, wh.Setpoint)
}

// Merges pair the mode index with a derived setpoint. Readers running in
// parallel must never observe a snapshot mixing two different merges.
func TestConcurrentMergesAreAtomic(t *testing.T) {
	r := registryWith(&WaterHeater{
		DeviceId:       "wh-1",
		Mode:           0,
		Setpoint:       100,
		AvailableModes: []string{"Off", "Energy Saver", "Heat Pump Only"},
	})

	const writers = 4
	const messagesPerWriter = 250
	const readers = 4

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < messagesPerWriter; i++ {
				mode := (seed + i) % 3
				r.applyReport(map[string]interface{}{
					"device_name": "wh-1",
					"@MODE":       float64(mode),
					"@SETPOINT":   float64(100 + mode*10),
				})
			}
		}(w)
	}

	failures := make(chan string, readers)
	for reader := 0; reader < readers; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < messagesPerWriter; i++ {
				wh, err := r.waterHeater("wh-1")
				if err != nil {
					failures <- err.Error()
					return
				}
				if wh.Setpoint != 100+wh.Mode*10 {
					failures <- fmt.Sprintf("torn snapshot: mode=%d setpoint=%d", wh.Mode, wh.Setpoint)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(failures)
	for failure := range failures {
		t.Error(failure)
	}
}
