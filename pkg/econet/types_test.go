package econet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// catalogWaterHeater builds an equipment entry the way the backend sends
// it, with the dual scalar/object field encoding.
func catalogWaterHeater() map[string]interface{} {
	return map[string]interface{}{
		"device_type":   "WH",
		"device_name":   "wh-1",
		"serial_number": "SN-100",
		"@NAME":         map[string]interface{}{"value": "Garage Heater"},
		"@ENABLED":      1.0,
		"@RUNNING":      "Heat Pump Running",
		"@CONNECTED":    true,
		"@MODE": map[string]interface{}{
			"value": 1.0,
			"constraints": map[string]interface{}{
				"enumText": []interface{}{"Off", "Energy Saver", "Heat Pump Only"},
			},
		},
		"@SETPOINT": map[string]interface{}{
			"value": 125.0,
			"constraints": map[string]interface{}{
				"lowerLimit": 95.0,
				"upperLimit": 135.0,
			},
		},
		"@HOTWATER": "Hundred_Percent",
	}
}

func TestParseWaterHeater(t *testing.T) {
	wh := parseWaterHeater(catalogWaterHeater())

	assert.Equal(t, "wh-1", wh.DeviceId)
	assert.Equal(t, "SN-100", wh.SerialNumber)
	assert.Equal(t, "Garage Heater", wh.Name)
	assert.True(t, wh.Enabled)
	assert.True(t, wh.Running, "presence of the running tag means running")
	assert.Equal(t, "Heat Pump Running", wh.RunningStatus)
	assert.True(t, wh.Connected)
	assert.Equal(t, 1, wh.Mode)
	assert.Equal(t, "Energy Saver", wh.ModeName)
	assert.Equal(t, []string{"Off", "Energy Saver", "Heat Pump Only"}, wh.AvailableModes)
	assert.Equal(t, 125, wh.Setpoint)
	assert.Equal(t, 95, wh.SetpointMin)
	assert.Equal(t, 135, wh.SetpointMax)
	assert.Equal(t, 100, wh.HotWaterLevel)
}

func TestParseWaterHeaterDefaults(t *testing.T) {
	wh := parseWaterHeater(map[string]interface{}{
		"device_type": "WH",
		"device_name": "wh-bare",
	})

	assert.Equal(t, "wh-bare", wh.Name, "name should default to the device id")
	assert.False(t, wh.Enabled)
	assert.False(t, wh.Running)
	assert.False(t, wh.Connected)
	assert.Equal(t, 0, wh.Mode)
	assert.Equal(t, "", wh.ModeName, "no modes means no mode name")
	assert.Empty(t, wh.AvailableModes)
	assert.Equal(t, 120, wh.Setpoint)
	assert.Equal(t, 90, wh.SetpointMin)
	assert.Equal(t, 140, wh.SetpointMax)
	assert.Equal(t, 0, wh.HotWaterLevel)
}

func TestParseThermostat(t *testing.T) {
	th := parseThermostat(map[string]interface{}{
		"device_type":    "HVAC",
		"device_name":    "th-1",
		"serial_number":  "SN-200",
		"@NAME":          "Hallway",
		"@ENABLED":       1.0,
		"@RUNNINGSTATUS": "Cooling",
		"@CONNECTED":     true,
		"@MODE": map[string]interface{}{
			"value": 2.0,
			"constraints": map[string]interface{}{
				"enumText": []interface{}{"Off", "Heating", "Cooling"},
			},
		},
		"@HEATSETPOINT": 68.0,
		"@COOLSETPOINT": 75.0,
		"@HUMIDITY":     40.0,
		"@FANMODE":      1.0,
		"@FANSPEED":     2.0,
	})

	assert.Equal(t, "th-1", th.DeviceId)
	assert.Equal(t, "Hallway", th.Name)
	assert.True(t, th.Running)
	assert.Equal(t, "Cooling", th.RunningStatus)
	assert.Equal(t, "Cooling", th.ModeName)
	assert.Equal(t, 68, th.HeatSetpoint)
	assert.Equal(t, 75, th.CoolSetpoint)
	assert.Equal(t, 40, th.Humidity)
	assert.Equal(t, 1, th.FanMode)
	assert.Equal(t, 2, th.FanSpeed)
}

func TestParseThermostatDefaults(t *testing.T) {
	th := parseThermostat(map[string]interface{}{
		"device_type": "HVAC",
		"device_name": "th-bare",
	})

	assert.Equal(t, 70, th.HeatSetpoint)
	assert.Equal(t, 78, th.CoolSetpoint)
	assert.False(t, th.Running)
}

func TestWaterHeaterPartialMerge(t *testing.T) {
	wh := parseWaterHeater(catalogWaterHeater())

	updated := wh.applyReport(map[string]interface{}{
		"device_name": "wh-1",
		"@SETPOINT":   130.0,
	})

	assert.Equal(t, []string{"@SETPOINT"}, updated)
	assert.Equal(t, 130, wh.Setpoint, "setpoint should be merged")
	// Everything else keeps its pre-merge value.
	assert.Equal(t, 1, wh.Mode)
	assert.Equal(t, "Energy Saver", wh.ModeName)
	assert.True(t, wh.Running)
	assert.Equal(t, 100, wh.HotWaterLevel)
	assert.True(t, wh.Enabled)
}

func TestWaterHeaterMergeModeUpdatesName(t *testing.T) {
	wh := parseWaterHeater(catalogWaterHeater())

	wh.applyReport(map[string]interface{}{"@MODE": 2.0})
	assert.Equal(t, 2, wh.Mode)
	assert.Equal(t, "Heat Pump Only", wh.ModeName)

	// An index outside the enumeration keeps the previous name.
	wh.applyReport(map[string]interface{}{"@MODE": 9.0})
	assert.Equal(t, 9, wh.Mode)
	assert.Equal(t, "Heat Pump Only", wh.ModeName)
}

func TestThermostatPartialMerge(t *testing.T) {
	th := parseThermostat(map[string]interface{}{
		"device_type":   "HVAC",
		"device_name":   "th-1",
		"@HEATSETPOINT": 68.0,
		"@COOLSETPOINT": 75.0,
	})

	updated := th.applyReport(map[string]interface{}{
		"@COOLSETPOINT": 72.0,
		"@HUMIDITY":     55.0,
	})

	assert.ElementsMatch(t, []string{"@COOLSETPOINT", "@HUMIDITY"}, updated)
	assert.Equal(t, 68, th.HeatSetpoint, "heat setpoint should be untouched")
	assert.Equal(t, 72, th.CoolSetpoint)
	assert.Equal(t, 55, th.Humidity)
}

func TestParseHotWaterLevel(t *testing.T) {
	assert.Equal(t, 100, parseHotWaterLevel("hundred"))
	assert.Equal(t, 100, parseHotWaterLevel("Hundred_Percent"))
	assert.Equal(t, 100, parseHotWaterLevel("100"))
	assert.Equal(t, 100, parseHotWaterLevel("Full"))
	assert.Equal(t, 40, parseHotWaterLevel("FourtyPercent"))
	assert.Equal(t, 40, parseHotWaterLevel("forty"))
	assert.Equal(t, 40, parseHotWaterLevel("40"))
	assert.Equal(t, 10, parseHotWaterLevel("TenPercent"))
	assert.Equal(t, 10, parseHotWaterLevel("10"))
	assert.Equal(t, 0, parseHotWaterLevel("Empty"))
	assert.Equal(t, 0, parseHotWaterLevel("zero"))
	assert.Equal(t, 0, parseHotWaterLevel(""))
	assert.Equal(t, 0, parseHotWaterLevel("something else"))
}

func TestCloneIsolatesAvailableModes(t *testing.T) {
	wh := parseWaterHeater(catalogWaterHeater())

	cloned := wh.clone()
	cloned.AvailableModes[0] = "mutated"
	cloned.Setpoint = 1

	assert.Equal(t, "Off", wh.AvailableModes[0], "clone must not share the modes slice")
	assert.Equal(t, 125, wh.Setpoint)
}
