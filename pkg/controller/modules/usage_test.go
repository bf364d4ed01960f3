package modules

import (
	"testing"

	"github.com/open-econet/econet-mqtt/pkg/econet"
	"github.com/stretchr/testify/assert"
)

func TestUsageTopics(t *testing.T) {
	module := UsageModule{normalizeDeviceName: true}

	assert.Equal(t, "water_heaters/WH-1/energy_usage/state", module.usageTopic("WH-1", energyUsage))
	assert.Equal(t, "water_heaters/My_Heater/water_usage/state", module.usageTopic("My Heater", waterUsage))
}

func TestPublishUsageReports(t *testing.T) {
	mqttClient := newFakeMqttClient()
	econetClient := &fakeEconetClient{waterHeaters: []econet.WaterHeater{testWaterHeater()}}
	module := UsageModule{mqttClient: mqttClient, econetClient: econetClient}

	module.publishUsageReports()

	energy := mqttClient.payload("water_heaters/WH-1/energy_usage/state")
	assert.Contains(t, energy, `"device_id":"WH-1"`)
	assert.Contains(t, energy, `"message":"kWh"`)
	assert.Contains(t, energy, "2.25")

	water := mqttClient.payload("water_heaters/WH-1/water_usage/state")
	assert.Contains(t, water, `"device_id":"WH-1"`)
	assert.NotContains(t, water, "message", "water reports carry no message field")
}

func TestUsageModuleDisabled(t *testing.T) {
	module := UsageModule{interval: 0}

	assert.NoError(t, module.Start())
	assert.Nil(t, module.ticker, "a zero interval must not start the ticker")
	assert.NoError(t, module.Stop())
}
