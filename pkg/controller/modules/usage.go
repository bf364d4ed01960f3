package modules

import (
	"encoding/json"
	"path"
	"time"

	"github.com/open-econet/econet-mqtt/pkg/config"
	"github.com/open-econet/econet-mqtt/pkg/econet"
	"github.com/open-econet/econet-mqtt/pkg/mqtt"
	"github.com/rs/zerolog/log"
)

const (
	energyUsage string = "energy_usage"
	waterUsage  string = "water_usage"
)

// Usage Module periodically fetches the water heater usage reports from the
// cloud and pushes them as JSON to the corresponding topic in the MQTT
// server. An interval of zero disables the module.
type UsageModule struct {
	mqttClient   mqtt.Client
	econetClient econet.Client

	normalizeDeviceName bool
	interval            time.Duration

	ticker     *time.Ticker
	tickerDone chan struct{}
}

func (c *UsageModule) Start() error {
	if c.interval <= 0 {
		log.Info().Msg("Usage reports disabled.")
		return nil
	}
	c.ticker = time.NewTicker(c.interval)
	c.tickerDone = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.tickerDone:
				return
			case <-c.ticker.C:
				c.publishUsageReports()
			}
		}
	}()
	return nil
}

func (c *UsageModule) Stop() error {
	if c.ticker == nil {
		return nil
	}
	c.ticker.Stop()
	c.tickerDone <- struct{}{}
	c.ticker = nil
	return nil
}

func (c *UsageModule) publishUsageReports() {
	log.Debug().Msg("Updating usage reports.")

	heaters, err := c.econetClient.GetWaterHeaters()
	if err != nil {
		log.Error().Err(err).Msg("Error fetching the water heaters on the account.")
		return
	}

	for _, heater := range heaters {
		energy, err := c.econetClient.GetEnergyUsage(heater.DeviceId)
		if err != nil {
			log.Error().
				Err(err).
				Str("deviceId", heater.DeviceId).
				Msg("Error fetching energy usage report.")
		} else {
			c.publishReport(heater.DeviceId, energyUsage, energy)
		}

		water, err := c.econetClient.GetWaterUsage(heater.DeviceId)
		if err != nil {
			log.Error().
				Err(err).
				Str("deviceId", heater.DeviceId).
				Msg("Error fetching water usage report.")
		} else {
			c.publishReport(heater.DeviceId, waterUsage, water)
		}
	}
}

func (c *UsageModule) publishReport(deviceId string, reportType string, report *econet.UsageReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		log.Error().
			Err(err).
			Str("deviceId", deviceId).
			Msg("Error serializing usage report to JSON.")
		return
	}
	if err := c.mqttClient.Publish(c.usageTopic(deviceId, reportType), payload); err != nil {
		log.Error().
			Err(err).
			Str("deviceId", deviceId).
			Str("reportType", reportType).
			Msg("Error publishing usage report.")
		return
	}
	usageReports.Inc()
}

func (c *UsageModule) usageTopic(deviceId string, reportType string) string {
	if c.normalizeDeviceName {
		deviceId = normalizeForTopicName(deviceId)
	}
	return path.Join(waterHeaters, deviceId, reportType, mqtt.State)
}

func NewUsageModule(mqttClient mqtt.Client, econetClient econet.Client, config *config.Config) Module {
	return &UsageModule{
		mqttClient:          mqttClient,
		econetClient:        econetClient,
		normalizeDeviceName: config.Mqtt.NormalizeDeviceName,
		interval:            config.UsageReportInterval,
	}
}

func init() {
	Register("usage", NewUsageModule)
}
