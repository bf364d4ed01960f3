package modules

import (
	"fmt"
	"path"
	"strconv"

	mqtt_base "github.com/eclipse/paho.mqtt.golang"
	"github.com/open-econet/econet-mqtt/pkg/config"
	"github.com/open-econet/econet-mqtt/pkg/econet"
	"github.com/open-econet/econet-mqtt/pkg/homeassistant"
	"github.com/open-econet/econet-mqtt/pkg/mqtt"
	"github.com/rs/zerolog/log"
)

const (
	waterHeaters string = "water_heaters"
	thermostats  string = "thermostats"

	equipmentNotificationId string = "equipment-module"
)

// Attribute subtopics published for every device.
const (
	attrMode          string = "mode"
	attrSetpoint      string = "setpoint"
	attrEnabled       string = "enabled"
	attrRunning       string = "running"
	attrRunningStatus string = "running_status"
	attrHotWaterLevel string = "hot_water_level"
	attrConnected     string = "connected"
	attrHeatSetpoint  string = "heat_setpoint"
	attrCoolSetpoint  string = "cool_setpoint"
	attrHumidity      string = "humidity"
)

// Equipment Module encapsulates all the logic regarding the EcoNet devices.
// Every device attribute is mirrored to its own state topic and the water
// heater command topics are forwarded to the cloud. Realtime updates coming
// from the cloud trigger a republish of the device that changed.
type EquipmentModule struct {
	mqttClient   mqtt.Client
	econetClient econet.Client

	normalizeDeviceName bool
	refreshAtStart      bool

	waterHeaters []econet.WaterHeater
	thermostats  []econet.Thermostat
}

func (c *EquipmentModule) Start() error {
	// Prefetch the devices registered on the EcoNet account.
	heaters, err := c.econetClient.GetWaterHeaters()
	if err != nil {
		log.Panic().Err(err).Msg("Error fetching the water heaters on the account.")
	}
	c.waterHeaters = heaters

	therms, err := c.econetClient.GetThermostats()
	if err != nil {
		log.Panic().Err(err).Msg("Error fetching the thermostats on the account.")
	}
	c.thermostats = therms

	// Push the full state of every device at startup.
	if c.refreshAtStart {
		go func() {
			for _, heater := range c.waterHeaters {
				heaterCopy := heater
				if err := c.publishWaterHeater(&heaterCopy); err != nil {
					log.Error().Err(err).Msgf("Error publishing water heater '%s'", heater.DeviceId)
				}
			}
			for _, therm := range c.thermostats {
				thermCopy := therm
				if err := c.publishThermostat(&thermCopy); err != nil {
					log.Error().Err(err).Msgf("Error publishing thermostat '%s'", therm.DeviceId)
				}
			}
		}()
	}

	// Subscribe to EcoNet realtime updates.
	if err := c.econetClient.NotificationSubscribe(equipmentNotificationId, func(notification econet.Notification) {
		if err := c.onNotification(notification); err != nil {
			log.Error().Err(err).
				Str("deviceId", notification.DeviceId).
				Msg("Error republishing device after realtime update.")
		}
	}); err != nil {
		return err
	}

	// Subscribe to MQTT command topics. Only water heaters take commands,
	// the cloud API has no thermostat writes.
	for _, heater := range c.waterHeaters {
		heaterCopy := heater
		modeTopic := c.waterHeaterCommandTopic(heaterCopy.DeviceId, attrMode)
		setpointTopic := c.waterHeaterCommandTopic(heaterCopy.DeviceId, attrSetpoint)

		log.Trace().
			Str("topic", modeTopic).
			Str("deviceId", heaterCopy.DeviceId).
			Msg("Subscribing for topic.")
		if err := c.mqttClient.Subscribe(modeTopic, func(client mqtt_base.Client, message mqtt_base.Message) {
			payload := string(message.Payload())
			log.Trace().
				Str("topic", modeTopic).
				Str("deviceId", heaterCopy.DeviceId).
				Str("payload", payload).
				Msg("Message Received.")
			if err := c.onModeCommand(&heaterCopy, payload); err != nil {
				log.Error().
					Str("topic", modeTopic).
					Err(err).
					Msg("Error handling MQTT Message.")
			}
		}); err != nil {
			return err
		}

		log.Trace().
			Str("topic", setpointTopic).
			Str("deviceId", heaterCopy.DeviceId).
			Msg("Subscribing for topic.")
		if err := c.mqttClient.Subscribe(setpointTopic, func(client mqtt_base.Client, message mqtt_base.Message) {
			payload := string(message.Payload())
			log.Trace().
				Str("topic", setpointTopic).
				Str("deviceId", heaterCopy.DeviceId).
				Str("payload", payload).
				Msg("Message Received.")
			if err := c.onSetpointCommand(&heaterCopy, payload); err != nil {
				log.Error().
					Str("topic", setpointTopic).
					Err(err).
					Msg("Error handling MQTT Message.")
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *EquipmentModule) Stop() error {
	if err := c.econetClient.NotificationUnsubscribe(equipmentNotificationId); err != nil {
		return err
	}
	return nil
}

func (c *EquipmentModule) onModeCommand(heater *econet.WaterHeater, mode string) error {
	log.Info().
		Str("deviceId", heater.DeviceId).
		Str("mode", mode).
		Msg("Setting water heater mode.")
	if err := c.econetClient.SetWaterHeaterMode(heater.DeviceId, mode); err != nil {
		commandErrors.Inc()
		return err
	}
	commandsForwarded.Inc()
	return c.republishWaterHeater(heater.DeviceId)
}

func (c *EquipmentModule) onSetpointCommand(heater *econet.WaterHeater, message string) error {
	value, err := strconv.Atoi(message)
	if err != nil {
		commandErrors.Inc()
		return fmt.Errorf("error parsing message as integer value: %w", err)
	}
	log.Info().
		Str("deviceId", heater.DeviceId).
		Int("setpoint", value).
		Msg("Setting water heater temperature.")
	if err := c.econetClient.SetWaterHeaterTemperature(heater.DeviceId, value); err != nil {
		commandErrors.Inc()
		return err
	}
	commandsForwarded.Inc()
	return c.republishWaterHeater(heater.DeviceId)
}

func (c *EquipmentModule) onNotification(notification econet.Notification) error {
	realtimeUpdates.Inc()
	switch notification.DeviceType {
	case econet.DeviceTypeWaterHeater:
		return c.republishWaterHeater(notification.DeviceId)
	case econet.DeviceTypeThermostat:
		therm, err := c.econetClient.GetThermostat(notification.DeviceId)
		if err != nil {
			return err
		}
		return c.publishThermostat(therm)
	}
	return nil
}

func (c *EquipmentModule) republishWaterHeater(deviceId string) error {
	heater, err := c.econetClient.GetWaterHeater(deviceId)
	if err != nil {
		return err
	}
	return c.publishWaterHeater(heater)
}

func (c *EquipmentModule) publishWaterHeater(heater *econet.WaterHeater) error {
	log.Debug().
		Str("deviceId", heater.DeviceId).
		Msg("Publishing water heater state.")
	values := map[string]string{
		attrMode:          heater.ModeName,
		attrSetpoint:      strconv.Itoa(heater.Setpoint),
		attrEnabled:       strconv.FormatBool(heater.Enabled),
		attrRunning:       strconv.FormatBool(heater.Running),
		attrRunningStatus: heater.RunningStatus,
		attrHotWaterLevel: strconv.Itoa(heater.HotWaterLevel),
		attrConnected:     strconv.FormatBool(heater.Connected),
	}
	for attribute, value := range values {
		topic := c.waterHeaterStateTopic(heater.DeviceId, attribute)
		if err := c.mqttClient.Publish(topic, value); err != nil {
			return fmt.Errorf("error publishing water heater '%s' state: %w", heater.DeviceId, err)
		}
	}
	return nil
}

func (c *EquipmentModule) publishThermostat(therm *econet.Thermostat) error {
	log.Debug().
		Str("deviceId", therm.DeviceId).
		Msg("Publishing thermostat state.")
	values := map[string]string{
		attrMode:         therm.ModeName,
		attrHeatSetpoint: strconv.Itoa(therm.HeatSetpoint),
		attrCoolSetpoint: strconv.Itoa(therm.CoolSetpoint),
		attrHumidity:     strconv.Itoa(therm.Humidity),
		attrRunning:      strconv.FormatBool(therm.Running),
		attrConnected:    strconv.FormatBool(therm.Connected),
	}
	for attribute, value := range values {
		topic := c.thermostatStateTopic(therm.DeviceId, attribute)
		if err := c.mqttClient.Publish(topic, value); err != nil {
			return fmt.Errorf("error publishing thermostat '%s' state: %w", therm.DeviceId, err)
		}
	}
	return nil
}

func (c *EquipmentModule) waterHeaterStateTopic(deviceId string, attribute string) string {
	if c.normalizeDeviceName {
		deviceId = normalizeForTopicName(deviceId)
	}
	return path.Join(waterHeaters, deviceId, attribute, mqtt.State)
}

func (c *EquipmentModule) waterHeaterCommandTopic(deviceId string, attribute string) string {
	if c.normalizeDeviceName {
		deviceId = normalizeForTopicName(deviceId)
	}
	return path.Join(waterHeaters, deviceId, attribute, mqtt.Command)
}

func (c *EquipmentModule) thermostatStateTopic(deviceId string, attribute string) string {
	if c.normalizeDeviceName {
		deviceId = normalizeForTopicName(deviceId)
	}
	return path.Join(thermostats, deviceId, attribute, mqtt.State)
}

func (c *EquipmentModule) GetHomeAssistantEntities() ([]homeassistant.DiscoveryConfig, error) {
	configs := []homeassistant.DiscoveryConfig{}

	for _, heater := range c.waterHeaters {
		device := homeassistant.Device{
			Identifiers: []string{
				heater.DeviceId,
				heater.SerialNumber,
			},
			Name: heater.Name,
		}
		heaterConfig := homeassistant.DiscoveryConfig{
			Domain:   homeassistant.WaterHeater,
			DeviceId: heater.DeviceId,
			ObjectId: "water_heater",
			Config: &homeassistant.WaterHeaterConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   device,
					Name:     heater.Name,
					UniqueId: heater.DeviceId + "_water_heater",
				},
				Modes: heater.AvailableModes,
				ModeStateTopic: c.mqttClient.GetFullTopic(
					c.waterHeaterStateTopic(heater.DeviceId, attrMode)),
				ModeCommandTopic: c.mqttClient.GetFullTopic(
					c.waterHeaterCommandTopic(heater.DeviceId, attrMode)),
				TemperatureStateTopic: c.mqttClient.GetFullTopic(
					c.waterHeaterStateTopic(heater.DeviceId, attrSetpoint)),
				TemperatureCommandTopic: c.mqttClient.GetFullTopic(
					c.waterHeaterCommandTopic(heater.DeviceId, attrSetpoint)),
				MinTemp:         heater.SetpointMin,
				MaxTemp:         heater.SetpointMax,
				TemperatureUnit: "F",
			},
		}
		configs = append(configs, heaterConfig)

		levelConfig := homeassistant.DiscoveryConfig{
			Domain:   homeassistant.Sensor,
			DeviceId: heater.DeviceId,
			ObjectId: "hot_water_level",
			Config: &homeassistant.SensorConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   device,
					Name:     "Hot water level " + heater.Name,
					UniqueId: heater.DeviceId + "_hot_water_level",
				},
				StateTopic: c.mqttClient.GetFullTopic(
					c.waterHeaterStateTopic(heater.DeviceId, attrHotWaterLevel)),
				UnitOfMeasurement: "%",
				Icon:              "mdi:water-percent",
			},
		}
		configs = append(configs, levelConfig)

		runningConfig := homeassistant.DiscoveryConfig{
			Domain:   homeassistant.BinarySensor,
			DeviceId: heater.DeviceId,
			ObjectId: "running",
			Config: &homeassistant.BinarySensorConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   device,
					Name:     "Running " + heater.Name,
					UniqueId: heater.DeviceId + "_running",
				},
				StateTopic: c.mqttClient.GetFullTopic(
					c.waterHeaterStateTopic(heater.DeviceId, attrRunning)),
				DeviceClass: "running",
				PayloadOn:   "true",
				PayloadOff:  "false",
			},
		}
		configs = append(configs, runningConfig)
	}

	for _, therm := range c.thermostats {
		device := homeassistant.Device{
			Identifiers: []string{
				therm.DeviceId,
				therm.SerialNumber,
			},
			Name: therm.Name,
		}
		sensors := []struct {
			objectId    string
			name        string
			attribute   string
			unit        string
			deviceClass string
			icon        string
		}{
			{"mode", "Mode " + therm.Name, attrMode, "", "", "mdi:thermostat"},
			{"heat_setpoint", "Heat setpoint " + therm.Name, attrHeatSetpoint, "°F", "temperature", ""},
			{"cool_setpoint", "Cool setpoint " + therm.Name, attrCoolSetpoint, "°F", "temperature", ""},
			{"humidity", "Humidity " + therm.Name, attrHumidity, "%", "humidity", ""},
		}
		for _, sensor := range sensors {
			configs = append(configs, homeassistant.DiscoveryConfig{
				Domain:   homeassistant.Sensor,
				DeviceId: therm.DeviceId,
				ObjectId: sensor.objectId,
				Config: &homeassistant.SensorConfig{
					BaseConfig: homeassistant.BaseConfig{
						Device:   device,
						Name:     sensor.name,
						UniqueId: therm.DeviceId + "_" + sensor.objectId,
					},
					StateTopic: c.mqttClient.GetFullTopic(
						c.thermostatStateTopic(therm.DeviceId, sensor.attribute)),
					UnitOfMeasurement: sensor.unit,
					DeviceClass:       sensor.deviceClass,
					Icon:              sensor.icon,
				},
			})
		}
		configs = append(configs, homeassistant.DiscoveryConfig{
			Domain:   homeassistant.BinarySensor,
			DeviceId: therm.DeviceId,
			ObjectId: "running",
			Config: &homeassistant.BinarySensorConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   device,
					Name:     "Running " + therm.Name,
					UniqueId: therm.DeviceId + "_running",
				},
				StateTopic: c.mqttClient.GetFullTopic(
					c.thermostatStateTopic(therm.DeviceId, attrRunning)),
				DeviceClass: "running",
				PayloadOn:   "true",
				PayloadOff:  "false",
			},
		})
	}
	return configs, nil
}

func normalizeForTopicName(item string) string {
	output := ""
	for i := 0; i < len(item); i++ {
		c := item[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			output += string(c)
		} else if c == ' ' || c == '/' {
			output += "_"
		}
	}
	return output
}

func NewEquipmentModule(mqttClient mqtt.Client, econetClient econet.Client, config *config.Config) Module {
	return &EquipmentModule{
		mqttClient:          mqttClient,
		econetClient:        econetClient,
		normalizeDeviceName: config.Mqtt.NormalizeDeviceName,
		refreshAtStart:      config.RefreshAtStart,
		waterHeaters:        []econet.WaterHeater{},
		thermostats:         []econet.Thermostat{},
	}
}

func init() {
	Register("equipment", NewEquipmentModule)
}
