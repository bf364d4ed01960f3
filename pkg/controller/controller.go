package controller

import (
	"fmt"

	"github.com/open-econet/econet-mqtt/pkg/config"
	"github.com/open-econet/econet-mqtt/pkg/controller/modules"
	"github.com/open-econet/econet-mqtt/pkg/econet"
	"github.com/open-econet/econet-mqtt/pkg/health"
	"github.com/open-econet/econet-mqtt/pkg/homeassistant"
	"github.com/open-econet/econet-mqtt/pkg/mqtt"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	econetClient econet.Client
	mqttClient   mqtt.Client

	modules       map[string]modules.Module
	hassDiscovery *homeassistant.HomeAssistantDiscovery
	healthCheck   health.Health
}

func NewController(config *config.Config) *Controller {
	// Create EcoNet client.
	econetOptions := econet.NewClientOptions().
		SetEmail(config.EcoNet.Email).
		SetPassword(config.EcoNet.Password).
		SetHost(config.EcoNet.Host)
	econetClient := econet.NewClient(econetOptions)

	mqttOptions := mqtt.NewClientOptions().
		SetMqttUrl(config.Mqtt.MqttUrl).
		SetUsername(config.Mqtt.Username).
		SetPassword(config.Mqtt.Password).
		SetTopicPrefix(config.Mqtt.TopicPrefix).
		SetRetain(config.Mqtt.Retain)
	mqttClient := mqtt.NewClient(mqttOptions)
	controller := Controller{
		econetClient:  econetClient,
		mqttClient:    mqttClient,
		modules:       map[string]modules.Module{},
		hassDiscovery: homeassistant.NewHomeAssistantDiscovery(mqttClient, &config.HomeAssistant),
	}

	if config.HealthCheck.Enabled {
		controller.healthCheck = health.NewHealth(config.HealthCheck, mqttClient, econetClient)
	}

	for name, builder := range modules.Modules {
		module := builder(mqttClient, econetClient, config)
		controller.modules[name] = module
	}

	return &controller
}

func (c *Controller) Start() error {
	log.Info().Msg("Starting controller.")
	if err := c.mqttClient.Connect(); err != nil {
		return fmt.Errorf("error connecting to MQTT client: %w", err)
	}
	if err := c.econetClient.Connect(); err != nil {
		return fmt.Errorf("error connecting to EcoNet client: %w", err)
	}

	for name, module := range c.modules {
		log.Info().Str("module", name).Msg("Starting module.")
		if err := module.Start(); err != nil {
			return fmt.Errorf("error starting module '%s': %w", name, err)
		}
	}

	if err := c.publishDiscoveryMessages(); err != nil {
		return err
	}

	if c.healthCheck != nil {
		if err := c.healthCheck.Start(); err != nil {
			return fmt.Errorf("error starting the health check server: %w", err)
		}
	}

	return nil
}

func (c *Controller) Stop() error {
	log.Info().Msg("Stopping controller.")

	if c.healthCheck != nil {
		if err := c.healthCheck.Stop(); err != nil {
			return fmt.Errorf("error stopping the health check server: %w", err)
		}
	}

	for name, module := range c.modules {
		log.Info().Str("module", name).Msg("Stopping module.")
		if err := module.Stop(); err != nil {
			return fmt.Errorf("error stopping module '%s': %w", name, err)
		}
	}

	if err := c.mqttClient.Disconnect(); err != nil {
		return fmt.Errorf("error disconnecting to MQTT client: %w", err)
	}
	if err := c.econetClient.Disconnect(); err != nil {
		return fmt.Errorf("error disconnecting to EcoNet client: %w", err)
	}

	return nil
}

// Collect the Home Assistant entities from the modules that export some and
// push the discovery messages to the broker.
func (c *Controller) publishDiscoveryMessages() error {
	for name, module := range c.modules {
		discovery, ok := module.(homeassistant.HomeAssistantDiscoveryInterface)
		if !ok {
			continue
		}
		configs, err := discovery.GetHomeAssistantEntities()
		if err != nil {
			return fmt.Errorf("error getting Home Assistant entities for module '%s': %w", name, err)
		}
		c.hassDiscovery.AddConfigs(configs)
	}
	if err := c.hassDiscovery.PublishDiscoveryMessages(); err != nil {
		return fmt.Errorf("error publishing Home Assistant discovery messages: %w", err)
	}
	return nil
}
