package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ConfigEcoNet struct {
	Email    string
	Password string
	Host     string
}
type ConfigMqtt struct {
	MqttUrl             string
	Username            string
	Password            string
	TopicPrefix         string
	NormalizeDeviceName bool
	Retain              bool
}
type ConfigHomeAssistant struct {
	DiscoveryEnabled     bool
	DiscoveryTopicPrefix string
	RemoveRegexpFromName string
	EcoNetHost           string
	Retain               bool
}
type ConfigHealthCheck struct {
	Enabled bool
	Port    int
}
type Config struct {
	EcoNet              ConfigEcoNet
	Mqtt                ConfigMqtt
	HomeAssistant       ConfigHomeAssistant
	HealthCheck         ConfigHealthCheck
	RefreshAtStart      bool
	UsageReportInterval time.Duration
	LogLevel            string
}

const (
	undefined                               string = "__undefined__"
	deprecated                              string = "__deprecated__"
	configFile                              string = "config.yaml"
	envKeyEcoNetEmail                       string = "econet_email"
	envKeyEcoNetPassword                    string = "econet_password"
	envKeyEcoNetHost                        string = "econet_host"
	envKeyEcoNetAccountId                   string = "econet_account_id"
	envKeyMqttUrl                           string = "mqtt_url"
	envKeyMqttUsername                      string = "mqtt_username"
	envKeyMqttPassword                      string = "mqtt_password"
	envKeyMqttTopicPrefix                   string = "mqtt_topic_prefix"
	envKeyMqttNormalizeTopicName            string = "mqtt_normalize_device_name"
	envKeyMqttRetain                        string = "mqtt_retain"
	envKeyRefreshAtStart                    string = "refresh_at_start"
	envKeyUsageReportInterval               string = "usage_report_interval"
	envKeyLogLevel                          string = "log_level"
	envKeyHomeAssistantDiscoveryEnabled     string = "home_assistant_discovery_enabled"
	envKeyHomeAssistantDiscoveryPrefix      string = "home_assistant_discovery_prefix"
	envKeyHomeAssistantRemoveRegexpFromName string = "home_assistant_remove_regexp_from_name"
	envKeyHealthCheckEnabled                string = "health_check_enabled"
	envKeyHealthCheckPort                   string = "health_check_port"
)

var defaultConfig = map[string]interface{}{
	envKeyEcoNetEmail:    undefined,
	envKeyEcoNetPassword: undefined,
	envKeyEcoNetHost:     "rheem.clearblade.com",
	// The account id comes from the login response since v0.2, it can no
	// longer be set manually.
	envKeyEcoNetAccountId:                   deprecated,
	envKeyMqttUrl:                           undefined,
	envKeyMqttUsername:                      "",
	envKeyMqttPassword:                      "",
	envKeyMqttTopicPrefix:                   "econet",
	envKeyMqttNormalizeTopicName:            true,
	envKeyMqttRetain:                        false,
	envKeyRefreshAtStart:                    true,
	envKeyUsageReportInterval:               time.Hour,
	envKeyLogLevel:                          "INFO",
	envKeyHomeAssistantDiscoveryEnabled:     false,
	envKeyHomeAssistantDiscoveryPrefix:      "homeassistant",
	envKeyHomeAssistantRemoveRegexpFromName: "",
	envKeyHealthCheckEnabled:                false,
	envKeyHealthCheckPort:                   8080,
}

// ReadConfig returns a Config from config.yaml and env variables. Env
// variables win over the file, the file is optional.
func ReadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	// Set the current directory where the binary is being run.
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	for key, value := range defaultConfig {
		if value != undefined && value != deprecated {
			viper.SetDefault(key, value)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("ReadInConfig error: %w", err)
		}
	}

	// Check for deprecated and undefined fields.
	for fieldName, defaultValue := range defaultConfig {
		if defaultValue == deprecated && viper.IsSet(fieldName) {
			return nil, fmt.Errorf("deprecated field found in config: %s", fieldName)
		}
		if defaultValue == undefined && !viper.IsSet(fieldName) {
			return nil, fmt.Errorf("required field not found in config: %s", fieldName)
		}
	}

	config := &Config{
		EcoNet: ConfigEcoNet{
			Email:    viper.GetString(envKeyEcoNetEmail),
			Password: viper.GetString(envKeyEcoNetPassword),
			Host:     viper.GetString(envKeyEcoNetHost),
		},
		Mqtt: ConfigMqtt{
			MqttUrl:             viper.GetString(envKeyMqttUrl),
			Username:            viper.GetString(envKeyMqttUsername),
			Password:            viper.GetString(envKeyMqttPassword),
			TopicPrefix:         viper.GetString(envKeyMqttTopicPrefix),
			NormalizeDeviceName: viper.GetBool(envKeyMqttNormalizeTopicName),
			Retain:              viper.GetBool(envKeyMqttRetain),
		},
		HomeAssistant: ConfigHomeAssistant{
			DiscoveryEnabled:     viper.GetBool(envKeyHomeAssistantDiscoveryEnabled),
			DiscoveryTopicPrefix: viper.GetString(envKeyHomeAssistantDiscoveryPrefix),
			RemoveRegexpFromName: viper.GetString(envKeyHomeAssistantRemoveRegexpFromName),
			EcoNetHost:           viper.GetString(envKeyEcoNetHost),
			Retain:               viper.GetBool(envKeyMqttRetain),
		},
		HealthCheck: ConfigHealthCheck{
			Enabled: viper.GetBool(envKeyHealthCheckEnabled),
			Port:    viper.GetInt(envKeyHealthCheckPort),
		},
		RefreshAtStart:      viper.GetBool(envKeyRefreshAtStart),
		UsageReportInterval: viper.GetDuration(envKeyUsageReportInterval),
		LogLevel:            viper.GetString(envKeyLogLevel),
	}

	return config, nil
}

// String leaves out the credentials on purpose, it ends up in the startup
// log.
func (c *Config) String() string {
	return fmt.Sprintf("{Email:%s Host:%s MqttUrl:%s TopicPrefix:%s}", c.EcoNet.Email, c.EcoNet.Host, c.Mqtt.MqttUrl, c.Mqtt.TopicPrefix)
}
