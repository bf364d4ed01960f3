package modules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on the debug server under /metrics.
var (
	realtimeUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "econet_mqtt_realtime_updates_total",
		Help: "Number of realtime device updates bridged to the local broker.",
	})
	commandsForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "econet_mqtt_commands_forwarded_total",
		Help: "Number of MQTT commands forwarded to the EcoNet cloud.",
	})
	commandErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "econet_mqtt_command_errors_total",
		Help: "Number of MQTT commands that could not be forwarded.",
	})
	usageReports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "econet_mqtt_usage_reports_total",
		Help: "Number of usage reports published to the local broker.",
	})
)
