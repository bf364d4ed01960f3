package econet

import (
	"fmt"
	"strconv"
	"strings"
)

// Device field tags used on both the REST catalog and the realtime channel.
const (
	fieldName          = "@NAME"
	fieldEnabled       = "@ENABLED"
	fieldMode          = "@MODE"
	fieldSetpoint      = "@SETPOINT"
	fieldRunning       = "@RUNNING"
	fieldRunningStatus = "@RUNNINGSTATUS"
	fieldHotWater      = "@HOTWATER"
	fieldHeatSetpoint  = "@HEATSETPOINT"
	fieldCoolSetpoint  = "@COOLSETPOINT"
	fieldHumidity      = "@HUMIDITY"
	fieldFanMode       = "@FANMODE"
	fieldFanSpeed      = "@FANSPEED"
	fieldConnected     = "@CONNECTED"
)

// Plain keys that never use the dual field encoding.
const (
	keyDeviceType    = "device_type"
	keyDeviceName    = "device_name"
	keySerialNumber  = "serial_number"
	keyTransactionId = "transactionId"
)

// Constraint keys found inside the nested field encoding.
const (
	constraintEnumText   = "enumText"
	constraintLowerLimit = "lowerLimit"
	constraintUpperLimit = "upperLimit"
)

// fieldValue extracts the value of a device field. The backend sends fields
// either as a bare scalar or as an object {"value": ..., "constraints":
// {...}}, both forms resolve to the same value. A missing field, a nil
// value or an object without "value" all resolve to the fallback.
func fieldValue(raw map[string]interface{}, field string, fallback interface{}) interface{} {
	val, ok := raw[field]
	if !ok || val == nil {
		return fallback
	}
	if nested, ok := val.(map[string]interface{}); ok {
		inner, ok := nested["value"]
		if !ok || inner == nil {
			return fallback
		}
		return inner
	}
	return val
}

// fieldConstraints returns the constraints object of a field, or nil when
// the field uses the bare scalar form.
func fieldConstraints(raw map[string]interface{}, field string) map[string]interface{} {
	nested, ok := raw[field].(map[string]interface{})
	if !ok {
		return nil
	}
	constraints, _ := nested["constraints"].(map[string]interface{})
	return constraints
}

func fieldString(raw map[string]interface{}, field string, fallback string) string {
	val := fieldValue(raw, field, nil)
	if val == nil {
		return fallback
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

func fieldInt(raw map[string]interface{}, field string, fallback int) int {
	switch v := fieldValue(raw, field, nil).(type) {
	case nil:
		return fallback
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		return fallback
	default:
		return fallback
	}
}

func fieldBool(raw map[string]interface{}, field string, fallback bool) bool {
	switch v := fieldValue(raw, field, nil).(type) {
	case nil:
		return fallback
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return fallback
	}
}

// constraintStrings reads a list constraint such as enumText. Non-string
// items are stringified since the backend is not strict about types.
func constraintStrings(constraints map[string]interface{}, key string) []string {
	items, ok := constraints[key].([]interface{})
	if !ok {
		return nil
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		values = append(values, fmt.Sprintf("%v", item))
	}
	return values
}

func constraintInt(constraints map[string]interface{}, key string, fallback int) int {
	switch v := constraints[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
