package econet

import "strings"

// DeviceType is the equipment class tag used by the EcoNet backend.
type DeviceType string

const (
	DeviceTypeWaterHeater DeviceType = "WH"
	DeviceTypeThermostat  DeviceType = "HVAC"
)

// Defaults applied when the catalog omits a field. Values match what the
// mobile application assumes for Rheem tank heaters.
const (
	defaultSetpoint     = 120
	defaultSetpointMin  = 90
	defaultSetpointMax  = 140
	defaultHeatSetpoint = 70
	defaultCoolSetpoint = 78
)

// WaterHeater is the state of one water heater. Instances handed out by
// the client are snapshots, mutating them has no effect on the registry.
type WaterHeater struct {
	DeviceId       string
	SerialNumber   string
	Name           string
	Enabled        bool
	Running        bool
	RunningStatus  string
	Mode           int
	ModeName       string
	AvailableModes []string
	Setpoint       int
	SetpointMin    int
	SetpointMax    int
	HotWaterLevel  int
	Connected      bool
}

// Thermostat is the state of one HVAC unit. Same snapshot semantics as
// WaterHeater.
type Thermostat struct {
	DeviceId       string
	SerialNumber   string
	Name           string
	Enabled        bool
	Running        bool
	RunningStatus  string
	Mode           int
	ModeName       string
	AvailableModes []string
	HeatSetpoint   int
	CoolSetpoint   int
	Humidity       int
	FanMode        int
	FanSpeed       int
	Connected      bool
}

// Equipment is a snapshot of every device registered on the account.
type Equipment struct {
	WaterHeaters []WaterHeater
	Thermostats  []Thermostat
}

// UsageReport is the pass-through result of a usage query. Data keeps the
// backend's free shape since the reporting format varies per device model.
type UsageReport struct {
	DeviceId string        `json:"device_id"`
	Message  string        `json:"message,omitempty"`
	Data     []interface{} `json:"data"`
}

// Notification describes one realtime update that was merged into the
// registry. Fields lists the tags the payload carried.
type Notification struct {
	DeviceId   string
	DeviceType DeviceType
	Fields     []string
}

// NotificationCallback is invoked after every merged realtime update.
type NotificationCallback func(notification Notification)

func parseWaterHeater(raw map[string]interface{}) *WaterHeater {
	deviceId := fieldString(raw, keyDeviceName, "")
	wh := &WaterHeater{
		DeviceId:     deviceId,
		SerialNumber: fieldString(raw, keySerialNumber, ""),
		Name:         fieldString(raw, fieldName, deviceId),
	}
	wh.applyEquipment(raw)
	return wh
}

func parseThermostat(raw map[string]interface{}) *Thermostat {
	deviceId := fieldString(raw, keyDeviceName, "")
	th := &Thermostat{
		DeviceId:     deviceId,
		SerialNumber: fieldString(raw, keySerialNumber, ""),
		Name:         fieldString(raw, fieldName, deviceId),
	}
	th.applyEquipment(raw)
	return th
}

// applyEquipment overwrites the state fields from a full catalog entry.
// Running is keyed on the presence of the running tag, its value is the
// free-text status.
func (w *WaterHeater) applyEquipment(raw map[string]interface{}) {
	w.Enabled = fieldBool(raw, fieldEnabled, false)
	_, w.Running = raw[fieldRunning]
	w.RunningStatus = fieldString(raw, fieldRunning, "")
	w.Connected, _ = raw[fieldConnected].(bool)

	w.Mode = fieldInt(raw, fieldMode, 0)
	w.AvailableModes = constraintStrings(fieldConstraints(raw, fieldMode), constraintEnumText)
	w.refreshModeName()

	w.Setpoint = fieldInt(raw, fieldSetpoint, defaultSetpoint)
	setpointConstraints := fieldConstraints(raw, fieldSetpoint)
	w.SetpointMin = constraintInt(setpointConstraints, constraintLowerLimit, defaultSetpointMin)
	w.SetpointMax = constraintInt(setpointConstraints, constraintUpperLimit, defaultSetpointMax)

	w.HotWaterLevel = parseHotWaterLevel(fieldString(raw, fieldHotWater, ""))
}

func (t *Thermostat) applyEquipment(raw map[string]interface{}) {
	t.Enabled = fieldBool(raw, fieldEnabled, false)
	_, t.Running = raw[fieldRunningStatus]
	t.RunningStatus = fieldString(raw, fieldRunningStatus, "")
	t.Connected, _ = raw[fieldConnected].(bool)

	t.Mode = fieldInt(raw, fieldMode, 0)
	t.AvailableModes = constraintStrings(fieldConstraints(raw, fieldMode), constraintEnumText)
	t.refreshModeName()

	t.HeatSetpoint = fieldInt(raw, fieldHeatSetpoint, defaultHeatSetpoint)
	t.CoolSetpoint = fieldInt(raw, fieldCoolSetpoint, defaultCoolSetpoint)

	t.Humidity = fieldInt(raw, fieldHumidity, 0)
	t.FanMode = fieldInt(raw, fieldFanMode, 0)
	t.FanSpeed = fieldInt(raw, fieldFanSpeed, 0)
}

// refreshModeName keeps ModeName in sync with the mode index. An index out
// of range leaves the previous name untouched.
func (w *WaterHeater) refreshModeName() {
	if w.Mode >= 0 && w.Mode < len(w.AvailableModes) {
		w.ModeName = w.AvailableModes[w.Mode]
	}
}

func (t *Thermostat) refreshModeName() {
	if t.Mode >= 0 && t.Mode < len(t.AvailableModes) {
		t.ModeName = t.AvailableModes[t.Mode]
	}
}

// applyReport merges a realtime payload into the record. Only tags present
// in the payload are touched, everything else keeps its value. The returned
// list names the merged tags.
func (w *WaterHeater) applyReport(payload map[string]interface{}) []string {
	var updated []string
	if _, ok := payload[fieldEnabled]; ok {
		w.Enabled = fieldBool(payload, fieldEnabled, w.Enabled)
		updated = append(updated, fieldEnabled)
	}
	if _, ok := payload[fieldMode]; ok {
		w.Mode = fieldInt(payload, fieldMode, w.Mode)
		w.refreshModeName()
		updated = append(updated, fieldMode)
	}
	if _, ok := payload[fieldSetpoint]; ok {
		w.Setpoint = fieldInt(payload, fieldSetpoint, w.Setpoint)
		updated = append(updated, fieldSetpoint)
	}
	if _, ok := payload[fieldRunning]; ok {
		w.Running = true
		w.RunningStatus = fieldString(payload, fieldRunning, w.RunningStatus)
		updated = append(updated, fieldRunning)
	}
	if _, ok := payload[fieldHotWater]; ok {
		w.HotWaterLevel = parseHotWaterLevel(fieldString(payload, fieldHotWater, ""))
		updated = append(updated, fieldHotWater)
	}
	return updated
}

func (t *Thermostat) applyReport(payload map[string]interface{}) []string {
	var updated []string
	if _, ok := payload[fieldEnabled]; ok {
		t.Enabled = fieldBool(payload, fieldEnabled, t.Enabled)
		updated = append(updated, fieldEnabled)
	}
	if _, ok := payload[fieldMode]; ok {
		t.Mode = fieldInt(payload, fieldMode, t.Mode)
		t.refreshModeName()
		updated = append(updated, fieldMode)
	}
	if _, ok := payload[fieldHeatSetpoint]; ok {
		t.HeatSetpoint = fieldInt(payload, fieldHeatSetpoint, t.HeatSetpoint)
		updated = append(updated, fieldHeatSetpoint)
	}
	if _, ok := payload[fieldCoolSetpoint]; ok {
		t.CoolSetpoint = fieldInt(payload, fieldCoolSetpoint, t.CoolSetpoint)
		updated = append(updated, fieldCoolSetpoint)
	}
	if _, ok := payload[fieldHumidity]; ok {
		t.Humidity = fieldInt(payload, fieldHumidity, t.Humidity)
		updated = append(updated, fieldHumidity)
	}
	return updated
}

func (w *WaterHeater) clone() *WaterHeater {
	cloned := *w
	cloned.AvailableModes = append([]string(nil), w.AvailableModes...)
	return &cloned
}

func (t *Thermostat) clone() *Thermostat {
	cloned := *t
	cloned.AvailableModes = append([]string(nil), t.AvailableModes...)
	return &cloned
}

// parseHotWaterLevel buckets the free-text hot water level into a
// percentage. The matching is lossy on purpose, devices report strings like
// "Hundred_Percent" or "FourtyPercent" depending on firmware generation.
func parseHotWaterLevel(level string) int {
	level = strings.ToLower(level)
	switch {
	case strings.Contains(level, "hund") || strings.Contains(level, "full") || level == "100":
		return 100
	case strings.Contains(level, "fourty") || strings.Contains(level, "forty") || level == "40":
		return 40
	case strings.Contains(level, "ten") || level == "10":
		return 10
	case strings.Contains(level, "empty") || strings.Contains(level, "zero") || level == "0":
		return 0
	default:
		return 0
	}
}
