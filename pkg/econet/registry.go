package econet

import (
	"fmt"
	"sort"
	"sync"
)

// registry holds the devices of one account. A single mutex guards both
// maps. Reads hand out clones so callers never alias registry-owned state,
// and writes hold the lock for the whole mutation so no partial merge is
// ever observable.
type registry struct {
	mu           sync.Mutex
	waterHeaters map[string]*WaterHeater
	thermostats  map[string]*Thermostat
}

func newRegistry() *registry {
	return &registry{
		waterHeaters: map[string]*WaterHeater{},
		thermostats:  map[string]*Thermostat{},
	}
}

// reset replaces the registry content after a catalog fetch.
func (r *registry) reset(waterHeaters []*WaterHeater, thermostats []*Thermostat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.waterHeaters = map[string]*WaterHeater{}
	for _, wh := range waterHeaters {
		r.waterHeaters[wh.DeviceId] = wh
	}
	r.thermostats = map[string]*Thermostat{}
	for _, th := range thermostats {
		r.thermostats[th.DeviceId] = th
	}
}

func (r *registry) equipment() *Equipment {
	return &Equipment{
		WaterHeaters: r.waterHeaterList(),
		Thermostats:  r.thermostatList(),
	}
}

func (r *registry) waterHeaterList() []WaterHeater {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]WaterHeater, 0, len(r.waterHeaters))
	for _, wh := range r.waterHeaters {
		list = append(list, *wh.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DeviceId < list[j].DeviceId
	})
	return list
}

func (r *registry) thermostatList() []Thermostat {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Thermostat, 0, len(r.thermostats))
	for _, th := range r.thermostats {
		list = append(list, *th.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DeviceId < list[j].DeviceId
	})
	return list
}

// waterHeater resolves a device id to a snapshot. An empty id resolves to
// the sole registered water heater, it is an error when the account has
// none or when the choice would be ambiguous.
func (r *registry) waterHeater(deviceId string) (*WaterHeater, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deviceId != "" {
		wh, ok := r.waterHeaters[deviceId]
		if !ok {
			return nil, fmt.Errorf("no water heater with id '%s': %w", deviceId, ErrNotFound)
		}
		return wh.clone(), nil
	}

	if len(r.waterHeaters) == 0 {
		return nil, fmt.Errorf("no water heaters registered: %w", ErrNotFound)
	}
	if len(r.waterHeaters) > 1 {
		return nil, fmt.Errorf("%d water heaters registered, device id required: %w", len(r.waterHeaters), ErrNotFound)
	}
	var sole *WaterHeater
	for _, wh := range r.waterHeaters {
		sole = wh
	}
	return sole.clone(), nil
}

func (r *registry) thermostat(deviceId string) (*Thermostat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deviceId != "" {
		th, ok := r.thermostats[deviceId]
		if !ok {
			return nil, fmt.Errorf("no thermostat with id '%s': %w", deviceId, ErrNotFound)
		}
		return th.clone(), nil
	}

	if len(r.thermostats) == 0 {
		return nil, fmt.Errorf("no thermostats registered: %w", ErrNotFound)
	}
	if len(r.thermostats) > 1 {
		return nil, fmt.Errorf("%d thermostats registered, device id required: %w", len(r.thermostats), ErrNotFound)
	}
	var sole *Thermostat
	for _, th := range r.thermostats {
		sole = th
	}
	return sole.clone(), nil
}

// applyReport routes a realtime payload to the matching device and merges
// it under the lock. The boolean is false when the payload targets an
// unknown device or carries no known tags.
func (r *registry) applyReport(payload map[string]interface{}) (Notification, bool) {
	deviceId := fieldString(payload, keyDeviceName, "")
	if deviceId == "" {
		return Notification{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if wh, ok := r.waterHeaters[deviceId]; ok {
		fields := wh.applyReport(payload)
		if len(fields) == 0 {
			return Notification{}, false
		}
		return Notification{
			DeviceId:   deviceId,
			DeviceType: DeviceTypeWaterHeater,
			Fields:     fields,
		}, true
	}
	if th, ok := r.thermostats[deviceId]; ok {
		fields := th.applyReport(payload)
		if len(fields) == 0 {
			return Notification{}, false
		}
		return Notification{
			DeviceId:   deviceId,
			DeviceType: DeviceTypeThermostat,
			Fields:     fields,
		}, true
	}
	return Notification{}, false
}

// updateWaterHeater applies an optimistic mutation under the lock. Unknown
// ids are ignored, the device may have been dropped by a concurrent catalog
// refresh.
func (r *registry) updateWaterHeater(deviceId string, mutate func(*WaterHeater)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wh, ok := r.waterHeaters[deviceId]; ok {
		mutate(wh)
	}
}
