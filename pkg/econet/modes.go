package econet

import (
	"fmt"
	"strings"
)

const modeOff = "off"

// modeAliases maps canonical mode keys to the spellings the mobile
// application and the devices are known to use. Matching happens on
// normalized names, see normalizeModeName.
var modeAliases = map[string][]string{
	"off":            {"off"},
	"energy_saving":  {"energy_saving", "energy_saver", "energysaving"},
	"heat_pump_only": {"heat_pump_only", "heat_pump", "heatpump"},
	"high_demand":    {"high_demand", "highdemand"},
	"electric_mode":  {"electric_mode", "electric"},
	"vacation":       {"vacation"},
	"performance":    {"performance"},
}

// normalizeModeName lower-cases a mode name and collapses spaces and
// hyphens to underscores, so "Heat Pump" and "heat-pump" compare equal.
func normalizeModeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

// resolveModeIndex maps a user-supplied mode name to an index into the
// device's available mode list. An exact match on the normalized names wins
// first, then both names are matched through the alias table. The first
// matching index is returned.
func resolveModeIndex(requested string, available []string) (int, error) {
	normalized := normalizeModeName(requested)

	for i, mode := range available {
		if normalizeModeName(mode) == normalized {
			return i, nil
		}
	}

	for i, mode := range available {
		candidate := normalizeModeName(mode)
		for _, aliases := range modeAliases {
			if containsString(aliases, normalized) && containsString(aliases, candidate) {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("unknown mode '%s' (available modes: %v): %w", requested, available, ErrValidation)
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
