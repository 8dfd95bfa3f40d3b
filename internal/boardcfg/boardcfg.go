// Package boardcfg implements the Board Bring-up Config (§4.8): one
// embedded JSON document per board variant, applied once at startup to
// seed the MZC's zone configs, the SP's channel thresholds, and the PSE's
// EEPROM geometry: the "board personality" step the original firmware's
// ipmc.cpp performs before the PMC is usable.
package boardcfg

import (
	"errors"

	"github.com/andreyvit/tinyjson"

	"pmc-core/internal/mzc"
	"pmc-core/internal/sp"
)

// EmbeddedConfigLookup allows overriding how board configs are resolved,
// mirroring the override hook the service-config layer gives callers.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// EEPROMGeometry describes the backing store a board variant expects the
// PSE to run against.
type EEPROMGeometry struct {
	PageSize   int
	TotalPages int
}

// ZoneDefault is one management zone's bring-up configuration.
type ZoneDefault struct {
	Zone   int
	Config mzc.ZoneConfig
}

// SensorDefault is one sensor channel's bring-up configuration.
type SensorDefault struct {
	Channel        int
	Thresholds     sp.ThrCfg
	Hysteresis     sp.HystCfg
	AssertEnable   uint16
	DeassertEnable uint16
}

// BoardConfig is a fully decoded board variant, ready to be applied to a
// freshly constructed MZC/SP/PSE trio.
type BoardConfig struct {
	Zones   []ZoneDefault
	Sensors []SensorDefault
	EEPROM  EEPROMGeometry
}

// Load resolves and decodes the embedded config for board. The JSON shape
// is a plain object of "eeprom", "zones" and "sensors" keys; unknown keys
// are ignored so a board file can carry extra fields for other subsystems.
func Load(board string) (BoardConfig, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return BoardConfig{}, errors.New("no embedded board config for: " + board)
	}

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return BoardConfig{}, errors.New("embedded board config is not a JSON object")
	}

	var cfg BoardConfig
	var err error
	if eepromVal, ok := m["eeprom"]; ok {
		cfg.EEPROM, err = decodeEEPROM(eepromVal)
		if err != nil {
			return BoardConfig{}, err
		}
	}
	if zonesVal, ok := m["zones"]; ok {
		cfg.Zones, err = decodeZones(zonesVal)
		if err != nil {
			return BoardConfig{}, err
		}
	}
	if sensorsVal, ok := m["sensors"]; ok {
		cfg.Sensors, err = decodeSensors(sensorsVal)
		if err != nil {
			return BoardConfig{}, err
		}
	}
	return cfg, nil
}

// Apply programs a decoded board config onto a live MZC and SP, matching
// the order the original firmware's init sequence brings zones and
// sensors up in: zone topology before any sensor that might fault one of
// its pins.
func Apply(cfg BoardConfig, zones *mzc.Controller, sensors *sp.Controller) error {
	for _, z := range cfg.Zones {
		if err := zones.SetZoneConfig(z.Zone, z.Config); err != nil {
			return err
		}
	}
	for _, s := range cfg.Sensors {
		if err := sensors.SetThresholds(s.Channel, s.Thresholds); err != nil {
			return err
		}
		if err := sensors.SetHysteresis(s.Channel, s.Hysteresis.HystPos, s.Hysteresis.HystNeg); err != nil {
			return err
		}
		if err := sensors.SetEventEnable(s.Channel, s.AssertEnable, s.DeassertEnable); err != nil {
			return err
		}
	}
	return nil
}
