package boardcfg

import (
	"errors"
	"fmt"

	"pmc-core/internal/mzc"
	"pmc-core/internal/sp"
)

// The decoders below walk the generic map[string]any/[]any tree tinyjson
// hands back (the same shape services/config.go's publishConfig consumes)
// into the typed defaults BoardConfig carries. Every numeric field in the
// source JSON arrives as a float64, mirroring encoding/json's own
// interface{} decoding convention.

func asObject(v any, field string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("boardcfg: %q is not a JSON object", field)
	}
	return m, nil
}

func asArray(v any, field string) ([]any, error) {
	a, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("boardcfg: %q is not a JSON array", field)
	}
	return a, nil
}

func asNumber(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

func asUint16(m map[string]any, key string) uint16 {
	n, _ := asNumber(m, key)
	return uint16(n)
}

func asInt(m map[string]any, key string) int {
	n, _ := asNumber(m, key)
	return int(n)
}

func asUint64(m map[string]any, key string) uint64 {
	n, _ := asNumber(m, key)
	return uint64(n)
}

func asBool(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

func decodeEEPROM(v any) (EEPROMGeometry, error) {
	m, err := asObject(v, "eeprom")
	if err != nil {
		return EEPROMGeometry{}, err
	}
	geo := EEPROMGeometry{
		PageSize:   asInt(m, "page_size"),
		TotalPages: asInt(m, "total_pages"),
	}
	if geo.PageSize <= 0 || geo.TotalPages <= 0 {
		return EEPROMGeometry{}, errors.New("boardcfg: eeprom geometry must be positive")
	}
	return geo, nil
}

func decodeZones(v any) ([]ZoneDefault, error) {
	arr, err := asArray(v, "zones")
	if err != nil {
		return nil, err
	}
	zones := make([]ZoneDefault, 0, len(arr))
	for i, item := range arr {
		m, err := asObject(item, fmt.Sprintf("zones[%d]", i))
		if err != nil {
			return nil, err
		}
		zd := ZoneDefault{
			Zone: asInt(m, "zone"),
			Config: mzc.ZoneConfig{
				HardFaultMask:  asUint64(m, "hard_fault_mask"),
				FaultHoldoffMS: asUint16(m, "fault_holdoff_ms"),
			},
		}
		if pinsVal, ok := m["pins"]; ok {
			pins, err := asArray(pinsVal, fmt.Sprintf("zones[%d].pins", i))
			if err != nil {
				return nil, err
			}
			for _, pitem := range pins {
				pm, err := asObject(pitem, fmt.Sprintf("zones[%d].pins[]", i))
				if err != nil {
					return nil, err
				}
				pin := asInt(pm, "pin")
				if pin < 0 || pin >= mzc.MaxPins {
					return nil, fmt.Errorf("boardcfg: zones[%d].pins[]: pin %d out of range", i, pin)
				}
				zd.Config.PwrEn[pin] = mzc.PinConfig{
					TimerMS:     asUint16(pm, "timer_ms"),
					ActiveLevel: asBool(pm, "active_level"),
					DriveEnable: asBool(pm, "drive_enable"),
				}
			}
		}
		zones = append(zones, zd)
	}
	return zones, nil
}

func decodeSensors(v any) ([]SensorDefault, error) {
	arr, err := asArray(v, "sensors")
	if err != nil {
		return nil, err
	}
	sensors := make([]SensorDefault, 0, len(arr))
	for i, item := range arr {
		m, err := asObject(item, fmt.Sprintf("sensors[%d]", i))
		if err != nil {
			return nil, err
		}
		sd := SensorDefault{
			Channel:        asInt(m, "channel"),
			AssertEnable:   asUint16(m, "assert_enable"),
			DeassertEnable: asUint16(m, "deassert_enable"),
		}
		if thrVal, ok := m["thresholds"]; ok {
			tm, err := asObject(thrVal, fmt.Sprintf("sensors[%d].thresholds", i))
			if err != nil {
				return nil, err
			}
			sd.Thresholds = sp.ThrCfg{
				LNC: asUint16(tm, "lnc"), LCR: asUint16(tm, "lcr"), LNR: asUint16(tm, "lnr"),
				UNC: asUint16(tm, "unc"), UCR: asUint16(tm, "ucr"), UNR: asUint16(tm, "unr"),
			}
		}
		if hystVal, ok := m["hysteresis"]; ok {
			hm, err := asObject(hystVal, fmt.Sprintf("sensors[%d].hysteresis", i))
			if err != nil {
				return nil, err
			}
			sd.Hysteresis = sp.HystCfg{
				HystPos: asUint16(hm, "pos"),
				HystNeg: asUint16(hm, "neg"),
			}
		}
		sensors = append(sensors, sd)
	}
	return sensors, nil
}
