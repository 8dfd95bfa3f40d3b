package boardcfg

// -----------------------------------------------------------------------------
// Embedded board variants
//
// Populate embeddedConfigs at build time (e.g. via code generation from a
// board-bringup spreadsheet) or manually during development.
// Key: board variant name. Val: raw JSON bytes for that board.
// -----------------------------------------------------------------------------

const cfgAtcaRef = `{
  "eeprom": {
    "page_size": 64,
    "total_pages": 1024
  },
  "zones": [
    {
      "zone": 0,
      "hard_fault_mask": 0,
      "fault_holdoff_ms": 50,
      "pins": [
        {"pin": 0, "timer_ms": 10, "active_level": true, "drive_enable": true},
        {"pin": 1, "timer_ms": 25, "active_level": true, "drive_enable": true}
      ]
    },
    {
      "zone": 1,
      "hard_fault_mask": 1,
      "fault_holdoff_ms": 100,
      "pins": [
        {"pin": 2, "timer_ms": 15, "active_level": true, "drive_enable": true}
      ]
    }
  ],
  "sensors": [
    {
      "channel": 0,
      "thresholds": {"lnc": 0, "lcr": 0, "lnr": 0, "unc": 3000, "ucr": 3200, "unr": 3400},
      "hysteresis": {"pos": 5, "neg": 5},
      "assert_enable": 63,
      "deassert_enable": 63
    },
    {
      "channel": 1,
      "thresholds": {"lnc": 0, "lcr": 0, "lnr": 0, "unc": 6000, "ucr": 6200, "unr": 6500},
      "hysteresis": {"pos": 10, "neg": 10},
      "assert_enable": 63,
      "deassert_enable": 63
    }
  ]
}`

var embeddedConfigs = map[string][]byte{
	"atca-ref": []byte(cfgAtcaRef),
}
