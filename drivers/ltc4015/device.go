package ltc4015

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Public chemistry families.
type Chemistry uint8

const (
	ChemUnknown  Chemistry = iota
	ChemLithium            // VBAT LSB: 192.264 µV/cell
	ChemLeadAcid           // VBAT LSB: 128.176 µV/cell
)

var (
	ErrRSNSBUnset = errors.New("RSNSB_uOhm must be set for battery current operations")
	ErrRSNSIUnset = errors.New("RSNSI_uOhm must be set for input current operations")
)

// Driver configuration. Integer-only.
type Config struct {
	Address         uint16
	RSNSB_uOhm      uint32 // battery path sense resistor in µΩ
	RSNSI_uOhm      uint32 // input path sense resistor in µΩ
	Cells           uint8  // optional; read from pins if 0
	Chem            Chemistry
	QCountPrescale  uint16 // if 0, leave hardware default
	TargetsWritable bool   // set false if using a fixed-chem variant
}

// DefaultConfig provides minimal defaults; caller must set sense resistors.
func DefaultConfig() Config {
	return Config{
		Address:         AddressDefault,
		Chem:            ChemLithium,
		TargetsWritable: true,
	}
}

// Validate basic required fields used by many APIs.
func (c Config) Validate() error {
	if c.Address == 0 {
		return errors.New("Address must be non-zero (use AddressDefault)")
	}
	if c.RSNSB_uOhm == 0 {
		return errors.New("RSNSB_uOhm must be set (battery path sense)")
	}
	if c.RSNSI_uOhm == 0 {
		return errors.New("RSNSI_uOhm must be set (input path sense)")
	}
	return nil
}

// Device represents an LTC4015 instance on an I²C bus.
type Device struct {
	i2c   drivers.I2C
	addr  uint16
	cells uint8
	chem  Chemistry

	rsnsB_uOhm      uint32
	rsnsI_uOhm      uint32
	targetsWritable bool

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device with supplied config.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	chem := cfg.Chem
	if chem == ChemUnknown {
		chem = ChemLithium
	}
	return &Device{
		i2c:             i2c,
		addr:            addr,
		cells:           cfg.Cells,
		chem:            chem,
		rsnsB_uOhm:      cfg.RSNSB_uOhm,
		rsnsI_uOhm:      cfg.RSNSI_uOhm,
		targetsWritable: cfg.TargetsWritable,
	}
}

// Configure applies runtime changes. Chemistry is not changed here.
func (d *Device) Configure(cfg Config) error {
	// Cells from caller or pins.
	if cfg.Cells != 0 {
		d.cells = cfg.Cells
	} else {
		if v, err := d.readWord(regChemCells); err == nil {
			d.cells = uint8(v & 0x000F)
		}
	}
	if cfg.RSNSB_uOhm != 0 {
		d.rsnsB_uOhm = cfg.RSNSB_uOhm
	}
	if cfg.RSNSI_uOhm != 0 {
		d.rsnsI_uOhm = cfg.RSNSI_uOhm
	}
	if cfg.QCountPrescale != 0 {
		if err := d.writeWord(regQCountPrescale, cfg.QCountPrescale); err != nil {
			return err
		}
	}
	if !cfg.TargetsWritable {
		d.targetsWritable = false
	}
	return nil
}

// Introspection.
func (d *Device) Chem() Chemistry       { return d.chem }
func (d *Device) Cells() uint8          { return d.cells }
func (d *Device) TargetsWritable() bool { return d.targetsWritable }
