// Command pmc-host-demo brings up a complete PMC core against simulated
// hardware: a board variant's bring-up config seeds the MZC and SP, a
// simulated EEPROM backs the PSE, a simulated IPMB bus carries the IMT's
// traffic, and a battery charger feeds the SP's four channels, exercising an
// entire service stack end to end against host-simulated devices rather
// than real silicon.
package main

import (
	"context"
	"fmt"
	"time"

	"pmc-core/drivers/ltc4015"
	"pmc-core/internal/boardcfg"
	"pmc-core/internal/boardpower"
	"pmc-core/internal/diagbus"
	"pmc-core/internal/imt"
	"pmc-core/internal/mzc"
	"pmc-core/internal/pse"
	"pmc-core/internal/regmap"
	"pmc-core/internal/sp"
	"pmc-core/internal/supervisor"
)

type fakeCharger struct{ words map[byte]uint16 }

func (f *fakeCharger) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 || len(r) == 0 {
		return nil
	}
	v := f.words[w[0]]
	r[0] = byte(v)
	r[1] = byte(v >> 8)
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := boardcfg.Load("atca-ref")
	if err != nil {
		fmt.Println("[main] board config load failed:", err)
		return
	}

	zoneBank := regmap.NewSimBank()
	zones := mzc.New(zoneBank)

	sensorBank := regmap.NewSimBank()
	charger := ltc4015.New(&fakeCharger{words: map[byte]uint16{
		0x3A: 10600, // VBAT raw
		0x3D: 200,   // IBAT raw
	}}, ltc4015.Config{Cells: 1, Chem: ltc4015.ChemLithium, RSNSB_uOhm: 10000, RSNSI_uOhm: 10000})
	reader := boardpower.NewReader(charger)
	sensors := sp.New(sensorBank, 4, reader)

	if err := boardcfg.Apply(cfg, zones, sensors); err != nil {
		fmt.Println("[main] board config apply failed:", err)
		return
	}

	ee := pse.NewSimEEPROM(cfg.EEPROM.PageSize, cfg.EEPROM.TotalPages)
	sv := supervisor.New(mzc.MaxZones)
	storage, err := pse.New(ee, sv.Sink("pse"))
	if err != nil {
		fmt.Println("[main] PSE load failed:", err)
		return
	}
	go storage.Run(ctx, 10*time.Second)

	ipmbBus := imt.NewSimBus()
	link := imt.New(ipmbBus, 0x20)

	sv.Attach(zones, sensors, link)
	go sv.Run(ctx, 200*time.Millisecond)

	zoneFeed := sv.Sink("console-zone").Subscribe(diagbus.T("zone", 0, "power"))
	sensorFeed := sv.Sink("console-sensor").Subscribe(diagbus.T("sensor", "+", "event"))

	fmt.Println("[main] powering on zone 0")
	if err := zones.PowerOnSequence(0); err != nil {
		fmt.Println("[main] PowerOnSequence failed:", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-zoneFeed.Channel():
			fmt.Println("[zone]", r.Payload)
		case r := <-sensorFeed.Channel():
			fmt.Println("[sensor]", r.Payload)
		case <-deadline:
			fmt.Println("[main] demo window elapsed, shutting down")
			return
		}
	}
}
