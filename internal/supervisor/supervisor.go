// Package supervisor wires the Management Zone Controller, Sensor
// Processor, Persistent Storage Engine and IPMB Transceiver together
// (§4.9, component I): it owns the diagnostics fabric, hands out sinks to
// components that publish directly (the PSE), and polls the components
// that have no publish hook of their own (the MZC's zone state, the SP's
// event stream, the IMT's link statistics), republishing zone state and
// link statistics as retained diagnostics reports and sensor events as
// non-retained ones.
package supervisor

import (
	"context"
	"time"

	"pmc-core/internal/diagbus"
	"pmc-core/internal/imt"
	"pmc-core/internal/mzc"
	"pmc-core/internal/sp"
)

// Supervisor is optional: a PMC built without one operates identically,
// just with nothing republishing state onto a fabric (§4.9, nil-safe).
type Supervisor struct {
	fabric *diagbus.Fabric
	diag   *diagbus.Sink

	zones    *mzc.Controller
	numZones int
	sensors  *sp.Controller
	link     *imt.Device
}

// New creates a Supervisor with its own diagnostics fabric, sized for
// numZones zones. Call Sink to get a connection for components (like the
// PSE) that publish to the fabric directly rather than being polled.
func New(numZones int) *Supervisor {
	fabric := diagbus.NewFabric(8)
	return &Supervisor{fabric: fabric, diag: fabric.NewSink("supervisor"), numZones: numZones}
}

// Fabric returns the shared diagnostics fabric, for an observer to
// subscribe against.
func (sv *Supervisor) Fabric() *diagbus.Fabric { return sv.fabric }

// Sink hands a component its own named connection to the fabric.
func (sv *Supervisor) Sink(name string) *diagbus.Sink { return sv.fabric.NewSink(name) }

// Attach records the components the supervisor polls. Any of them may be
// nil; Run skips the corresponding loop.
func (sv *Supervisor) Attach(zones *mzc.Controller, sensors *sp.Controller, link *imt.Device) {
	sv.zones = zones
	sv.sensors = sensors
	sv.link = link
}

// Run drives every attached component's polling loop until ctx is
// canceled. The PSE is not polled here; it is given its own sink at
// construction and publishes flush completions itself (§4.5).
func (sv *Supervisor) Run(ctx context.Context, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	if sv.zones != nil {
		go sv.pollZones(ctx, pollInterval)
	}
	if sv.sensors != nil {
		go sv.drainSensorEvents(ctx)
	}
	if sv.link != nil {
		go sv.pollLinkStats(ctx, pollInterval)
	}
	<-ctx.Done()
}

// pollZones observes each zone's aggregate power state and republishes on
// change. The PL IP exposes zone state only through register readback, so
// unlike the SP there is no event stream to drain here: an edge-detecting
// poll is the only option (§4.4).
func (sv *Supervisor) pollZones(ctx context.Context, interval time.Duration) {
	const unseen = mzc.PwrState(0xFF)
	last := make([]mzc.PwrState, sv.numZones)
	for i := range last {
		last[i] = unseen
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for z := 0; z < sv.numZones; z++ {
				st, err := sv.zones.GetZoneState(z)
				if err != nil || st == last[z] {
					continue
				}
				last[z] = st
				sv.diag.Publish(diagbus.T("zone", z, "power"), st.String(), true)
			}
		}
	}
}

// drainSensorEvents republishes every event the SP's GetEvent delivers.
// GetEvent already blocks with a timeout, so this loop needs no ticker of
// its own.
func (sv *Supervisor) drainSensorEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev, ok := sv.sensors.GetEvent(100 * time.Millisecond)
		if !ok {
			continue
		}
		sv.diag.Publish(diagbus.T("sensor", ev.Channel, "event"), ev, false)
	}
}

func (sv *Supervisor) pollLinkStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sv.diag.Publish(diagbus.T("imt", "stats"), sv.link.Stats(), true)
		}
	}
}
