package sp

// Register offsets, grounded on the IPMI Sensor Processor PL IP
// (original_source/Vivado/ip_repo/ipmi_sensor_proc_1.0/.../ipmi_sensor_proc.c).
const (
	regReset  = 0
	regIRQReq = 4
	regIRQAck = 8

	chStatusBase   = 256
	chStatusStride = 256
	// Sub-offsets within a channel's status block.
	offRawReading      = 0
	offThrStatus       = 4
	offEvAssertEn      = 8
	offEvDeassertEn    = 12
	offEvAssertRearm   = 16
	offEvDeassertRearm = 20
	offEvAssertCurSt   = 24
	offEvAssertSt      = 28 // latched assert
	offEvDeassertSt    = 32 // latched deassert

	chConfigBase   = 4096
	chConfigStride = 256
	// Sub-offsets within a channel's threshold/hysteresis config block.
	offHystPos = 0
	offHystNeg = 4
	offUNR     = 8
	offUCR     = 12
	offUNC     = 16
	offLNR     = 20
	offLCR     = 24
	offLNC     = 28
)

func chStatusBaseOf(ch int) uint32 { return chStatusBase + uint32(ch)*chStatusStride }
func chConfigBaseOf(ch int) uint32 { return chConfigBase + uint32(ch)*chConfigStride }

// Event bits, one per threshold direction (§3): 12 bits per mask, matching
// the original driver's documented bit layout (bit 0 = LNC-down, ...,
// bit 11 = UNR-up).
const (
	BitLNCDown = 1 << 0
	BitLNCUp   = 1 << 1
	BitLCRDown = 1 << 2
	BitLCRUp   = 1 << 3
	BitLNRDown = 1 << 4
	BitLNRUp   = 1 << 5
	BitUNCDown = 1 << 6
	BitUNCUp   = 1 << 7
	BitUCRDown = 1 << 8
	BitUCRUp   = 1 << 9
	BitUNRDown = 1 << 10
	BitUNRUp   = 1 << 11

	eventBitMask = 0xFFF // 12 bits per direction
)
