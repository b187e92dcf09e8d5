// internal/wire/registers.go
package wire

// VDS1022 register addresses.
// These values define the device protocol and MUST NOT be configurable.
// Widths noted per register are the contract the device expects.

// ---- IDENTITY / FLASH / FPGA ----

const (
	// RegMachine (1B arg 'V') replies with the model code in Value.
	RegMachine uint32 = 0x4001

	// RegReadFlash (1B arg 1) is answered by the raw 2002-byte flash image, no Reply.
	RegReadFlash uint32 = 0x01b0

	// RegWriteFlash (1B arg 1) expects the 2002-byte image afterwards. Never used.
	RegWriteFlash uint32 = 0x01a0

	// RegQueryFPGA (1B arg 0) replies 0 when the FPGA is not loaded.
	RegQueryFPGA uint32 = 0x0223

	// RegLoadFPGA (4B image length) replies with the negotiated frame size.
	RegLoadFPGA uint32 = 0x4000

	RegEmpty uint32 = 0x010c
)

// ---- ACQUISITION ----

const (
	// RegGetData (2B channel state mask) is answered by 5 bytes when not ready,
	// or one 5211-byte block per enabled channel.
	RegGetData uint32 = 0x1000

	// RegGetTriggered (1B arg 0) replies with per-channel triggered bits.
	RegGetTriggered uint32 = 0x01

	RegGetVideoTriggered uint32 = 0x02

	// RegMulti (1B): 0 trigger out, 1 pass/fail, 2 trigger in.
	RegMulti uint32 = 0x06

	// RegPeakMode (1B): 1 interleaves min/max samples.
	RegPeakMode uint32 = 0x09

	// RegRollMode (1B): 1 streams samples continuously.
	RegRollMode uint32 = 0x0a

	// RegChannelOn (1B): bit per channel.
	RegChannelOn uint32 = 0x0b

	// RegForceTrigger (1B): must be ForceTriggerValue.
	RegForceTrigger uint32 = 0x0c

	// RegPhaseFine (2B): value read back from flash.
	RegPhaseFine uint32 = 0x18

	// RegTrigger (2B): see package trigger for the bit layout.
	RegTrigger uint32 = 0x24

	RegVideoLine uint32 = 0x32

	// RegTimebase (4B): divider relative to TimebaseClockHz.
	RegTimebase uint32 = 0x52

	// RegPostTrigger (4B): samples after trigger.
	RegPostTrigger uint32 = 0x56

	// RegPreTrigger (2B): samples before trigger.
	RegPreTrigger uint32 = 0x5a

	// RegDeepMemory (2B): samples stored.
	RegDeepMemory uint32 = 0x5c

	// RegRunStop (1B): 0 run, 1 stop.
	RegRunStop uint32 = 0x61

	RegGetDataFinished uint32 = 0x7a
	RegGetStopped      uint32 = 0xb1
)

// ---- PER-CHANNEL ----

const (
	// RegChannelCH1 (1B) channel config:
	//   bit 1   input attenuation
	//   bit 2-3 bandwidth limit
	//   bit 5-6 coupling (0 DC, 1 AC, 2 GND)
	//   bit 7   channel on
	RegChannelCH1 uint32 = 0x0111
	RegChannelCH2 uint32 = 0x0110

	// RegZeroOffsetCHx (2B) calibrated zero offset.
	RegZeroOffsetCH1 uint32 = 0x010a
	RegZeroOffsetCH2 uint32 = 0x0108

	// RegVoltGainCHx (2B) calibrated gain.
	RegVoltGainCH1 uint32 = 0x0116
	RegVoltGainCH2 uint32 = 0x0114

	// RegSlopeThresholdCHx (2B) packed low/high slope thresholds.
	RegSlopeThresholdCH1 uint32 = 0x10
	RegSlopeThresholdCH2 uint32 = 0x12

	// RegEdgeLevelCHx (2B) two packed int8 thresholds.
	RegEdgeLevelCH1 uint32 = 0x2e
	RegEdgeLevelCH2 uint32 = 0x30

	// RegHoldoffCHx (2B) holdoff, 10-bit mantissa of 100ps units, decimal exponent above.
	RegHoldoffCH1 uint32 = 0x26
	RegHoldoffCH2 uint32 = 0x2a

	// Pulse/slope width condition, legacy boards (FPGA <= V2) only.
	RegCondEqualHighCH1 uint32 = 0x32
	RegCondEqualHighCH2 uint32 = 0x3a
	RegCondEqualLowCH1  uint32 = 0x36
	RegCondEqualLowCH2  uint32 = 0x3e

	// Pulse/slope width condition, all boards.
	RegCondGreaterLessCH1 uint32 = 0x42
	RegCondGreaterLessCH2 uint32 = 0x46

	// Pulse/slope width condition, current boards (FPGA >= V3) only.
	RegCondHighLowCH1 uint32 = 0x44
	RegCondHighLowCH2 uint32 = 0x48

	RegFreqRefCH1 uint32 = 0x4a
	RegFreqRefCH2 uint32 = 0x4b
)

// ---- FIXED VALUES ----

const (
	// IdentifyArg is the argument sent with RegMachine.
	IdentifyArg uint8 = 86

	// ModelVDS1022 is the RegMachine reply value for a VDS1022.
	ModelVDS1022 uint32 = 1

	// ModelVDS2052 is the RegMachine reply value for a VDS2052.
	ModelVDS2052 uint32 = 2

	// ReadFlashArg is the only accepted RegReadFlash argument.
	ReadFlashArg uint8 = 1

	// DataChannelMask requests both channels (0x05 on, 0x04 off per byte).
	DataChannelMask uint16 = 0x0505

	// ForceTriggerValue triggers acquisition when written to RegForceTrigger.
	ForceTriggerValue uint8 = 0x03

	// TimebaseClockHz is the sampling reference clock.
	TimebaseClockHz uint32 = 100_000_000
)
