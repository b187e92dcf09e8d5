// internal/scope/bringup.go
package scope

import (
	"fmt"

	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/wire"
)

// Power-on channel config: channel on, AC coupling.
const defaultChannelConfig byte = 0xa0

// DefaultSequence is the register setup pushed once the device is ready.
// Order matters: channels are switched on before their gain and offset.
func DefaultSequence(phaseFine uint16) []wire.Command {
	return []wire.Command{
		wire.Cmd16(wire.RegPhaseFine, phaseFine),
		wire.Cmd16(wire.RegTrigger, 0),
		wire.Cmd16(wire.RegHoldoffCH1, 0x8002),
		wire.Cmd16(wire.RegEdgeLevelCH1, 0xfd07),
		wire.Cmd8(wire.RegChannelCH1, defaultChannelConfig),
		wire.Cmd16(wire.RegVoltGainCH1, 0x021b),
		wire.Cmd16(wire.RegZeroOffsetCH1, 0x0576),
		wire.Cmd8(wire.RegChannelOn, 0x03),
		wire.Cmd8(wire.RegChannelCH2, defaultChannelConfig),
		wire.Cmd16(wire.RegVoltGainCH2, 0x0218),
		wire.Cmd16(wire.RegZeroOffsetCH2, 0x057b),
		wire.Cmd16(wire.RegDeepMemory, 0x13ec),
		wire.Cmd8(wire.RegMulti, 0),
		wire.Cmd32(wire.RegTimebase, 0x109),
		wire.Cmd8(wire.RegPeakMode, 0),
		wire.Cmd8(wire.RegRollMode, 0),
		wire.Cmd16(wire.RegPreTrigger, 0x09f6),
		wire.Cmd32(wire.RegPostTrigger, 0x09f6),
	}
}

// BringUp runs model check, calibration load, readiness check and the
// default register sequence. Any failure leaves the session Failed.
func (s *Session) BringUp() error {
	if st := s.State(); st != Disconnected {
		return fmt.Errorf("scope: bring-up already attempted (state=%s)", st)
	}

	// 1. model
	r, err := s.exchange(wire.Cmd8(wire.RegMachine, wire.IdentifyArg))
	if err != nil {
		return s.fail(err)
	}
	if r.Value != wire.ModelVDS1022 {
		return s.fail(&ModelMismatchError{Got: r.Value})
	}
	s.setState(ModelChecked)
	s.log.Info().Uint32("model", r.Value).Msg("scope: model checked")

	// 2. calibration
	info, err := s.readFlash()
	if err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	s.info = info
	s.state = CalibrationLoaded
	s.mu.Unlock()
	s.log.Info().
		Str("firmware", info.DeviceVersion).
		Str("serial", info.Serial).
		Bool("legacy", info.Legacy).
		Msg("scope: calibration loaded")

	// 3. readiness
	r, err = s.exchange(wire.Cmd8(wire.RegQueryFPGA, 0))
	if err != nil {
		return s.fail(err)
	}
	if r.Value == 0 {
		return s.fail(ErrFPGANotLoaded)
	}
	s.setState(ReadinessChecked)

	// 4. defaults
	if err := s.run(DefaultSequence(info.PhaseFine)); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.chanCfg = [flash.Channels]byte{defaultChannelConfig, defaultChannelConfig}
	s.state = Configured
	s.mu.Unlock()
	s.log.Info().Msg("scope: configured")

	return nil
}

// readFlash requests the flash image and reads it in one bulk transfer.
func (s *Session) readFlash() (*flash.Info, error) {
	buf := make([]byte, flash.Size)

	s.mu.Lock()
	cmd := wire.Cmd8(wire.RegReadFlash, wire.ReadFlashArg)
	err := s.writeLocked(cmd)
	var n int
	if err == nil {
		n, err = s.t.Read(buf, s.cmdTimeout)
		if err != nil {
			err = &TransportError{Op: opName("read flash", cmd), Err: err}
		}
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	info, err := flash.Parse(buf[:n])
	if err != nil {
		return nil, &FlashError{Err: err}
	}
	return info, nil
}

func (s *Session) fail(err error) error {
	s.setState(Failed)
	s.log.Error().Err(err).Msg("scope: bring-up failed")
	return err
}
