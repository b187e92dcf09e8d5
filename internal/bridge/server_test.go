// internal/bridge/server_test.go
package bridge

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"github.com/tamzrod/vds-bridge/internal/acquire"
	"github.com/tamzrod/vds-bridge/internal/config"
	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/scpi"
	"github.com/tamzrod/vds-bridge/internal/status"
	"github.com/tamzrod/vds-bridge/internal/transport/transporttest"
	"github.com/tamzrod/vds-bridge/internal/wire"
	"github.com/tamzrod/vds-bridge/internal/writer"
)

func testFlash(t *testing.T) []byte {
	t.Helper()
	var info flash.Info
	for ch := 0; ch < flash.Channels; ch++ {
		for r := 0; r < flash.Ranges; r++ {
			info.Calibration[ch].Gain[r] = uint16(0x0200 + r)
			info.Calibration[ch].Amplitude[r] = 100
			info.Calibration[ch].Compensation[r] = uint16(0x0570 + r)
		}
	}
	info.DeviceVersion = "V3.0.1"
	info.Serial = "VDS1022I0001"
	blob, err := flash.Encode(info)
	assert.NilError(t, err)
	return blob
}

func newServer(t *testing.T, tr *status.Tracker) (*Server, *transporttest.Device) {
	t.Helper()

	dev := transporttest.New(testFlash(t))
	sess := scope.New(dev, scope.WithCommandTimeout(10*time.Millisecond))
	assert.NilError(t, sess.BringUp())

	// set before any goroutine touches the device
	dev.Delay = 50 * time.Microsecond

	backoff := 1
	srv, err := New(sess, Config{
		Device:  config.DeviceConfig{PollTimeoutMs: 5, PollBackoffMs: &backoff},
		Tracker: tr,
		Logger:  zerolog.Nop(),
	})
	assert.NilError(t, err)

	t.Cleanup(func() {
		_ = srv.Close()
		_ = dev.Close()
	})
	return srv, dev
}

func do(t *testing.T, srv *Server, line string) (string, error) {
	t.Helper()
	req, err := scpi.Parse(line)
	assert.NilError(t, err)
	return srv.Handle(req)
}

func mustDo(t *testing.T, srv *Server, line string) string {
	t.Helper()
	reply, err := do(t, srv, line)
	assert.NilError(t, err, line)
	return reply
}

func TestQueries(t *testing.T) {
	srv, _ := newServer(t, nil)

	assert.Equal(t, mustDo(t, srv, "*IDN?"), "OWON,VDS1022,VDS1022I0001,V3.0.1")
	assert.Equal(t, mustDo(t, srv, "CHANS?"), "2")
	assert.Equal(t, mustDo(t, srv, "DEPTHS?"), "5000")
	assert.Equal(t, mustDo(t, srv, "ARMED?"), "0")
	assert.Equal(t, mustDo(t, srv, "C1:TYPE?"), "ANALOG")
	assert.Equal(t, mustDo(t, srv, "EX:TYPE?"), "EXTERNAL")

	rates := mustDo(t, srv, "RATES?")
	assert.Assert(t, len(rates) > 0)
	assert.Equal(t, rates[:len("25,50,125")], "25,50,125")
}

func TestUnknownVerb(t *testing.T) {
	srv, _ := newServer(t, nil)

	_, err := do(t, srv, "BOGUS")
	assert.ErrorIs(t, err, scpi.ErrUnknownCommand)
	_, err = do(t, srv, "C3:ON")
	assert.ErrorIs(t, err, scpi.ErrUnknownCommand)
}

func TestChannelVerbs(t *testing.T) {
	srv, dev := newServer(t, nil)

	mustDo(t, srv, "C1:COUP DC")
	v, ok := dev.Register(wire.RegChannelCH1)
	assert.Assert(t, ok)
	assert.Equal(t, v, uint32(0x80))
	assert.Equal(t, mustDo(t, srv, "C1:COUP?"), "DC1M")

	mustDo(t, srv, "C2:RANGE 8")
	assert.Equal(t, mustDo(t, srv, "C2:RANGE?"), "8")

	mustDo(t, srv, "C2:OFF")
	assert.Equal(t, mustDo(t, srv, "C2:ON?"), "0")
	v, _ = dev.Register(wire.RegChannelOn)
	assert.Equal(t, v, uint32(0x01))

	_, err := do(t, srv, "EX:ON")
	assert.ErrorIs(t, err, scope.ErrConfigRejected)
	_, err = do(t, srv, "C1:RANGE abc")
	assert.ErrorIs(t, err, scope.ErrConfigRejected)
}

func TestSampleRate(t *testing.T) {
	srv, dev := newServer(t, nil)

	// 1 MHz is not in the supported set
	_, err := do(t, srv, "RATE 1000000")
	assert.ErrorIs(t, err, scope.ErrConfigRejected)
	_, err = do(t, srv, "RATE -5")
	assert.ErrorIs(t, err, scope.ErrConfigRejected)

	mustDo(t, srv, "RATE 1250000")
	assert.Equal(t, mustDo(t, srv, "RATE?"), "1250000")
	v, _ := dev.Register(wire.RegTimebase)
	assert.Equal(t, v, uint32(80))
}

func TestTriggerVerbs(t *testing.T) {
	srv, dev := newServer(t, nil)

	mustDo(t, srv, "TRIG:SOU EX")
	assert.Equal(t, mustDo(t, srv, "TRIG:SOU?"), "EX")
	v, _ := dev.Register(wire.RegMulti)
	assert.Equal(t, v, uint32(2))

	// external accepts edge only; the rejected change is not kept
	_, err := do(t, srv, "TRIG:MODE PULSE")
	assert.ErrorIs(t, err, scope.ErrConfigRejected)
	assert.Equal(t, mustDo(t, srv, "TRIG:MODE?"), "EDGE")

	_, err = do(t, srv, "TRIG:LEV 1.0")
	assert.ErrorIs(t, err, scope.ErrConfigRejected)

	mustDo(t, srv, "TRIG:SOU C2")
	mustDo(t, srv, "TRIG:EDGE:DIR FALL")
	assert.Equal(t, mustDo(t, srv, "TRIG:EDGE:DIR?"), "FALL")
	mustDo(t, srv, "TRIG:MODE PULSE")
	assert.Equal(t, mustDo(t, srv, "TRIG:MODE?"), "PULSE")
	// direction survives the mode change
	assert.Equal(t, mustDo(t, srv, "TRIG:EDGE:DIR?"), "FALL")

	mustDo(t, srv, "TRIG:WIDTH 0.001")
	mustDo(t, srv, "TRIG:DELAY 0.0001")
	mustDo(t, srv, "TRIG:LEV 0")
	v, _ = dev.Register(wire.RegMulti)
	assert.Equal(t, v, uint32(0))
}

func TestNormalizedLevel(t *testing.T) {
	assert.Equal(t, NormalizedLevel(0, 1, 0), 0.5)
	assert.Equal(t, NormalizedLevel(2.5, 1, 0), 0.75)
	assert.Equal(t, NormalizedLevel(-2.5, 1, 0), 0.25)
	assert.Equal(t, NormalizedLevel(0, 1, 2.5), 0.75)
	assert.Equal(t, NormalizedLevel(100, 1, 0), 1.0)
	assert.Equal(t, NormalizedLevel(-100, 1, 0), 0.0)
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	return ln
}

func subscribe(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	ln := listen(t)
	go func() { _ = srv.ServeWaveform(ln) }()

	c, err := net.Dial("tcp", ln.Addr().String())
	assert.NilError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if srv.Subscribers() == 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for subscriber")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
	return c
}

func TestWaveformStreamedWhileArmed(t *testing.T) {
	tr := status.NewTracker()
	srv, dev := newServer(t, tr)
	c := subscribe(t, srv)

	mustDo(t, srv, "START")
	assert.Equal(t, mustDo(t, srv, "ARMED?"), "1")

	dev.PushData(transporttest.DataReply(map[uint8]*acquire.ChannelData{
		0: {TimeSum: 1234, PeriodNum: 5, Cursor: 6},
	}))

	rec := make([]byte, writer.RecordSize)
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := io.ReadFull(c, rec)
	assert.NilError(t, err)

	assert.Equal(t, rec[0], byte(0))
	assert.Equal(t, binary.LittleEndian.Uint32(rec[1:]), uint32(1234))
	assert.Equal(t, binary.LittleEndian.Uint32(rec[5:]), uint32(5))
	assert.Equal(t, binary.LittleEndian.Uint16(rec[9:]), uint16(6))

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if tr.Snapshot().Waveforms == 1 {
			return poll.Success()
		}
		return poll.Continue("waveform not counted")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
	assert.Assert(t, tr.Snapshot().Armed)
}

func TestSingleDisarmsAfterFirstWaveform(t *testing.T) {
	srv, dev := newServer(t, nil)
	c := subscribe(t, srv)

	mustDo(t, srv, "SINGLE")
	dev.PushData(transporttest.DataReply(map[uint8]*acquire.ChannelData{
		0: {TimeSum: 1},
		1: {TimeSum: 2},
	}))

	rec := make([]byte, 2*writer.RecordSize)
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := io.ReadFull(c, rec)
	assert.NilError(t, err)
	assert.Equal(t, rec[writer.RecordSize], byte(1))

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		v, _ := dev.Register(wire.RegRunStop)
		if !srv.Armed() && v == 1 {
			return poll.Success()
		}
		return poll.Continue("still armed")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
}

func TestStartAfterSingleStaysArmed(t *testing.T) {
	srv, dev := newServer(t, nil)

	mustDo(t, srv, "SINGLE")
	mustDo(t, srv, "START")

	// a waveform that lands after START must not stop the device
	stopped, err := srv.finishSingle()
	assert.NilError(t, err)
	assert.Assert(t, !stopped)
	assert.Assert(t, srv.Armed())
	v, _ := dev.Register(wire.RegRunStop)
	assert.Equal(t, v, uint32(0))
}

func TestFinishSingleStopsOnce(t *testing.T) {
	srv, dev := newServer(t, nil)

	mustDo(t, srv, "SINGLE")
	stopped, err := srv.finishSingle()
	assert.NilError(t, err)
	assert.Assert(t, stopped)
	assert.Assert(t, !srv.Armed())
	v, _ := dev.Register(wire.RegRunStop)
	assert.Equal(t, v, uint32(1))

	stopped, err = srv.finishSingle()
	assert.NilError(t, err)
	assert.Assert(t, !stopped)
}

func TestStopDisarms(t *testing.T) {
	srv, dev := newServer(t, nil)

	mustDo(t, srv, "START")
	v, _ := dev.Register(wire.RegRunStop)
	assert.Equal(t, v, uint32(0))

	mustDo(t, srv, "STOP")
	assert.Equal(t, mustDo(t, srv, "ARMED?"), "0")
	v, _ = dev.Register(wire.RegRunStop)
	assert.Equal(t, v, uint32(1))

	mustDo(t, srv, "FORCE")
	v, _ = dev.Register(wire.RegForceTrigger)
	assert.Equal(t, v, uint32(wire.ForceTriggerValue))
}

func TestTrackerFollowsPollOutcomes(t *testing.T) {
	tr := status.NewTracker()
	_, dev := newServer(t, tr)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if tr.Snapshot().Health == status.HealthOK {
			return poll.Success()
		}
		return poll.Continue("health %d", tr.Snapshot().Health)
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
	assert.Equal(t, tr.Snapshot().SessionState, uint16(scope.Configured))

	dev.SetFailOn(wire.RegGetData)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		s := tr.Snapshot()
		if s.Health == status.HealthError && s.LastErrorCode == scope.CodeTransport {
			return poll.Success()
		}
		return poll.Continue("health %d code %d", s.Health, s.LastErrorCode)
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
}

func TestForegroundAndPollerNeverInterleave(t *testing.T) {
	srv, dev := newServer(t, nil)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = do(t, srv, "C"+strconv.Itoa(g%2+1)+":OFFS 0."+strconv.Itoa(i%10))
				_, _ = do(t, srv, "RATE 1250000")
			}
		}(g)
	}
	wg.Wait()

	assert.NilError(t, srv.Close())
	assert.Equal(t, dev.Violations(), 0)
}

func TestCloseStopsDeviceAccess(t *testing.T) {
	srv, dev := newServer(t, nil)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if dev.Writes() > 30 {
			return poll.Success()
		}
		return poll.Continue("poller idle")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))

	assert.NilError(t, srv.Close())
	n := dev.Writes()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, dev.Writes(), n)

	assert.NilError(t, dev.Close())
	assert.NilError(t, srv.Close())
}

func TestServeSCPIOverTCP(t *testing.T) {
	srv, _ := newServer(t, nil)

	ln := listen(t)
	errc := make(chan error, 1)
	go func() { errc <- srv.ServeSCPI(ln) }()

	c, err := net.Dial("tcp", ln.Addr().String())
	assert.NilError(t, err)
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = io.WriteString(c, "C1:ON\nBOGUS\n*IDN?\n")
	assert.NilError(t, err)

	line, err := bufio.NewReader(c).ReadString('\n')
	assert.NilError(t, err)
	assert.Equal(t, line, "OWON,VDS1022,VDS1022I0001,V3.0.1\n")

	assert.NilError(t, srv.Close())
	assert.ErrorIs(t, <-errc, ErrServerClosed)
}
