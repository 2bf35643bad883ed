package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/daylight/internal/daywindow"
	"github.com/dokzlo13/daylight/internal/hue"
)

// fakeBridge serves a fixed light and records state updates
type fakeBridge struct {
	mu        sync.Mutex
	light     *hue.Light
	getErrs   []error // consumed one per GetLight call, nil entries succeed
	setErr    error
	getCalls  int
	updates   []hue.LightStateUpdate
	blockGets bool
}

func (b *fakeBridge) GetLight(ctx context.Context, lightID string) (*hue.Light, error) {
	b.mu.Lock()
	b.getCalls++
	var err error
	if len(b.getErrs) > 0 {
		err, b.getErrs = b.getErrs[0], b.getErrs[1:]
	}
	block := b.blockGets
	b.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	l := *b.light
	l.ID = lightID
	return &l, nil
}

func (b *fakeBridge) SetLightState(ctx context.Context, lightID string, update hue.LightStateUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
	return b.setErr
}

func (b *fakeBridge) Updates() []hue.LightStateUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]hue.LightStateUpdate(nil), b.updates...)
}

func ctLight() *hue.Light {
	l := &hue.Light{Name: "Desk", Type: "Extended color light"}
	l.Capabilities.Control.CT = &hue.CTRange{Min: 153, Max: 500}
	return l
}

func dimmableLight() *hue.Light {
	return &hue.Light{Name: "Hall", Type: "Dimmable light"}
}

var windowStart = time.Date(2024, time.May, 10, 7, 0, 0, 0, time.UTC)

func testWindow() daywindow.Window {
	return daywindow.Window{
		Start: windowStart,
		End:   windowStart.Add(12 * time.Hour),
		Date:  time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC),
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStep_Midday(t *testing.T) {
	bridge := &fakeBridge{light: ctLight()}
	l := New(Config{LightID: "5"}, bridge, testWindow(), WithClock(fixedClock(windowStart.Add(6*time.Hour))))

	require.NoError(t, l.Step(context.Background()))

	updates := bridge.Updates()
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Bri)
	assert.Equal(t, uint8(254), *updates[0].Bri)
	require.NotNil(t, updates[0].Ct)
	assert.Equal(t, uint16(153), *updates[0].Ct)
	assert.Nil(t, updates[0].On)

	st := l.Status()
	assert.Equal(t, uint64(1), st.Iterations)
	require.NotNil(t, st.LastSetting)
	assert.Equal(t, uint8(254), st.LastSetting.Brightness)
}

func TestStep_NightWithoutColorTemperature(t *testing.T) {
	bridge := &fakeBridge{light: dimmableLight()}
	l := New(Config{LightID: "2"}, bridge, testWindow(), WithClock(fixedClock(windowStart.Add(-5*time.Hour))))

	require.NoError(t, l.Step(context.Background()))

	updates := bridge.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, uint8(0), *updates[0].Bri)
	assert.Nil(t, updates[0].Ct)
}

func TestStep_StartOfDay(t *testing.T) {
	bridge := &fakeBridge{light: ctLight()}
	l := New(Config{LightID: "5"}, bridge, testWindow(), WithClock(fixedClock(windowStart)))

	require.NoError(t, l.Step(context.Background()))

	u := bridge.Updates()[0]
	assert.Equal(t, uint8(102), *u.Bri) // baseline 0.4
	assert.Equal(t, uint16(500), *u.Ct) // warmest
}

func TestStep_ReadFailure(t *testing.T) {
	bridge := &fakeBridge{light: ctLight(), getErrs: []error{errors.New("timeout")}}
	l := New(Config{LightID: "5"}, bridge, testWindow(), WithClock(fixedClock(windowStart)))

	err := l.Step(context.Background())
	assert.ErrorIs(t, err, ErrDeviceRead)
	assert.Empty(t, bridge.Updates())
	assert.Equal(t, uint64(1), l.Status().ReadFailures)
	assert.Contains(t, l.Status().LastError, "timeout")
}

func TestStep_WriteFailure(t *testing.T) {
	bridge := &fakeBridge{light: ctLight(), setErr: errors.New("link down")}
	l := New(Config{LightID: "5"}, bridge, testWindow(), WithClock(fixedClock(windowStart)))

	err := l.Step(context.Background())
	assert.ErrorIs(t, err, ErrDeviceWrite)

	st := l.Status()
	assert.Equal(t, uint64(1), st.Iterations)
	assert.Equal(t, uint64(1), st.WriteFailures)
}

func TestRun_FirstReadIsFatal(t *testing.T) {
	bridge := &fakeBridge{light: ctLight(), getErrs: []error{hue.ErrLightNotFound}}
	l := New(Config{LightID: "9"}, bridge, testWindow())

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrDeviceRead)
	assert.ErrorIs(t, err, hue.ErrLightNotFound)
	assert.Equal(t, StateStopped, l.State())
	assert.Empty(t, bridge.Updates())
}

func TestRun_ToleratesFailuresAndStops(t *testing.T) {
	bridge := &fakeBridge{
		light:   ctLight(),
		getErrs: []error{nil, errors.New("flaky"), nil},
		setErr:  nil,
	}
	l := New(Config{LightID: "5", Interval: 5 * time.Millisecond}, bridge, testWindow(),
		WithClock(fixedClock(windowStart.Add(time.Hour))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return len(bridge.Updates()) >= 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, l.State())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}

	assert.Equal(t, StateStopped, l.State())
	st := l.Status()
	assert.Equal(t, "stopped", st.State)
	assert.Equal(t, "Desk", st.LightName)
	assert.Equal(t, uint64(1), st.ReadFailures)
	assert.GreaterOrEqual(t, st.Iterations, uint64(3))
}

func TestRun_WriteFailuresDoNotStopLoop(t *testing.T) {
	bridge := &fakeBridge{light: ctLight(), setErr: errors.New("bridge busy")}
	l := New(Config{LightID: "5", Interval: time.Millisecond}, bridge, testWindow(),
		WithClock(fixedClock(windowStart)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Status().WriteFailures >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRun_CancellationBoundedByRequestTimeout(t *testing.T) {
	bridge := &fakeBridge{light: ctLight()}
	l := New(Config{LightID: "5", Interval: time.Millisecond, RequestTimeout: 50 * time.Millisecond},
		bridge, testWindow(), WithClock(fixedClock(windowStart)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.State() == StateRunning }, time.Second, time.Millisecond)

	// Bridge stops answering; the in-flight read is abandoned on cancel
	bridge.mu.Lock()
	bridge.blockGets = true
	bridge.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRateLimitedDispatch(t *testing.T) {
	bridge := &fakeBridge{light: ctLight()}
	l := New(Config{LightID: "5", RateLimitRPS: 20}, bridge, testWindow(), WithClock(fixedClock(windowStart)))

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Step(context.Background()))
	}
	// First token is free, the next two wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestStaleWindowWarnsOnce(t *testing.T) {
	bridge := &fakeBridge{light: ctLight()}
	l := New(Config{LightID: "5"}, bridge, testWindow(), WithClock(fixedClock(windowStart.AddDate(0, 0, 1))))

	require.NoError(t, l.Step(context.Background()))
	assert.True(t, l.staleWarned)

	// Tomorrow's instants are far past the end of the window: lights off
	assert.Equal(t, uint8(0), *bridge.Updates()[0].Bri)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "state(9)", State(9).String())
}
