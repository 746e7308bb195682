package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	flags map[string]*flags.FeatureFlag
}

func (f fakeSource) GetFlag(_ context.Context, name string) *flags.FeatureFlag {
	return f.flags[name]
}

func (f fakeSource) IsFlagEnabled(ctx context.Context, name string) bool {
	flag := f.GetFlag(ctx, name)
	return flag != nil && flag.Enabled
}

func (f fakeSource) GetFlagConfig(ctx context.Context, name string) flags.FlagConfig {
	flag := f.GetFlag(ctx, name)
	if flag == nil || flag.Config == nil {
		return flags.FlagConfig{}
	}
	return flag.Config
}

type panickySource struct{}

func (panickySource) GetFlag(context.Context, string) *flags.FeatureFlag {
	panic("flag source exploded")
}
func (panickySource) IsFlagEnabled(context.Context, string) bool { panic("flag source exploded") }
func (panickySource) GetFlagConfig(context.Context, string) flags.FlagConfig {
	panic("flag source exploded")
}

type recordingTerminator struct {
	calls chan int
}

func newRecordingTerminator() *recordingTerminator {
	return &recordingTerminator{calls: make(chan int, 8)}
}

func (r *recordingTerminator) Terminate(code int) {
	r.calls <- code
}

func enabled(name string, cfg flags.FlagConfig) *flags.FeatureFlag {
	return &flags.FeatureFlag{Name: name, Enabled: true, Config: cfg}
}

func TestNetworkDelayBlocksInline(t *testing.T) {
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		flags.FlagNetworkDelay: enabled(flags.FlagNetworkDelay, flags.FlagConfig{
			flags.KeyDelayMs:  150.0,
			flags.KeyJitterMs: 0.0,
		}),
	}}
	sim := NewSimulator(newRecordingTerminator())

	start := time.Now()
	sim.CheckAndApplyChaos(context.Background(), "storefront", src)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond, "delay with zero jitter is deterministic")
	assert.Empty(t, sim.ActiveSimulations(), "network delay is stateless")
}

func TestNetworkDelayRespectsContextCancellation(t *testing.T) {
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		flags.FlagNetworkDelay: enabled(flags.FlagNetworkDelay, flags.FlagConfig{
			flags.KeyDelayMs:  60000.0,
			flags.KeyJitterMs: 0.0,
		}),
	}}
	sim := NewSimulator(newRecordingTerminator())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	sim.CheckAndApplyChaos(ctx, "storefront", src)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDiskStressStartsOnceUnderConcurrency(t *testing.T) {
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		flags.FlagDiskStress: enabled(flags.FlagDiskStress, flags.FlagConfig{
			flags.KeyIntensityLevel:  1.0,
			flags.KeyDurationSeconds: 1.0,
		}),
	}}
	sim := NewSimulator(newRecordingTerminator())
	defer sim.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.CheckAndApplyChaos(context.Background(), "storefront", src)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{KindDiskStress}, sim.ActiveSimulations())

	sim.mu.Lock()
	fileCount := len(sim.tempFiles)
	sim.mu.Unlock()
	assert.Equal(t, 1, fileCount, "concurrent triggers must not start duplicate cycles")

	path := filepath.Join(os.TempDir(), fmt.Sprintf("chaos_disk_stress_%d_0.tmp", os.Getpid()))
	_, err := os.Stat(path)
	require.NoError(t, err, "temp file exists while the simulation runs")

	// after durationSeconds the cycle stops and cleans up
	require.Eventually(t, func() bool {
		if len(sim.ActiveSimulations()) != 0 {
			return false
		}
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 50*time.Millisecond, "temp files removed and guard cleared after duration")
}

func TestPodCrashSchedulerFiresAtFullProbability(t *testing.T) {
	term := newRecordingTerminator()
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		flags.FlagPodCrash: enabled(flags.FlagPodCrash, flags.FlagConfig{
			flags.KeyCrashIntervalMinutes: 0.0005, // 30ms
			flags.KeyCrashProbability:     100.0,
		}),
	}}
	sim := NewSimulator(term)
	defer sim.Stop()

	sim.CheckAndApplyChaos(context.Background(), "storefront", src)
	// re-entry while scheduled is a no-op
	sim.CheckAndApplyChaos(context.Background(), "storefront", src)

	assert.Equal(t, []string{KindPodCrash}, sim.ActiveSimulations())

	select {
	case code := <-term.calls:
		assert.Equal(t, 1, code, "non-graceful exit code")
	case <-time.After(3 * time.Second):
		t.Fatal("crash scheduler never fired at 100% probability")
	}

	select {
	case <-term.calls:
		t.Fatal("scheduler terminated more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPodCrashSchedulerNeverFiresAtZeroProbability(t *testing.T) {
	term := newRecordingTerminator()
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		flags.FlagPodCrash: enabled(flags.FlagPodCrash, flags.FlagConfig{
			flags.KeyCrashIntervalMinutes: 0.0002, // 12ms
			flags.KeyCrashProbability:     0.0,
		}),
	}}
	sim := NewSimulator(term)
	defer sim.Stop()

	sim.CheckAndApplyChaos(context.Background(), "storefront", src)

	select {
	case <-term.calls:
		t.Fatal("crash fired at 0% probability")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDBConnectionFailIsSwallowed(t *testing.T) {
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		flags.FlagDBConnectionFail: enabled(flags.FlagDBConnectionFail, flags.FlagConfig{
			flags.KeyFailureRate: 100.0,
			flags.KeyTimeoutMs:   10.0,
		}),
	}}
	sim := NewSimulator(newRecordingTerminator())

	// must not panic or propagate anything to the caller
	sim.CheckAndApplyChaos(context.Background(), "storefront", src)

	err := sim.simulateDBConnectionFail(context.Background(), src.GetFlagConfig(context.Background(), flags.FlagDBConnectionFail))
	require.Error(t, err)
	assert.True(t, cerrors.IsSimulated(err))
}

func TestChaosSimulatorFailureNeverPropagates(t *testing.T) {
	sim := NewSimulator(newRecordingTerminator())

	assert.NotPanics(t, func() {
		sim.CheckAndApplyChaos(context.Background(), "storefront", panickySource{})
	})
}

func TestSystemMetricsSnapshot(t *testing.T) {
	sim := NewSimulator(newRecordingTerminator())

	snapshot := sim.SystemMetrics()
	assert.NotEmpty(t, snapshot.Timestamp)
	assert.NotNil(t, snapshot.ActiveSimulations)
	assert.Empty(t, snapshot.ActiveSimulations)
}
