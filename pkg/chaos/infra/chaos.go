// Package infra runs bounded infrastructure chaos simulations inside the
// host process: disk I/O stress, scheduled process crashes, simulated
// database connection failures, and inline network delay. The simulator is
// best effort; any failure of its own is swallowed so the chaos engine never
// becomes the outage cause, with the sole documented exception of the
// pod-crash action whose purpose is to kill the process.
package infra

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/joseaugf/cop320-cw/pkg/math"
	"github.com/joseaugf/cop320-cw/pkg/metrics"
	"github.com/kyokomi/emoji"
	"github.com/sirupsen/logrus"
)

// Simulation kinds tracked in the active-simulations guard map.
const (
	KindDiskStress = "disk_stress"
	KindPodCrash   = "pod_crash"
)

const (
	defaultDiskIntensity    = 5
	defaultDiskDurationSec  = 30
	defaultCrashIntervalMin = 5
	defaultCrashProbability = 30
	defaultDBFailureRate    = 50
	defaultDBTimeoutMs      = 1000
	defaultDelayMs          = 2000
	defaultJitterMs         = 500

	diskCyclePeriod = 100 * time.Millisecond
	diskAppendBytes = 1024
)

var chaosMark = emoji.Sprint(":fire:")

// Simulator owns the active-simulations guard map and the resources of the
// background simulations (temp files, tickers). One instance per process;
// nothing else reads or writes its state.
type Simulator struct {
	mu         sync.Mutex
	active     map[string]bool
	tempFiles  []string
	stopDisk   chan struct{}
	stopCrash  chan struct{}
	terminator Terminator
}

func NewSimulator(terminator Terminator) *Simulator {
	return &Simulator{
		active:     map[string]bool{},
		terminator: terminator,
	}
}

// CheckAndApplyChaos checks the infrastructure chaos flags and, for each
// enabled one, ensures the corresponding simulation is running. It is called
// once per inbound business request and never propagates an error: chaos
// failures are logged and swallowed.
func (s *Simulator) CheckAndApplyChaos(ctx context.Context, serviceName string, src flags.Source) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Chaos]: recovered from chaos simulation failure: %v", r)
		}
	}()

	if flag := src.GetFlag(ctx, flags.FlagDiskStress); flag != nil && flag.Enabled {
		s.simulateDiskStress(flag.Config)
	}
	if flag := src.GetFlag(ctx, flags.FlagPodCrash); flag != nil && flag.Enabled {
		s.simulatePodCrash(flag.Config, serviceName)
	}
	if flag := src.GetFlag(ctx, flags.FlagDBConnectionFail); flag != nil && flag.Enabled {
		if err := s.simulateDBConnectionFail(ctx, flag.Config); err != nil {
			log.Errorf("[Chaos]: %v", err)
		}
	}
	if flag := src.GetFlag(ctx, flags.FlagNetworkDelay); flag != nil && flag.Enabled {
		s.simulateNetworkDelay(ctx, flag.Config)
	}
}

// simulateDiskStress creates intensityLevel temp files of intensityLevel MB
// each inline, then keeps cycling reads and 1 KB appends over them in the
// background until durationSeconds elapse. Re-entry while running is a no-op.
func (s *Simulator) simulateDiskStress(cfg flags.FlagConfig) {
	s.mu.Lock()
	if s.active[KindDiskStress] {
		s.mu.Unlock()
		return
	}
	s.active[KindDiskStress] = true
	s.mu.Unlock()

	// intensity doubles as file count and per-file size in MB
	intensity := math.Clamp(int(cfg.Number(flags.KeyIntensityLevel, defaultDiskIntensity)), 1, 10)
	duration := time.Duration(cfg.Number(flags.KeyDurationSeconds, defaultDiskDurationSec) * float64(time.Second))

	log.InfoWithValues(chaosMark+" [Chaos]: starting disk I/O stress simulation", logrus.Fields{
		"Intensity": intensity,
		"Duration":  duration,
	})

	start := time.Now()
	files := make([]string, 0, intensity)
	buf := make([]byte, intensity*1024*1024)
	for i := 0; i < intensity; i++ {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("chaos_disk_stress_%d_%d.tmp", os.Getpid(), i))
		_, _ = crand.Read(buf)
		if err := os.WriteFile(path, buf, 0600); err != nil {
			log.Warnf("[Chaos]: disk stress write failed for %v: %v", path, err)
			continue
		}
		files = append(files, path)
		if _, err := os.ReadFile(path); err != nil {
			log.Warnf("[Chaos]: disk stress read failed for %v: %v", path, err)
		}
	}

	stop := make(chan struct{})
	s.mu.Lock()
	s.tempFiles = files
	s.stopDisk = stop
	s.mu.Unlock()

	metrics.InjectedFaults.WithLabelValues(KindDiskStress).Inc()
	go s.diskStressCycle(files, start, duration, stop)
}

func (s *Simulator) diskStressCycle(files []string, start time.Time, duration time.Duration, stop <-chan struct{}) {
	defer s.finishDiskStress(files)

	ticker := time.NewTicker(diskCyclePeriod)
	defer ticker.Stop()
	chunk := make([]byte, diskAppendBytes)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if time.Since(start) >= duration {
				return
			}
			for _, path := range files {
				if _, err := os.ReadFile(path); err != nil {
					log.Warnf("[Chaos]: disk stress cycle read failed for %v: %v", path, err)
					break
				}
				_, _ = crand.Read(chunk)
				if err := appendFile(path, chunk); err != nil {
					log.Warnf("[Chaos]: disk stress cycle write failed for %v: %v", path, err)
					break
				}
			}
		}
	}
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Simulator) finishDiskStress(files []string) {
	for _, path := range files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warnf("[Chaos]: unable to remove temp file %v: %v", path, err)
		}
	}
	s.mu.Lock()
	s.tempFiles = nil
	s.stopDisk = nil
	s.active[KindDiskStress] = false
	s.mu.Unlock()
	log.Infof("%v [Chaos]: disk I/O stress simulation completed", chaosMark)
}

// simulatePodCrash schedules a recurring crash draw. Once scheduled it never
// returns to idle within this process generation: either the draw eventually
// fires and the terminator kills the process, or the scheduler runs until
// process exit.
func (s *Simulator) simulatePodCrash(cfg flags.FlagConfig, serviceName string) {
	s.mu.Lock()
	if s.active[KindPodCrash] {
		s.mu.Unlock()
		return
	}
	s.active[KindPodCrash] = true
	stop := make(chan struct{})
	s.stopCrash = stop
	s.mu.Unlock()

	interval := time.Duration(cfg.Number(flags.KeyCrashIntervalMinutes, defaultCrashIntervalMin) * float64(time.Minute))
	if interval <= 0 {
		interval = defaultCrashIntervalMin * time.Minute
	}
	probability := math.Clamp(int(cfg.Number(flags.KeyCrashProbability, defaultCrashProbability)), 0, 100)

	log.InfoWithValues(chaosMark+" [Chaos]: starting pod crash scheduler", logrus.Fields{
		"Interval":    interval,
		"Probability": probability,
		"Service":     serviceName,
	})
	metrics.InjectedFaults.WithLabelValues(KindPodCrash).Inc()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if rand.Intn(100)+1 <= probability {
					log.Errorf("%v [Chaos]: simulating pod crash for %v (probability=%v%%)", chaosMark, serviceName, probability)
					s.terminator.Terminate(1)
					return
				}
			}
		}
	}()
}

// simulateDBConnectionFail draws against failureRate and, on a hit, holds
// the request for timeoutMs before reporting a simulated connection failure.
// The caller logs and swallows the error.
func (s *Simulator) simulateDBConnectionFail(ctx context.Context, cfg flags.FlagConfig) error {
	rate := math.Clamp(int(cfg.Number(flags.KeyFailureRate, defaultDBFailureRate)), 0, 100)
	timeout := time.Duration(cfg.Number(flags.KeyTimeoutMs, defaultDBTimeoutMs) * float64(time.Millisecond))

	if rand.Intn(100)+1 > rate {
		return nil
	}

	log.Warnf("%v [Chaos]: simulating database connection failure (rate=%v%%, timeout=%v)", chaosMark, rate, timeout)
	metrics.InjectedFaults.WithLabelValues("db_connection_fail").Inc()
	sleepCtx(ctx, timeout)
	return cerrors.Simulated{Reason: fmt.Sprintf("simulated database connection failure (rate: %d%%)", rate)}
}

// simulateNetworkDelay blocks the current request for
// max(0, delayMs + uniform(-jitterMs, +jitterMs)) milliseconds. Stateless;
// the delay directly inflates the caller's observed latency.
func (s *Simulator) simulateNetworkDelay(ctx context.Context, cfg flags.FlagConfig) {
	delayMs := int(cfg.Number(flags.KeyDelayMs, defaultDelayMs))
	jitterMs := int(cfg.Number(flags.KeyJitterMs, defaultJitterMs))

	jitter := 0
	if jitterMs > 0 {
		jitter = rand.Intn(2*jitterMs+1) - jitterMs
	}
	actual := math.Maximum(0, delayMs+jitter)

	log.Infof("%v [Chaos]: simulating network delay (%vms)", chaosMark, actual)
	metrics.InjectedFaults.WithLabelValues("network_delay").Inc()
	sleepCtx(ctx, time.Duration(actual)*time.Millisecond)
}

// ActiveSimulations lists the simulation kinds currently running or
// scheduled.
func (s *Simulator) ActiveSimulations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := []string{}
	for kind, running := range s.active {
		if running {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Stop cancels the background simulations and releases their resources.
// Production simulations end by their own termination rules; Stop exists for
// tests and orderly shutdown.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if s.stopDisk != nil {
		close(s.stopDisk)
		s.stopDisk = nil
	}
	if s.stopCrash != nil {
		close(s.stopCrash)
		s.stopCrash = nil
		s.active[KindPodCrash] = false
	}
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
