package telemetry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig holds Pyroscope continuous profiling configuration.
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string // e.g. http://pyroscope:4040
	ApplicationName string
	Environment     string
	ProfileTypes    []pyroscope.ProfileType // empty means DefaultProfileTypes
}

func (c ProfilerConfig) validate() error {
	switch {
	case c.ServerAddress == "":
		return errors.New("profiler server address is required when profiling is enabled")
	case c.ApplicationName == "":
		return errors.New("profiler application name is required when profiling is enabled")
	}
	return nil
}

// tags are attached to every uploaded profile
func (c ProfilerConfig) tags() map[string]string {
	tags := make(map[string]string, 2)
	if c.Environment != "" {
		tags["env"] = c.Environment
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		tags["hostname"] = host
	}
	return tags
}

// DefaultProfileTypes covers CPU time, allocations and goroutine counts
var DefaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiler is a running Pyroscope session, or a no-op one when disabled.
type Profiler struct {
	session  *pyroscope.Profiler
	logger   *zap.Logger
	stopOnce sync.Once
	stopErr  error
}

// NewProfiler starts uploading profiles when cfg.Enabled is set
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled, using no-op profiler")
		return p, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	types := cfg.ProfileTypes
	if len(types) == 0 {
		types = DefaultProfileTypes
	}
	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            cfg.tags(),
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.session = session

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
	)
	return p, nil
}

// Stop flushes pending profiles. Later calls return the first result.
func (p *Profiler) Stop() error {
	p.stopOnce.Do(func() {
		if p.session == nil {
			return
		}
		if err := p.session.Stop(); err != nil {
			p.logger.Error("Error stopping profiler", zap.Error(err))
			p.stopErr = fmt.Errorf("failed to stop profiler: %w", err)
		}
	})
	return p.stopErr
}

// IsEnabled returns whether profiles are being uploaded
func (p *Profiler) IsEnabled() bool {
	return p.session != nil
}

// WithProfilingLabels runs fn with pprof labels attached, so samples taken
// inside fn can be filtered by them in Pyroscope. Keep label cardinality low:
// operation names, not order ids.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}
	pairs := make([]string, 0, len(labels)*2)
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		pairs = append(pairs, k, labels[k])
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}
