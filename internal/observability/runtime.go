package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
)

// Runtime owns the process-wide tracing exporter, continuous profiler and
// pprof listener. Each part is optional and toggled by config.
type Runtime struct {
	logger   *logging.Logger
	tracing  bool
	profiler *pyroscope.Profiler
	pprof    *http.Server
}

// Start brings up whatever the config enables. On error, parts that already
// started are shut down before returning.
func Start(cfg config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("observability")
	rt := &Runtime{logger: logger}

	rt.startTracing(cfg)
	if err := rt.startProfiler(cfg); err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, err
	}
	rt.startPprof(cfg)
	return rt, nil
}

func (rt *Runtime) startTracing(cfg config.Config) {
	switch {
	case !cfg.UptraceEnabled:
		rt.logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return
	case strings.TrimSpace(cfg.UptraceDSN) == "":
		rt.logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
	)
	rt.tracing = true
	rt.logger.Info("uptrace enabled", "service_name", cfg.ServiceName, "environment", cfg.AppEnv)
}

func (rt *Runtime) startProfiler(cfg config.Config) error {
	if !cfg.PyroscopeEnabled {
		rt.logger.Info("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return nil
	}

	// Mutex and block profiles stay empty unless sampling is switched on.
	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":     cfg.AppEnv,
			"service": cfg.ServiceName,
			"version": cfg.ServiceVersion,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		return err
	}
	rt.profiler = profiler
	rt.logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", cfg.PyroscopeAppName)
	return nil
}

func (rt *Runtime) startPprof(cfg config.Config) {
	if !cfg.PprofEnabled {
		rt.logger.Info("pprof disabled", "reason", "PPROF_ENABLED=false")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{
		Addr:              cfg.PprofAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rt.pprof = srv

	go func() {
		rt.logger.Info("pprof server starting", "addr", cfg.PprofAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("pprof server failed", "error", err)
		}
	}()
}

// Shutdown stops the pprof listener and profiler, then flushes spans.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if rt == nil {
		return nil
	}

	var errs []error
	if rt.pprof != nil {
		if err := rt.pprof.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		rt.pprof = nil
	}
	if rt.profiler != nil {
		if err := rt.profiler.Stop(); err != nil {
			errs = append(errs, err)
		}
		rt.profiler = nil
	}
	if rt.tracing {
		if err := uptrace.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		rt.tracing = false
	}
	return errors.Join(errs...)
}
