package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/ant.go/pkg/ant/env"
	"github.com/robotalks/ant.go/pkg/ant/stick"
	"github.com/robotalks/ant.go/pkg/ant/usb"
	fx "github.com/robotalks/ant.go/pkg/framework"
)

var (
	metricsAddr = ":9110"
	logInterval = 5 * time.Second
	reopenDelay = 3 * time.Second
)

func init() {
	env.SetupFlags()
	flag.StringVar(&metricsAddr, "metrics", metricsAddr, "Address to serve Prometheus metrics, empty to disable")
	flag.DurationVar(&logInterval, "log-interval", logInterval, "Interval to log telemetry")
	flag.DurationVar(&reopenDelay, "reopen-delay", reopenDelay, "Delay before reopening a failed stick")
}

type monitor struct {
	conf *env.Config
}

func newMonitor(reg prometheus.Registerer) *monitor {
	m := &monitor{conf: env.NewConfig()}
	m.conf.Metrics = stick.NewMetrics(reg)
	return m
}

func (m *monitor) runOnce(ctx context.Context) error {
	e, err := m.conf.NewEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	glog.Infof("stick %d (%s) ready on %s", e.Stick.SerialNumber(), e.Stick.Version(), m.conf.Device)
	loop := fx.NewLoop().Add(e)
	loop.AddTicker(fx.Every(logInterval, fx.TickFunc(func(context.Context) error {
		glog.Infof("telemetry %s", e.Service.Telemetry())
		return nil
	})))
	return loop.Run(ctx)
}

func (m *monitor) Run(ctx context.Context) error {
	for {
		err := m.runOnce(ctx)
		switch {
		case err == context.Canceled:
			return err
		case errors.Is(err, usb.ErrNotFound):
			return err
		}
		glog.Errorf("stick stopped: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reopenDelay):
		}
	}
}

func serveMetrics(reg *prometheus.Registry) fx.RunFunc {
	return func(ctx context.Context) error {
		srv := &http.Server{
			Addr:    metricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		glog.Infof("serving metrics on %s", metricsAddr)
		return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
	}
}

func main() {
	flag.Parse()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mon := newMonitor(reg)

	runner := fx.NewRunner().HandleSignals()
	ctx, cancel := context.WithCancel(runner.Context)
	if metricsAddr != "" {
		runner.GoWith(ctx, fx.NamedRun("metrics", serveMetrics(reg)))
	}
	runner.GoWith(ctx, fx.NamedRun("monitor", fx.RunFunc(func(ctx context.Context) error {
		defer cancel()
		return mon.Run(ctx)
	})))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
