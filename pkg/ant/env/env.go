// Package env opens an ANT stick with its telemetry service from command
// line flags and environment variables.
package env

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/ant.go/pkg/ant/comm"
	"github.com/robotalks/ant.go/pkg/ant/serial"
	"github.com/robotalks/ant.go/pkg/ant/stick"
	"github.com/robotalks/ant.go/pkg/ant/telemetry"
	"github.com/robotalks/ant.go/pkg/ant/usb"
	fx "github.com/robotalks/ant.go/pkg/framework"
)

// DeviceUSB selects the first attached USB stick.
const DeviceUSB = "usb"

// Config provides common options to setup an env for ANT tools.
type Config struct {
	// Device is either DeviceUSB or the path of a serial port.
	Device string
	// BaudRate is used for serial ports.
	BaudRate int

	Telemetry telemetry.Config
	Metrics   *stick.Metrics
}

var defaultConfig = Config{
	Device:    DeviceUSB,
	BaudRate:  serial.DefaultBaudRate,
	Telemetry: telemetry.DefaultConfig,
}

func init() {
	if val := os.Getenv("ANT_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("ANT_BAUD_RATE"); val != "" {
		if rate, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = rate
		}
	}
}

// SetupFlags sets command line flags, including the ones of the stick.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "ANT stick: usb or serial port path")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate of serial port")
	flag.IntVar(&defaultConfig.Telemetry.HeartRateMonitors, "hrm", defaultConfig.Telemetry.HeartRateMonitors, "Heart rate monitor channels, negative for half of the channels")
	flag.IntVar(&defaultConfig.Telemetry.Trainers, "fec", defaultConfig.Telemetry.Trainers, "Trainer channels, negative for half of the channels")
	stick.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is an opened stick with the telemetry service running on it.
type Env struct {
	Config  *Config
	Stick   *stick.Stick
	Service *telemetry.Service

	transport io.Closer
}

type transport interface {
	comm.InEndpoint
	comm.OutEndpoint
	io.Closer
}

type usbTransport struct {
	*usb.Device
}

func (t usbTransport) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return t.In.ReadContext(ctx, buf)
}

func (t usbTransport) WriteContext(ctx context.Context, buf []byte) (int, error) {
	return t.Out.WriteContext(ctx, buf)
}

func (c *Config) openTransport() (transport, error) {
	if c.Device == DeviceUSB {
		dev, err := usb.Open()
		if err != nil {
			return nil, err
		}
		glog.Infof("opened USB stick %s", dev.ID)
		return usbTransport{Device: dev}, nil
	}
	port, err := serial.Open(c.Device, c.BaudRate)
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", c.Device)
	}
	glog.Infof("opened serial port %s", c.Device)
	return port, nil
}

// NewEnv opens the stick, sets the ANT+ network key and starts the
// telemetry channels.
func (c *Config) NewEnv() (*Env, error) {
	t, err := c.openTransport()
	if err != nil {
		return nil, err
	}
	conf := *stick.Default()
	conf.Metrics = c.Metrics
	s, err := conf.Open(t, t)
	if err != nil {
		t.Close()
		return nil, errors.Wrap(err, "initialize stick")
	}
	if err := s.SetNetworkKey(stick.AntPlusNetworkKey); err != nil {
		s.Close()
		t.Close()
		return nil, errors.Wrap(err, "set network key")
	}
	svc, err := c.Telemetry.NewService(s)
	if err != nil {
		s.Close()
		t.Close()
		return nil, err
	}
	return &Env{Config: c, Stick: s, Service: svc, transport: t}, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop adds the telemetry service to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.AddTicker(e.Service)
}

// Close closes the channels, the stick and the transport.
func (e *Env) Close() error {
	e.Service.Close()
	e.Stick.Close()
	return e.transport.Close()
}
