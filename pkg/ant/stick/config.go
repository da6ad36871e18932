package stick

import (
	"flag"
	"time"

	"github.com/robotalks/ant.go/pkg/ant/comm"
)

// Config provides the timing and size parameters of a Stick.
type Config struct {
	// ReadTimeout bounds a blocking read of a reply.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
	// CancelGrace is the wait for a timed-out write to be cancelled.
	CancelGrace time.Duration
	// TickTimeout bounds the read in Tick.
	TickTimeout time.Duration
	// ReadSize is the size of each bulk-in transfer.
	ReadSize int
	// ResetAttempts is the number of frames read waiting for startup.
	ResetAttempts int

	Metrics *Metrics
}

var defaultConfig = Config{
	ReadTimeout:   comm.DefaultTimeout,
	WriteTimeout:  comm.DefaultTimeout,
	CancelGrace:   comm.DefaultCancelGrace,
	TickTimeout:   10 * time.Millisecond,
	ReadSize:      comm.DefaultReadSize,
	ResetAttempts: 50,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.ReadTimeout, "ant-read-timeout", defaultConfig.ReadTimeout, "Timeout waiting for a reply from the stick")
	flag.DurationVar(&defaultConfig.WriteTimeout, "ant-write-timeout", defaultConfig.WriteTimeout, "Timeout writing to the stick")
	flag.DurationVar(&defaultConfig.TickTimeout, "ant-tick-timeout", defaultConfig.TickTimeout, "Max wait for a frame in one tick")
	flag.IntVar(&defaultConfig.ResetAttempts, "ant-reset-attempts", defaultConfig.ResetAttempts, "Frames to read waiting for startup after reset")
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

// NewStick creates a Stick over the endpoints without talking to the device.
func (c *Config) NewStick(in comm.InEndpoint, out comm.OutEndpoint) *Stick {
	r := comm.NewReader(in)
	r.Timeout, r.ReadSize = c.ReadTimeout, c.ReadSize
	w := comm.NewWriter(out)
	w.Timeout, w.CancelGrace = c.WriteTimeout, c.CancelGrace
	return &Stick{
		reader:   r,
		writer:   w,
		config:   *c,
		metrics:  c.Metrics,
		channels: make(map[byte]*Channel),
	}
}

// Open creates a Stick, resets the device and queries its information.
func (c *Config) Open(in comm.InEndpoint, out comm.OutEndpoint) (*Stick, error) {
	s := c.NewStick(in, out)
	if err := s.Reset(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.QueryInfo(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
