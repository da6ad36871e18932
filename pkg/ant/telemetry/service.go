package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/ant.go/pkg/ant/comm"
	"github.com/robotalks/ant.go/pkg/ant/profiles/fec"
	"github.com/robotalks/ant.go/pkg/ant/profiles/hrm"
	"github.com/robotalks/ant.go/pkg/ant/stick"
)

// Kind is the kind of device a slot searches for.
type Kind string

// Device kinds.
const (
	KindHeartRateMonitor Kind = "hrm"
	KindTrainer          Kind = "fec"
)

// Config specifies the channels created by the service.
type Config struct {
	// HeartRateMonitors is the number of heart rate monitor channels.
	// Negative means half of the channels of the stick.
	HeartRateMonitors int
	// Trainers is the number of fitness equipment channels.
	// Negative means half of the channels of the stick.
	Trainers int
	// RetryInterval is the wait before recreating a channel again after
	// a failed attempt. Zero means DefaultRetryInterval.
	RetryInterval time.Duration
}

// DefaultRetryInterval is the default Config.RetryInterval.
const DefaultRetryInterval = 5 * time.Second

// DefaultConfig splits the channels between heart rate monitors and
// trainers.
var DefaultConfig = Config{HeartRateMonitors: -1, Trainers: -1, RetryInterval: DefaultRetryInterval}

type device interface {
	Channel() *stick.Channel
	Close() error
}

type slot struct {
	kind    Kind
	device  device
	retryAt time.Time
}

// DeviceInfo describes a slot of the service.
type DeviceInfo struct {
	Kind    Kind
	Channel byte
	State   stick.State
	ID      stick.ChannelID
	Active  bool // false if the channel couldn't be created
}

// Service owns a Stick: it ticks it, recreates closed channels and
// collects telemetry. All methods are safe for concurrent use and access
// to the stick is serialized by the service.
type Service struct {
	// Now is the clock for retrying failed channels.
	Now func() time.Time

	lock          sync.Mutex
	retryInterval time.Duration
	stick         *stick.Stick
	slots         []*slot
	telemetry     Telemetry
	slope         *float64
}

// NewService creates the channels on the stick. The network key must
// have been set.
func (c Config) NewService(s *stick.Stick) (*Service, error) {
	hrms, fecs := c.HeartRateMonitors, c.Trainers
	if hrms < 0 {
		hrms = s.MaxChannels() / 2
	}
	if fecs < 0 {
		fecs = s.MaxChannels() / 2
	}
	svc := &Service{Now: time.Now, stick: s, telemetry: Empty(), retryInterval: c.RetryInterval}
	if svc.retryInterval <= 0 {
		svc.retryInterval = DefaultRetryInterval
	}
	for i := 0; i < hrms+fecs; i++ {
		sl := &slot{kind: KindHeartRateMonitor}
		if i >= hrms {
			sl.kind = KindTrainer
		}
		if err := svc.open(sl); err != nil {
			svc.Close()
			return nil, err
		}
		svc.slots = append(svc.slots, sl)
	}
	glog.Infof("telemetry service: %d heart rate monitors, %d trainers", hrms, fecs)
	return svc, nil
}

func (s *Service) open(sl *slot) error {
	switch sl.kind {
	case KindHeartRateMonitor:
		m, err := hrm.Open(s.stick, 0)
		if err != nil {
			return errors.Wrap(err, "open heart rate monitor channel")
		}
		sl.device = m
	case KindTrainer:
		t, err := fec.Open(s.stick, 0)
		if err != nil {
			return errors.Wrap(err, "open trainer channel")
		}
		if s.slope != nil {
			t.SetSlope(*s.slope)
		}
		sl.device = t
	}
	return nil
}

// Do runs fn with exclusive access to the stick.
func (s *Service) Do(fn func(*stick.Stick) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s.stick)
}

// Tick implements framework.Ticker. It dispatches one frame, recreates
// closed channels and updates the telemetry. Errors from the transport
// are returned and the stick should be reopened.
func (s *Service) Tick(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.stick.Tick(); err != nil {
		var ce *stick.ChannelError
		if !errors.As(err, &ce) {
			return err
		}
		glog.Warningf("telemetry service: %v, recreating channel", err)
		if sl := s.slotOf(ce.Number); sl != nil {
			sl.device.Close()
		}
	}
	if err := s.recreateClosed(); err != nil {
		return err
	}
	s.collect()
	return nil
}

func (s *Service) slotOf(num byte) *slot {
	for _, sl := range s.slots {
		if sl.device != nil && sl.device.Channel().Number() == num {
			return sl
		}
	}
	return nil
}

func (s *Service) recreateClosed() error {
	for _, sl := range s.slots {
		if sl.device != nil {
			if sl.device.Channel().State() != stick.StateClosed {
				continue
			}
			sl.device.Close()
			sl.device = nil
		}
		now := s.Now()
		if now.Before(sl.retryAt) {
			continue
		}
		glog.V(1).Infof("telemetry service: recreating %s channel", sl.kind)
		if err := s.open(sl); err != nil {
			if isTransportError(err) {
				return err
			}
			sl.retryAt = now.Add(s.retryInterval)
			glog.Warningf("telemetry service: %v, retry in %s", err, s.retryInterval)
		}
	}
	return nil
}

func isTransportError(err error) bool {
	var te *comm.TransferError
	return errors.As(err, &te) ||
		errors.Is(err, comm.ErrBadChecksum) ||
		errors.Is(err, comm.ErrWriteTimeout)
}

func (s *Service) collect() {
	hr := 0
	var trainer *fec.Trainer
	for _, sl := range s.slots {
		if sl.device == nil || sl.device.Channel().State() != stick.StateOpen {
			continue
		}
		switch d := sl.device.(type) {
		case *hrm.Monitor:
			if hr == 0 {
				hr = d.InstantaneousHeartRate()
			}
		case *fec.Trainer:
			if trainer == nil {
				trainer = d
			}
		}
	}
	if hr != 0 {
		s.telemetry.HeartRate = float64(hr)
	}
	if trainer != nil {
		s.telemetry.Cadence, s.telemetry.Power, s.telemetry.Speed = None, None, None
		if v, ok := trainer.Cadence(); ok {
			s.telemetry.Cadence = float64(v)
		}
		if v, ok := trainer.InstantPower(); ok {
			s.telemetry.Power = float64(v)
		}
		if v, ok := trainer.Speed(); ok {
			s.telemetry.Speed = v
		}
	}
}

// Telemetry returns the current telemetry.
func (s *Service) Telemetry() Telemetry {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.telemetry
}

// Devices returns the state of all slots.
func (s *Service) Devices() []DeviceInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	infos := make([]DeviceInfo, 0, len(s.slots))
	for _, sl := range s.slots {
		info := DeviceInfo{Kind: sl.kind, State: stick.StateClosed}
		if sl.device != nil {
			c := sl.device.Channel()
			info.Channel, info.State, info.ID, info.Active = c.Number(), c.State(), c.ID(), true
		}
		infos = append(infos, info)
	}
	return infos
}

// SetSlope sets the slope on all trainers, including the ones paired
// later.
func (s *Service) SetSlope(slope float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.slope = &slope
	for _, sl := range s.slots {
		if t, ok := sl.device.(*fec.Trainer); ok {
			t.SetSlope(slope)
		}
	}
}

// ErrNoChannel indicates the channel number isn't used by the service.
var ErrNoChannel = errors.New("no such channel")

// RequestDataPage requests a data page from the device on a channel.
func (s *Service) RequestDataPage(channel, page, transmitCount byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	sl := s.slotOf(channel)
	if sl == nil {
		return ErrNoChannel
	}
	sl.device.Channel().RequestDataPage(page, transmitCount)
	return nil
}

// Close closes all channels.
func (s *Service) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, sl := range s.slots {
		if sl.device != nil {
			sl.device.Close()
			sl.device = nil
		}
	}
	return nil
}
