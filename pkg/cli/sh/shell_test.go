package sh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ant.go/pkg/ant/env"
)

func testSession(device string, cancelled *bool) *Session {
	done := make(chan struct{})
	close(done)
	return &Session{Device: device, Cancel: func() { *cancelled = true }, done: done}
}

func TestOpenClosesSessionOnSameDevice(t *testing.T) {
	busy := errors.New("busy")
	testCases := []struct {
		name      string
		current   string
		device    string
		closed    bool
		heldWhile bool
	}{
		{name: "same device", current: "usb", device: "usb", closed: true},
		{name: "configured device", current: "usb", device: "", closed: true},
		{name: "other device", current: "usb", device: "/dev/ttyUSB0", heldWhile: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := env.NewConfig()
			conf.Device = "usb"
			var cancelled bool
			s := &Shell{Config: conf, Session: testSession(tc.current, &cancelled)}
			var held *Session
			var opened string
			s.openEnv = func(c *env.Config) (*env.Env, error) {
				held, opened = s.Session, c.Device
				return nil, busy
			}
			require.Equal(t, busy, s.Open(tc.device))
			require.Equal(t, tc.closed, cancelled)
			require.Equal(t, tc.heldWhile, held != nil)
			require.Equal(t, tc.closed, s.Session == nil)
			if tc.device == "" {
				require.Equal(t, conf.Device, opened)
			} else {
				require.Equal(t, tc.device, opened)
			}
		})
	}
}
