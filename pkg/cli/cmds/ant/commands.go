package ant

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ant.go/pkg/ant/stick"
	"github.com/robotalks/ant.go/pkg/cli/sh"
)

type stickInfo struct {
	SerialNumber uint32 `json:"serial_number"`
	Version      string `json:"version"`
	MaxChannels  int    `json:"max_channels"`
	MaxNetworks  int    `json:"max_networks"`
}

type deviceInfo struct {
	Kind         string `json:"kind"`
	Channel      byte   `json:"channel"`
	State        string `json:"state"`
	DeviceType   byte   `json:"device_type"`
	DeviceNumber uint32 `json:"device_number"`
	Active       bool   `json:"active"`
}

func parseByte(c *ishell.Context, name, arg string) (byte, bool) {
	val, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		c.Err(fmt.Errorf("Invalid %s: %v", name, err))
		return 0, false
	}
	return byte(val), true
}

var (
	// InfoCmd prints information of the stick.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			var info stickInfo
			sh.SessionFrom(c).Env.Service.Do(func(s *stick.Stick) error {
				info = stickInfo{
					SerialNumber: s.SerialNumber(),
					Version:      s.Version(),
					MaxChannels:  s.MaxChannels(),
					MaxNetworks:  s.MaxNetworks(),
				}
				return nil
			})
			sh.Output(c, &info, fmt.Sprintf("serial %d, version %s, %d channels, %d networks",
				info.SerialNumber, info.Version, info.MaxChannels, info.MaxNetworks))
		}),
	}

	// DevicesCmd lists the channels and the paired devices.
	DevicesCmd = ishell.Cmd{
		Name:    "devices",
		Aliases: []string{"ls"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			infos := []deviceInfo{}
			var w bytes.Buffer
			for _, dev := range sh.SessionFrom(c).Env.Service.Devices() {
				infos = append(infos, deviceInfo{
					Kind:         string(dev.Kind),
					Channel:      dev.Channel,
					State:        dev.State.String(),
					DeviceType:   dev.ID.DeviceType,
					DeviceNumber: dev.ID.DeviceNumber,
					Active:       dev.Active,
				})
				if !dev.Active {
					fmt.Fprintf(&w, "-  %s: inactive\n", dev.Kind)
					continue
				}
				fmt.Fprintf(&w, "%d  %s: %s %s\n", dev.Channel, dev.Kind, dev.State, dev.ID)
			}
			sh.Output(c, infos, string(bytes.TrimSuffix(w.Bytes(), []byte("\n"))))
		}),
	}

	// TelemetryCmd prints the latest telemetry.
	TelemetryCmd = ishell.Cmd{
		Name:    "telemetry",
		Aliases: []string{"t"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			t := sh.SessionFrom(c).Env.Service.Telemetry()
			sh.Output(c, &t, t.String())
		}),
	}

	// SlopeCmd sets the slope of trainers.
	SlopeCmd = ishell.Cmd{
		Name:    "slope",
		Aliases: []string{"s"},
		Help:    "SLOPE(%)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("SLOPE required"))
				return
			}
			val, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(fmt.Errorf("Invalid SLOPE: %v", err))
				return
			}
			sh.SessionFrom(c).Env.Service.SetSlope(val)
			sh.Output(c, "OK", "OK")
		}),
	}

	// PageCmd requests a data page from a device.
	PageCmd = ishell.Cmd{
		Name:    "page",
		Aliases: []string{"p"},
		Help:    "CHANNEL PAGE [COUNT]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("CHANNEL and PAGE required"))
				return
			}
			channel, ok := parseByte(c, "CHANNEL", c.Args[0])
			if !ok {
				return
			}
			page, ok := parseByte(c, "PAGE", c.Args[1])
			if !ok {
				return
			}
			count := byte(1)
			if len(c.Args) > 2 {
				if count, ok = parseByte(c, "COUNT", c.Args[2]); !ok {
					return
				}
			}
			if err := sh.SessionFrom(c).Env.Service.RequestDataPage(channel, page, count); err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, "OK", "OK")
		}),
	}
)

func init() {
	sh.AddCmds(
		&InfoCmd,
		&DevicesCmd,
		&TelemetryCmd,
		&SlopeCmd,
		&PageCmd,
	)
}
