// Package usb opens ANT USB sticks with libusb.
package usb

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/pkg/errors"
)

// DeviceID is the USB vendor and product id of a stick.
type DeviceID struct {
	Vendor  gousb.ID
	Product gousb.ID
}

// String implements fmt.Stringer.
func (id DeviceID) String() string {
	return fmt.Sprintf("%s:%s", id.Vendor, id.Product)
}

// KnownDevices are the Dynastream ANT USB sticks.
var KnownDevices = []DeviceID{
	{Vendor: 0x0fcf, Product: 0x1008}, // ANTUSB2
	{Vendor: 0x0fcf, Product: 0x1009}, // ANTUSB-m
}

// ErrNotFound indicates no known stick is attached.
var ErrNotFound = errors.New("ANT stick not found")

// Device is an opened stick with its bulk endpoints.
// In and Out satisfy comm.InEndpoint and comm.OutEndpoint.
type Device struct {
	ID  DeviceID
	In  *gousb.InEndpoint
	Out *gousb.OutEndpoint

	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
}

func matcher(ids []DeviceID) func(desc *gousb.DeviceDesc) bool {
	return func(desc *gousb.DeviceDesc) bool {
		for _, id := range ids {
			if desc.Vendor == id.Vendor && desc.Product == id.Product {
				return true
			}
		}
		return false
	}
}

// Open opens the first attached stick matching ids, or KnownDevices if
// ids is empty.
func Open(ids ...DeviceID) (d *Device, err error) {
	if len(ids) == 0 {
		ids = KnownDevices
	}
	d = &Device{ctx: gousb.NewContext()}
	defer func() {
		if err != nil {
			d.Close()
			d = nil
		}
	}()

	devs, err := d.ctx.OpenDevices(matcher(ids))
	if len(devs) == 0 {
		if err == nil {
			err = ErrNotFound
		}
		return
	}
	err = nil
	d.dev = devs[0]
	for _, other := range devs[1:] {
		other.Close()
	}
	d.ID = DeviceID{Vendor: d.dev.Desc.Vendor, Product: d.dev.Desc.Product}

	if err = d.dev.Reset(); err != nil {
		return
	}
	if err = d.dev.SetAutoDetach(true); err != nil {
		glog.Warningf("USB %s auto detach: %v", d.ID, err)
	}
	intf, done, err := d.dev.DefaultInterface()
	if err != nil {
		return
	}
	d.done = done

	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && d.In == nil {
			if d.In, err = intf.InEndpoint(ep.Number); err != nil {
				return
			}
		} else if ep.Direction == gousb.EndpointDirectionOut && d.Out == nil {
			if d.Out, err = intf.OutEndpoint(ep.Number); err != nil {
				return
			}
		}
	}
	if d.In == nil || d.Out == nil {
		err = errors.Errorf("USB %s: bulk endpoints not found on %s", d.ID, intf)
		return
	}
	glog.Infof("USB %s opened: in %s out %s", d.ID, d.In, d.Out)
	return
}

// Close releases the interface and the device.
func (d *Device) Close() error {
	var err error
	if d.done != nil {
		d.done()
		d.done = nil
	}
	if d.dev != nil {
		err = d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		if e := d.ctx.Close(); err == nil {
			err = e
		}
		d.ctx = nil
	}
	return err
}
