package usb

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	testCases := []struct {
		name    string
		desc    gousb.DeviceDesc
		matched bool
	}{
		{"ANTUSB2", gousb.DeviceDesc{Vendor: 0x0fcf, Product: 0x1008}, true},
		{"ANTUSB-m", gousb.DeviceDesc{Vendor: 0x0fcf, Product: 0x1009}, true},
		{"other product", gousb.DeviceDesc{Vendor: 0x0fcf, Product: 0x1004}, false},
		{"other vendor", gousb.DeviceDesc{Vendor: 0x1d6b, Product: 0x1008}, false},
	}
	match := matcher(KnownDevices)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			desc := tc.desc
			require.Equalf(t, tc.matched, match(&desc), "%s matched", tc.name)
		})
	}
}

func TestDeviceIDString(t *testing.T) {
	require.Equal(t, "0fcf:1009", KnownDevices[1].String())
}
