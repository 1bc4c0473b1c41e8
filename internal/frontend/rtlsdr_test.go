package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRTLSDRFrontendOpenErrorsWithNoDevicesPresent(t *testing.T) {
	// Test environments have no RTL-SDR hardware attached, so
	// GetDeviceCount() is 0 and Open must fail cleanly rather than
	// panic or block.
	f := NewRTLSDRFrontend(nil, 0, 0, 0)
	_, err := f.Open(context.Background())
	assert.Error(t, err)
}
