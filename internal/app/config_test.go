package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	c := DefaultConfig()
	c.DeviceIndex = 0
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsWrongSampleRate(t *testing.T) {
	c := DefaultConfig()
	c.SampleRate = 2400000
	err := c.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sample_rate", cfgErr.Option)
}

func TestValidateRejectsWrongCenterFreq(t *testing.T) {
	c := DefaultConfig()
	c.CenterFreq = 1030000000
	err := c.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "center_freq", cfgErr.Option)
}

func TestValidateRejectsEmptyDeviceID(t *testing.T) {
	c := DefaultConfig()
	c.DeviceID = ""
	err := c.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "device_id", cfgErr.Option)
}

func TestValidateRejectsNonPositiveTunables(t *testing.T) {
	base := DefaultConfig()

	withGate := base
	withGate.PreambleGate = 0
	require.Error(t, withGate.Validate())

	withWindow := base
	withWindow.CPRWindowS = -1
	require.Error(t, withWindow.Validate())

	withIdle := base
	withIdle.IdleTimeoutS = 0
	require.Error(t, withIdle.Validate())
}

func TestValidateAllowsNegativeDeviceIndexWithFrontendCmd(t *testing.T) {
	c := DefaultConfig()
	c.DeviceIndex = -1
	c.FrontendCmd = "rtl_sdr"
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsNegativeDeviceIndexWithoutFrontendCmd(t *testing.T) {
	c := DefaultConfig()
	c.DeviceIndex = -1
	err := c.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "device_index", cfgErr.Option)
}

func TestConfigErrorMessageNamesOption(t *testing.T) {
	err := &ConfigError{Option: "gain_db", Reason: "out of range"}
	assert.Contains(t, err.Error(), "gain_db")
	assert.Contains(t, err.Error(), "out of range")
}
