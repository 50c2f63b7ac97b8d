package crap

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func Test_Config_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{MaxID: 0, SendWindow: 1}.Validate())
	for _, cfg := range []Config{
		{MaxID: -1, SendWindow: 1},
		{MaxID: ControlID, SendWindow: 1},
		{MaxID: 1, SendWindow: 0},
		{MaxID: 1, SendWindow: MaxSendWindowSize + 1},
	} {
		assert.Equal(t, ErrInvalidParameter, errors.Cause(cfg.Validate()), "%+v", cfg)
	}
}

func Test_Config_sanitize(t *testing.T) {
	c := sanitizeConfig(nil)
	assert.Equal(t, ProtocolMaxID, c.MaxID)
	assert.Equal(t, MaxSendWindowSize, c.SendWindow)
	assert.Equal(t, log, c.Logger)

	logger := logrus.New()
	orig := &Config{MaxID: 3, Logger: logger}
	c = sanitizeConfig(orig)
	assert.Equal(t, 3, c.MaxID)
	assert.Equal(t, MaxSendWindowSize, c.SendWindow)
	assert.Equal(t, logger, c.Logger)
	assert.Equal(t, 0, orig.SendWindow)
}
