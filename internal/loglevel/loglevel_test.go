package loglevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LevelWarn, NormalizeLogLevel("warn"))
	assert.Equal(t, LevelError, NormalizeLogLevel("error"))
	assert.Equal(t, LevelNone, NormalizeLogLevel("none"))
	assert.Equal(t, LevelTrace, NormalizeLogLevel(""))
	assert.Equal(t, LevelTrace, NormalizeLogLevel("bogus"))
}

func TestShouldLog(t *testing.T) {
	cases := []struct {
		name        string
		msgLevel    Level
		loggerLevel Level
		want        bool
	}{
		{"error msg at warn logger passes", LevelError, LevelWarn, true},
		{"info msg at warn logger filtered", LevelInfo, LevelWarn, false},
		{"trace default logs everything", LevelDebug, "", true},
		{"logger none suppresses all", LevelError, LevelNone, false},
		{"msg none is never logged", LevelNone, LevelTrace, false},
		{"equal ranks pass", LevelInfo, LevelInfo, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldLog(tc.msgLevel, tc.loggerLevel))
		})
	}
}
