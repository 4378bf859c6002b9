package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNoopBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Infof("[Test] %s", "ok")
		Warnw("warn", "k", "v")
		With("task", "t1").Infow("scoped")
		Sync()
	})
}

func TestEncoding(t *testing.T) {
	assert.Equal(t, "console", encoding("console"))
	assert.Equal(t, "json", encoding("json"))
	assert.Equal(t, "json", encoding(""))
}

func TestInit_UnknownLevelFallsBack(t *testing.T) {
	prev := sugar
	t.Cleanup(func() { sugar = prev })

	Init("not-a-level", "json", "")
	assert.True(t, sugar.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, sugar.Desugar().Core().Enabled(zapcore.DebugLevel))
}
