package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLevelsAndOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel("info")

	Debug("hidden", "k", 1)
	assert.Empty(t, buf.String())

	SetLevel("debug")
	assert.Equal(t, log.DebugLevel, Logger().GetLevel())
	Debug("shown", "k", 2)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=2")

	SetLevel("loud")
	assert.Equal(t, log.DebugLevel, Logger().GetLevel(), "unknown level keeps the current one")
}
