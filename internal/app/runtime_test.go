package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/peopledesk/peopledesk/internal/testing/guard"
)

func TestTestModeFollowsEnvironment(t *testing.T) {
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}
