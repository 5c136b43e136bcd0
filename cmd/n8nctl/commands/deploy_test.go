package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploy(t *testing.T) {
	cmd := Deploy()

	require.NotNil(t, cmd)
	assert.Equal(t, "deploy", cmd.Use)
	assert.Equal(t, "Deploy n8n to AWS or Azure", cmd.Short)
	assert.Contains(t, cmd.Long, "interactive wizard")
	assert.NotNil(t, cmd.RunE, "deploy command should have RunE function")
}

func TestDeploy_CloudFlag(t *testing.T) {
	cmd := Deploy()

	flag := cmd.Flags().Lookup("cloud")
	require.NotNil(t, flag, "cloud flag should exist")
	assert.Equal(t, "", flag.DefValue)
}

func TestDeploy_SkipInfraFlag(t *testing.T) {
	cmd := Deploy()

	flag := cmd.Flags().Lookup("skip-infra")
	require.NotNil(t, flag, "skip-infra flag should exist")
	assert.Equal(t, "false", flag.DefValue)
}

func TestDeploy_RejectsPositionalArgs(t *testing.T) {
	cmd := Deploy()

	err := cmd.Args(cmd, []string{"extra"})
	assert.Error(t, err)
}
