package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/prereq"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

// stubToolCheck replaces the tool check and records the requested tools.
func stubToolCheck(t *testing.T, results *prereq.Results) *[]prereq.Tool {
	t.Helper()
	orig := checkTools
	t.Cleanup(func() { checkTools = orig })

	var requested []prereq.Tool
	checkTools = func(_ context.Context, _ runner.Runner, tools []prereq.Tool) *prereq.Results {
		requested = tools
		return results
	}
	return &requested
}

func TestDoctor_NoDeployment(t *testing.T) {
	useWorkDir(t)
	requested := stubToolCheck(t, &prereq.Results{})

	err := Doctor(context.Background(), "")
	require.NoError(t, err)

	// Without a cloud there is nothing cloud-specific to check.
	for _, tool := range *requested {
		assert.NotEqual(t, "aws", tool.Name)
		assert.NotEqual(t, "az", tool.Name)
	}
}

func TestDoctor_CloudFromLastRun(t *testing.T) {
	dir := useWorkDir(t)
	require.NoError(t, config.NewStore(dir).SaveLastRun(config.Default(config.ProviderAWS)))
	requested := stubToolCheck(t, &prereq.Results{})

	err := Doctor(context.Background(), "")
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, tool := range *requested {
		names[tool.Name] = true
	}
	assert.True(t, names["aws"], "last run on AWS should add the aws CLI check")
	assert.True(t, names["terraform"])
}

func TestDoctor_MissingRequiredTool(t *testing.T) {
	useWorkDir(t)
	stubToolCheck(t, &prereq.Results{
		Missing: []prereq.Tool{{Name: "terraform", Required: true, InstallURL: "https://developer.hashicorp.com/terraform/install"}},
	})

	err := Doctor(context.Background(), "azure")
	require.Error(t, err)
	assert.True(t, errdefs.IsPrecondition(err), "error = %v", err)
	assert.Contains(t, err.Error(), "terraform")
}

func TestDoctor_UnknownCloud(t *testing.T) {
	useWorkDir(t)

	err := Doctor(context.Background(), "gcp")
	require.Error(t, err)
	assert.Equal(t, errdefs.KindValidation, errdefs.KindOf(err))
}
