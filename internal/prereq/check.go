// Package prereq verifies that the external tools the deployment pipeline
// drives are installed and recent enough. It is the first gate in every run:
// nothing is prompted for and nothing is written before this passes.
package prereq

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/lrproduhub/n8nctl/internal/runner"
)

// versionQueryTimeout bounds each version-query invocation. These are local
// commands; anything slower than this is effectively broken.
const versionQueryTimeout = 10 * time.Second

// Tool describes an external tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string

	// VersionArgs invoke the tool's version query.
	VersionArgs []string

	// VersionPattern extracts the semantic version from the query output.
	VersionPattern *regexp.Regexp

	// MinVersion is the lowest acceptable version. Empty skips the check.
	MinVersion string
}

// CommonTools returns the tools every deployment needs regardless of cloud.
func CommonTools() []Tool {
	return []Tool{
		{
			Name:           "terraform",
			Required:       true,
			Description:    "Infrastructure as Code tool",
			InstallURL:     "https://developer.hashicorp.com/terraform/downloads",
			VersionArgs:    []string{"version"},
			VersionPattern: regexp.MustCompile(`Terraform v([0-9]+\.[0-9]+\.[0-9]+)`),
			MinVersion:     "1.6.0",
		},
		{
			Name:           "helm",
			Required:       true,
			Description:    "Kubernetes package manager",
			InstallURL:     "https://helm.sh/docs/intro/install/",
			VersionArgs:    []string{"version"},
			VersionPattern: regexp.MustCompile(`v([0-9]+\.[0-9]+\.[0-9]+)`),
			MinVersion:     "3.0.0",
		},
		{
			Name:           "kubectl",
			Required:       true,
			Description:    "Kubernetes command-line tool",
			InstallURL:     "https://kubernetes.io/docs/tasks/tools/",
			VersionArgs:    []string{"version", "--client"},
			VersionPattern: regexp.MustCompile(`Client Version: v([0-9]+\.[0-9]+\.[0-9]+)`),
			MinVersion:     "1.20.0",
		},
	}
}

// AWSTools returns the identity CLI required for EKS deployments.
func AWSTools() []Tool {
	return []Tool{
		{
			Name:           "aws",
			Required:       true,
			Description:    "AWS Command Line Interface",
			InstallURL:     "https://docs.aws.amazon.com/cli/latest/userguide/getting-started-install.html",
			VersionArgs:    []string{"--version"},
			VersionPattern: regexp.MustCompile(`aws-cli/([0-9]+\.[0-9]+\.[0-9]+)`),
			MinVersion:     "2.0.0",
		},
	}
}

// AzureTools returns the identity CLI required for AKS deployments.
func AzureTools() []Tool {
	return []Tool{
		{
			Name:           "az",
			Required:       true,
			Description:    "Azure Command Line Interface",
			InstallURL:     "https://docs.microsoft.com/en-us/cli/azure/install-azure-cli",
			VersionArgs:    []string{"version"},
			VersionPattern: regexp.MustCompile(`"azure-cli": "([0-9]+\.[0-9]+\.[0-9]+)"`),
			MinVersion:     "2.50.0",
		},
	}
}

// OptionalTools returns tools that are useful but never block a run.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:           "openssl",
			Required:       false,
			Description:    "Useful for inspecting certificates manually",
			InstallURL:     "https://www.openssl.org/source/",
			VersionArgs:    []string{"version"},
			VersionPattern: regexp.MustCompile(`OpenSSL ([0-9]+\.[0-9]+\.[0-9]+)`),
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool      Tool
	Found     bool
	Path      string
	Version   string
	Satisfies bool
}

// Results contains the results of checking multiple tools.
type Results struct {
	Results  []CheckResult
	Missing  []Tool
	Outdated []CheckResult
}

// HasErrors returns true if any required tool is missing or outdated.
func (r *Results) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	for _, res := range r.Outdated {
		if res.Tool.Required {
			return true
		}
	}
	return false
}

// Err returns an error describing missing or outdated required tools,
// or nil when everything required is satisfied.
func (r *Results) Err() error {
	var problems []string
	for _, tool := range r.Missing {
		if tool.Required {
			problems = append(problems, fmt.Sprintf("%s is not installed (%s)", tool.Name, tool.InstallURL))
		}
	}
	for _, res := range r.Outdated {
		if res.Tool.Required {
			problems = append(problems, fmt.Sprintf("%s v%s is older than required %s (%s)",
				res.Tool.Name, res.Version, res.Tool.MinVersion, res.Tool.InstallURL))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("missing or outdated tools: %s", strings.Join(problems, "; "))
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Check verifies that the specified tools are available and recent enough.
// It only reads; no file or cloud resource is touched.
func Check(ctx context.Context, run runner.Runner, tools []Tool) *Results {
	results := &Results{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := lookPath(tool.Name)
		if err != nil {
			results.Missing = append(results.Missing, tool)
			results.Results = append(results.Results, result)
			continue
		}
		result.Found = true
		result.Path = path

		result.Version = queryVersion(ctx, run, tool)
		result.Satisfies = satisfiesMinimum(result.Version, tool.MinVersion)
		if !result.Satisfies && result.Version != "" {
			results.Outdated = append(results.Outdated, result)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// ForProvider returns the full tool set for a deployment to the named cloud.
func ForProvider(provider string) []Tool {
	tools := CommonTools()
	switch provider {
	case "aws":
		tools = append(tools, AWSTools()...)
	case "azure":
		tools = append(tools, AzureTools()...)
	}
	return append(tools, OptionalTools()...)
}

// queryVersion runs the tool's version query and extracts the version
// string. Returns empty when the version cannot be determined; an
// undeterminable version does not fail the check.
func queryVersion(ctx context.Context, run runner.Runner, tool Tool) string {
	if len(tool.VersionArgs) == 0 || tool.VersionPattern == nil {
		return ""
	}

	res, err := run.Run(ctx, runner.Cmd{
		Name:    tool.Name,
		Args:    tool.VersionArgs,
		Timeout: versionQueryTimeout,
	})
	if err != nil {
		return ""
	}

	// Some CLIs print their version banner on stderr (aws-cli v1 did).
	if m := tool.VersionPattern.FindStringSubmatch(res.Stdout); len(m) > 1 {
		return m[1]
	}
	if m := tool.VersionPattern.FindStringSubmatch(res.Stderr); len(m) > 1 {
		return m[1]
	}
	return ""
}

// satisfiesMinimum compares an extracted version against the minimum.
// An empty or unparseable version passes: the tool is present and a version
// we cannot read should warn, not block.
func satisfiesMinimum(version, minimum string) bool {
	if version == "" || minimum == "" {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return true
	}
	minV, err := semver.NewVersion(minimum)
	if err != nil {
		return true
	}
	return !v.LessThan(minV)
}
