package prereq

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/lrproduhub/n8nctl/internal/runner"
)

func stubLookPath(t *testing.T, found map[string]bool) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if found[name] {
			return "/usr/local/bin/" + name, nil
		}
		return "", errors.New("not found in PATH")
	}
	t.Cleanup(func() { lookPath = orig })
}

func versionRunner(outputs map[string]string) runner.Runner {
	return runner.Func(func(_ context.Context, cmd runner.Cmd) (runner.Result, error) {
		out, ok := outputs[cmd.Name]
		if !ok {
			return runner.Result{ExitCode: 127}, errors.New("unknown tool")
		}
		return runner.Result{ExitCode: 0, Stdout: out}, nil
	})
}

func TestCheckAllSatisfied(t *testing.T) {
	stubLookPath(t, map[string]bool{"terraform": true, "helm": true, "kubectl": true})
	run := versionRunner(map[string]string{
		"terraform": "Terraform v1.9.5\non linux_amd64",
		"helm":      `version.BuildInfo{Version:"v3.16.1"}`,
		"kubectl":   "Client Version: v1.31.0",
	})

	results := Check(context.Background(), run, CommonTools())

	if results.HasErrors() {
		t.Fatalf("unexpected errors: %v", results.Err())
	}
	if err := results.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
	for _, r := range results.Results {
		if !r.Found || !r.Satisfies {
			t.Errorf("%s: Found=%v Satisfies=%v Version=%q", r.Tool.Name, r.Found, r.Satisfies, r.Version)
		}
	}
}

func TestCheckMissingRequiredTool(t *testing.T) {
	stubLookPath(t, map[string]bool{"helm": true, "kubectl": true})
	run := versionRunner(map[string]string{
		"helm":    `version.BuildInfo{Version:"v3.16.1"}`,
		"kubectl": "Client Version: v1.31.0",
	})

	results := Check(context.Background(), run, CommonTools())

	if !results.HasErrors() {
		t.Fatal("expected errors for missing terraform")
	}
	err := results.Err()
	if err == nil {
		t.Fatal("Err() = nil, want error")
	}
	if got := err.Error(); !regexp.MustCompile(`terraform is not installed`).MatchString(got) {
		t.Errorf("Err() = %q, missing terraform mention", got)
	}
}

func TestCheckOutdatedVersionBlocks(t *testing.T) {
	stubLookPath(t, map[string]bool{"terraform": true, "helm": true, "kubectl": true})
	run := versionRunner(map[string]string{
		"terraform": "Terraform v1.2.0",
		"helm":      `version.BuildInfo{Version:"v3.16.1"}`,
		"kubectl":   "Client Version: v1.31.0",
	})

	results := Check(context.Background(), run, CommonTools())

	if !results.HasErrors() {
		t.Fatal("expected errors for outdated terraform")
	}
	if len(results.Outdated) != 1 || results.Outdated[0].Tool.Name != "terraform" {
		t.Errorf("Outdated = %+v, want terraform only", results.Outdated)
	}
}

func TestCheckOptionalToolDoesNotBlock(t *testing.T) {
	stubLookPath(t, map[string]bool{})
	run := versionRunner(nil)

	results := Check(context.Background(), run, OptionalTools())

	if results.HasErrors() {
		t.Error("optional tool absence should not be an error")
	}
	if err := results.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if len(results.Missing) != 1 {
		t.Errorf("Missing = %d entries, want 1 (still reported)", len(results.Missing))
	}
}

func TestCheckUndeterminableVersionPasses(t *testing.T) {
	stubLookPath(t, map[string]bool{"terraform": true})
	run := versionRunner(map[string]string{"terraform": "something unparseable"})

	results := Check(context.Background(), run, []Tool{CommonTools()[0]})

	if results.HasErrors() {
		t.Error("unreadable version should warn, not block")
	}
	if results.Results[0].Version != "" {
		t.Errorf("Version = %q, want empty", results.Results[0].Version)
	}
}

func TestCheckVersionOnStderr(t *testing.T) {
	stubLookPath(t, map[string]bool{"aws": true})
	run := runner.Func(func(_ context.Context, _ runner.Cmd) (runner.Result, error) {
		return runner.Result{ExitCode: 0, Stderr: "aws-cli/2.17.0 Python/3.11"}, nil
	})

	results := Check(context.Background(), run, AWSTools())

	if results.Results[0].Version != "2.17.0" {
		t.Errorf("Version = %q, want 2.17.0", results.Results[0].Version)
	}
}

func TestForProvider(t *testing.T) {
	names := func(tools []Tool) map[string]bool {
		m := map[string]bool{}
		for _, tool := range tools {
			m[tool.Name] = true
		}
		return m
	}

	aws := names(ForProvider("aws"))
	if !aws["aws"] || aws["az"] {
		t.Errorf("ForProvider(aws) tools = %v", aws)
	}
	azure := names(ForProvider("azure"))
	if !azure["az"] || azure["aws"] {
		t.Errorf("ForProvider(azure) tools = %v", azure)
	}
	for _, common := range []string{"terraform", "helm", "kubectl"} {
		if !aws[common] || !azure[common] {
			t.Errorf("common tool %s missing", common)
		}
	}
}

func TestSatisfiesMinimum(t *testing.T) {
	tests := []struct {
		version, minimum string
		want             bool
	}{
		{"1.6.0", "1.6.0", true},
		{"1.10.2", "1.6.0", true},
		{"1.5.9", "1.6.0", false},
		{"", "1.6.0", true},
		{"2.0.0", "", true},
		{"garbage", "1.0.0", true},
	}
	for _, tt := range tests {
		if got := satisfiesMinimum(tt.version, tt.minimum); got != tt.want {
			t.Errorf("satisfiesMinimum(%q, %q) = %v, want %v", tt.version, tt.minimum, got, tt.want)
		}
	}
}
