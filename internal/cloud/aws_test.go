package cloud

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

type recordingRunner struct {
	cmds    []runner.Cmd
	results []runner.Result
}

func (r *recordingRunner) Run(_ context.Context, cmd runner.Cmd) (runner.Result, error) {
	r.cmds = append(r.cmds, cmd)
	if len(r.results) == 0 {
		return runner.Result{ExitCode: 0}, nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res, nil
}

func fakeAWSHome(t *testing.T, credentials, awsConfig string) string {
	t.Helper()
	home := t.TempDir()
	dir := filepath.Join(home, ".aws")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if credentials != "" {
		if err := os.WriteFile(filepath.Join(dir, "credentials"), []byte(credentials), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if awsConfig != "" {
		if err := os.WriteFile(filepath.Join(dir, "config"), []byte(awsConfig), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return home
}

func TestDiscoverProfilesFromFiles(t *testing.T) {
	home := fakeAWSHome(t,
		"[default]\naws_access_key_id = AKIA\n\n[work]\naws_access_key_id = AKIB\n",
		"[profile staging]\nregion = eu-west-1\n\n[default]\nregion = us-east-1\n")

	a := NewAWS(&recordingRunner{})
	a.userHomeDir = func() (string, error) { return home, nil }

	profiles, err := a.DiscoverProfiles(context.Background())
	if err != nil {
		t.Fatalf("DiscoverProfiles: %v", err)
	}
	want := []string{"default", "staging", "work"}
	if !reflect.DeepEqual(profiles, want) {
		t.Errorf("profiles = %v, want %v", profiles, want)
	}
}

func TestDiscoverProfilesFallsBackToCLI(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 0, Stdout: "default\nci\n"},
	}}
	a := NewAWS(rec)
	a.userHomeDir = func() (string, error) { return t.TempDir(), nil }

	profiles, err := a.DiscoverProfiles(context.Background())
	if err != nil {
		t.Fatalf("DiscoverProfiles: %v", err)
	}
	if !reflect.DeepEqual(profiles, []string{"default", "ci"}) {
		t.Errorf("profiles = %v", profiles)
	}
	if args := strings.Join(rec.cmds[0].Args, " "); args != "configure list-profiles" {
		t.Errorf("args = %q", args)
	}
}

func TestDiscoverProfilesNoneFound(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{{ExitCode: 1, Stderr: "boom"}}}
	a := NewAWS(rec)
	a.userHomeDir = func() (string, error) { return t.TempDir(), nil }

	if _, err := a.DiscoverProfiles(context.Background()); err == nil {
		t.Error("expected error when no profiles exist anywhere")
	}
}

func TestVerifyIdentityParsesCallerIdentity(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 0, Stdout: `{"UserId": "AIDA...", "Account": "123456789012", "Arn": "arn:aws:iam::123456789012:user/ops"}`},
	}}
	a := NewAWS(rec)

	ident, err := a.VerifyIdentity(context.Background(), "default")
	if err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if ident.Account != "123456789012" || !strings.HasSuffix(ident.Principal, "user/ops") {
		t.Errorf("identity = %+v", ident)
	}
}

func TestVerifyIdentityBadCredentials(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 255, Stderr: "An error occurred (ExpiredToken)"},
	}}
	a := NewAWS(rec)

	if _, err := a.VerifyIdentity(context.Background(), "default"); err == nil {
		t.Error("expected error for expired credentials")
	}
}

func TestDiscoverRegionsFallback(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 255, Stderr: "UnauthorizedOperation"},
	}}
	a := NewAWS(rec)

	regions, err := a.DiscoverRegions(context.Background(), "default")
	if err != nil {
		t.Fatalf("DiscoverRegions: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("fallback region list empty")
	}
	found := false
	for _, r := range regions {
		if r == "us-east-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("fallback regions missing us-east-1: %v", regions)
	}
}

func TestConfigureKubeconfigArguments(t *testing.T) {
	rec := &recordingRunner{}
	a := NewAWS(rec)
	cfg := config.Default(config.ProviderAWS)
	cfg.Profile = "work"
	cfg.Region = "eu-west-1"

	if err := a.ConfigureKubeconfig(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(rec.cmds[0].Args, " ")
	for _, want := range []string{"eks update-kubeconfig", "--name n8n", "--region eu-west-1", "--profile work"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestPrepareTeardownSkipsSQLite(t *testing.T) {
	rec := &recordingRunner{}
	a := NewAWS(rec)
	cfg := config.Default(config.ProviderAWS)

	if err := a.PrepareTeardown(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if len(rec.cmds) != 0 {
		t.Error("sqlite deployment should not touch rds")
	}
}

func TestPrepareTeardownToleratesMissingDatabase(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 254, Stderr: "An error occurred (DBInstanceNotFound) when calling the ModifyDBInstance operation"},
	}}
	a := NewAWS(rec)
	cfg := config.Default(config.ProviderAWS)
	cfg.Database.Engine = config.DatabasePostgres

	if err := a.PrepareTeardown(context.Background(), cfg); err != nil {
		t.Errorf("PrepareTeardown with absent db = %v, want nil", err)
	}
}

func TestForName(t *testing.T) {
	run := &recordingRunner{}
	aws, err := ForName("aws", run)
	if err != nil || aws.Name() != "aws" {
		t.Errorf("ForName(aws) = %v, %v", aws, err)
	}
	azure, err := ForName("azure", run)
	if err != nil || azure.Name() != "azure" {
		t.Errorf("ForName(azure) = %v, %v", azure, err)
	}
	if _, err := ForName("gcp", run); err == nil {
		t.Error("ForName(gcp) should fail")
	}
}
