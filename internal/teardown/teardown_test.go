package teardown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lrproduhub/n8nctl/internal/cloud"
	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/kubectl"
	"github.com/lrproduhub/n8nctl/internal/runner"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/terraform"
)

// scriptedRunner replies per command name and records everything.
type scriptedRunner struct {
	cmds    []runner.Cmd
	replies map[string]runner.Result
}

func (s *scriptedRunner) Run(_ context.Context, cmd runner.Cmd) (runner.Result, error) {
	s.cmds = append(s.cmds, cmd)
	key := cmd.Name
	if len(cmd.Args) > 0 {
		key = cmd.Name + " " + cmd.Args[0]
	}
	if res, ok := s.replies[key]; ok {
		return res, nil
	}
	return runner.Result{ExitCode: 0}, nil
}

func (s *scriptedRunner) sawCommand(prefix string) bool {
	return s.commandIndex(prefix) >= 0
}

func (s *scriptedRunner) commandIndex(prefix string) int {
	for i, cmd := range s.cmds {
		joined := cmd.Name + " " + strings.Join(cmd.Args, " ")
		if strings.HasPrefix(joined, prefix) {
			return i
		}
	}
	return -1
}

type fakeSecretStore struct {
	values    map[string]string
	deleteErr error
}

func newFakeSecretStore() *fakeSecretStore {
	return &fakeSecretStore{values: map[string]string{}}
}

func (f *fakeSecretStore) Put(_ context.Context, name, value string) error {
	f.values[name] = value
	return nil
}

func (f *fakeSecretStore) Get(_ context.Context, name string) (string, error) {
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeSecretStore) Delete(_ context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.values, name)
	return nil
}

func testOptions(t *testing.T, run runner.Runner, store cloud.SecretStore) Options {
	t.Helper()
	cfg := config.Default(config.ProviderAWS)
	cfg.Profile = "default"

	dir := t.TempDir()
	mgr := state.NewManager(filepath.Join(dir, "terraform", "aws"))
	if err := mgr.EnsureRegion("us-east-1"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mgr.StatePath(), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	return Options{
		Config:    cfg,
		Store:     config.NewStore(dir),
		Terraform: terraform.New(run, mgr.Dir, ""),
		Helm:      helm.New(run),
		Kubectl:   kubectl.New(run),
		Cloud:     cloud.NewAWS(run),
		Secrets:   store,
		State:     mgr,
	}
}

func TestRunIdempotentWhenEverythingAbsent(t *testing.T) {
	run := &scriptedRunner{replies: map[string]runner.Result{
		"helm uninstall":    {ExitCode: 1, Stderr: "Error: uninstall: Release not loaded: n8n: release: not found"},
		"kubectl delete":    {ExitCode: 1, Stderr: `Error from server (NotFound): namespaces "n8n" not found`},
		"terraform init":    {ExitCode: 0},
		"terraform destroy": {ExitCode: 0},
	}}
	store := newFakeSecretStore()
	opts := testOptions(t, run, store)

	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run on absent resources: %v", err)
	}
	if opts.State.HasState() {
		t.Error("terraform state not cleared")
	}
	if !run.sawCommand("terraform destroy") {
		t.Error("destroy never ran")
	}
}

func TestRunDestroyFailureIsFatal(t *testing.T) {
	run := &scriptedRunner{replies: map[string]runner.Result{
		"terraform destroy": {ExitCode: 1, Stderr: "Error: DependencyViolation"},
	}}
	opts := testOptions(t, run, newFakeSecretStore())

	if err := Run(context.Background(), opts); err == nil {
		t.Fatal("failed destroy must fail the teardown")
	}
	if !opts.State.HasState() {
		t.Error("state must survive a failed destroy")
	}
}

func TestRunKeepsEncryptionKeyByDefault(t *testing.T) {
	run := &scriptedRunner{}
	store := newFakeSecretStore()
	store.values[config.EncryptionKeySecretName("n8n")] = "key"
	store.values[config.BasicAuthSecretName("n8n")] = "pw"
	opts := testOptions(t, run, store)

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), config.EncryptionKeySecretName("n8n")); err != nil {
		t.Error("encryption key deleted without PurgeSecrets")
	}
	if _, err := store.Get(context.Background(), config.BasicAuthSecretName("n8n")); err == nil {
		t.Error("basic auth secret survived teardown")
	}
}

func TestRunPurgeSecretsDeletesKey(t *testing.T) {
	run := &scriptedRunner{}
	store := newFakeSecretStore()
	store.values[config.EncryptionKeySecretName("n8n")] = "key"
	opts := testOptions(t, run, store)
	opts.PurgeSecrets = true

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), config.EncryptionKeySecretName("n8n")); err == nil {
		t.Error("encryption key survived PurgeSecrets teardown")
	}
}

func TestRunDecliningSecretCleanupKeepsEntries(t *testing.T) {
	run := &scriptedRunner{}
	store := newFakeSecretStore()
	store.values[config.BasicAuthSecretName("n8n")] = "pw"
	store.values[config.DBCredentialsSecretName("n8n")] = "creds"
	opts := testOptions(t, run, store)
	opts.Confirm = func(_ context.Context, _ string) (bool, error) {
		return false, nil
	}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("declined secret cleanup must not fail the teardown: %v", err)
	}
	if _, err := store.Get(context.Background(), config.BasicAuthSecretName("n8n")); err != nil {
		t.Error("basic auth secret deleted despite declined confirmation")
	}
	if _, err := store.Get(context.Background(), config.DBCredentialsSecretName("n8n")); err != nil {
		t.Error("db credentials deleted despite declined confirmation")
	}
}

func TestRunConfirmedSecretCleanupDeletesEntries(t *testing.T) {
	run := &scriptedRunner{}
	store := newFakeSecretStore()
	store.values[config.BasicAuthSecretName("n8n")] = "pw"
	opts := testOptions(t, run, store)
	var prompt string
	opts.Confirm = func(_ context.Context, p string) (bool, error) {
		prompt = p
		return true, nil
	}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), config.BasicAuthSecretName("n8n")); err == nil {
		t.Error("basic auth secret survived confirmed cleanup")
	}
	if !strings.Contains(prompt, "secret store") {
		t.Errorf("confirmation prompt should name the secret store, got %q", prompt)
	}
}

func shortLBWindow(t *testing.T) {
	t.Helper()
	origInterval, origDeadline := lbPollInterval, lbPollDeadline
	lbPollInterval = time.Millisecond
	lbPollDeadline = 20 * time.Millisecond
	t.Cleanup(func() {
		lbPollInterval, lbPollDeadline = origInterval, origDeadline
	})
}

func TestRunDeletesVolumesAndSecretsBeforeNamespace(t *testing.T) {
	run := &scriptedRunner{}
	opts := testOptions(t, run, newFakeSecretStore())

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"kubectl delete secret n8n-encryption-key",
		"kubectl delete secret n8n-basic-auth",
		"kubectl delete pvc --all",
	} {
		if !run.sawCommand(want) {
			t.Errorf("missing command %q", want)
		}
	}
	if idx := run.commandIndex("kubectl delete pvc"); idx > run.commandIndex("kubectl delete namespace n8n") {
		t.Error("PVCs deleted after the namespace")
	}
}

func TestRunLingeringLoadBalancerWarnsButSucceeds(t *testing.T) {
	shortLBWindow(t)
	run := &scriptedRunner{replies: map[string]runner.Result{
		"kubectl get": {ExitCode: 0, Stdout: "abc.elb.amazonaws.com"},
	}}
	opts := testOptions(t, run, newFakeSecretStore())

	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("lingering load balancer must not fail the teardown: %v", err)
	}
	if !run.sawCommand("terraform destroy") {
		t.Error("destroy skipped despite the soft load balancer wait")
	}
}

func TestRunSkipCluster(t *testing.T) {
	run := &scriptedRunner{}
	opts := testOptions(t, run, newFakeSecretStore())
	opts.SkipCluster = true

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if run.sawCommand("helm uninstall") || run.sawCommand("kubectl delete") {
		t.Error("cluster stage ran despite SkipCluster")
	}
}

func TestRunUninstallsCertManagerForLetsEncrypt(t *testing.T) {
	run := &scriptedRunner{}
	opts := testOptions(t, run, newFakeSecretStore())
	opts.Config.Domain = "n8n.example.com"
	opts.Config.TLS = config.TLSSpec{
		Mode:        config.TLSModeLetsEncrypt,
		Email:       "ops@example.com",
		Environment: config.ACMEProduction,
	}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if !run.sawCommand("helm uninstall cert-manager") {
		t.Error("cert-manager not uninstalled")
	}
}
