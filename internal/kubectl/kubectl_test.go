package kubectl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lrproduhub/n8nctl/internal/errdefs"
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

func TestNamespaceExists(t *testing.T) {
	tests := []struct {
		name   string
		result runner.Result
		want   bool
		err    bool
	}{
		{"present", runner.Result{ExitCode: 0, Stdout: "NAME   STATUS\nn8n    Active"}, true, false},
		{"absent", runner.Result{ExitCode: 1, Stderr: `Error from server (NotFound): namespaces "n8n" not found`}, false, false},
		{"unreachable", runner.Result{ExitCode: 1, Stderr: "Unable to connect to the server"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRunner{results: []runner.Result{tt.result}}
			got, err := New(rec).NamespaceExists(context.Background(), "n8n")
			if (err != nil) != tt.err {
				t.Fatalf("err = %v, want err=%v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("NamespaceExists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateNamespaceSkipsExisting(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 0, Stdout: "n8n Active"},
	}}
	if err := New(rec).CreateNamespace(context.Background(), "n8n"); err != nil {
		t.Fatal(err)
	}
	if len(rec.cmds) != 1 {
		t.Errorf("expected only the existence check, got %d commands", len(rec.cmds))
	}
}

func TestWaitDeploymentTimeoutIsTimeoutError(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 1, Stderr: "error: timed out waiting for the condition"},
	}}

	err := New(rec).WaitDeploymentAvailable(context.Background(), "n8n", "n8n", 5*time.Minute)
	if err == nil {
		t.Fatal("expected error")
	}
	if errdefs.KindOf(err) != errdefs.KindTimeout {
		t.Errorf("kind = %v, want timeout", errdefs.KindOf(err))
	}
	if hint := errdefs.HintOf(err); !strings.Contains(hint, "kubectl -n n8n get pods") {
		t.Errorf("hint = %q, want manual inspection command", hint)
	}
}

func TestIngressAddressPrefersHostname(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 0, Stdout: "abc.elb.amazonaws.com"},
	}}
	got, err := New(rec).IngressAddress(context.Background(), "n8n", "n8n")
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc.elb.amazonaws.com" {
		t.Errorf("IngressAddress = %q", got)
	}
	if len(rec.cmds) != 1 {
		t.Error("should not query ip when hostname is set")
	}
}

func TestIngressAddressFallsBackToIP(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 0, Stdout: ""},
		{ExitCode: 0, Stdout: "20.30.40.50"},
	}}
	got, err := New(rec).IngressAddress(context.Background(), "n8n", "n8n")
	if err != nil {
		t.Fatal(err)
	}
	if got != "20.30.40.50" {
		t.Errorf("IngressAddress = %q", got)
	}
}

func TestIngressAddressNotFoundIsEmpty(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 1, Stderr: `Error from server (NotFound): ingresses.networking.k8s.io "n8n" not found`},
	}}
	got, err := New(rec).IngressAddress(context.Background(), "n8n", "n8n")
	if err != nil {
		t.Fatalf("NotFound should not be an error: %v", err)
	}
	if got != "" {
		t.Errorf("IngressAddress = %q, want empty", got)
	}
}

func TestCreateSecretLiteralKeepsValuesOffArgv(t *testing.T) {
	rec := &recordingRunner{}

	err := New(rec).CreateSecretLiteral(context.Background(), "n8n", "n8n-basic-auth",
		map[string]string{"auth": "admin:$2a$10$hash"})
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.cmds) != 1 {
		t.Fatalf("expected a single apply, got %d commands", len(rec.cmds))
	}
	apply := rec.cmds[0]
	joined := strings.Join(apply.Args, " ")
	if strings.Contains(joined, "hash") {
		t.Errorf("secret value leaked into command arguments: %s", joined)
	}
	if !strings.Contains(joined, "apply") {
		t.Errorf("args = %s", joined)
	}
	for _, want := range []string{"kind: Secret", "namespace: n8n", "name: n8n-basic-auth", "admin:$2a$10$hash"} {
		if !strings.Contains(apply.Stdin, want) {
			t.Errorf("manifest missing %q:\n%s", want, apply.Stdin)
		}
	}
}

func TestCreateTLSSecretReadsPEMFiles(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "tls.crt")
	keyPath := filepath.Join(dir, "tls.key")
	if err := os.WriteFile(certPath, []byte("CERT-PEM"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, []byte("KEY-PEM"), 0o600); err != nil {
		t.Fatal(err)
	}

	rec := &recordingRunner{}
	if err := New(rec).CreateTLSSecret(context.Background(), "n8n", "n8n-tls", certPath, keyPath); err != nil {
		t.Fatal(err)
	}

	apply := rec.cmds[0]
	joined := strings.Join(apply.Args, " ")
	if strings.Contains(joined, "KEY-PEM") {
		t.Errorf("key material leaked into command arguments: %s", joined)
	}
	for _, want := range []string{"type: kubernetes.io/tls", "tls.crt", "CERT-PEM", "tls.key", "KEY-PEM"} {
		if !strings.Contains(apply.Stdin, want) {
			t.Errorf("manifest missing %q:\n%s", want, apply.Stdin)
		}
	}
}

func TestDeletePersistentVolumeClaims(t *testing.T) {
	rec := &recordingRunner{}
	if err := New(rec).DeletePersistentVolumeClaims(context.Background(), "n8n"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(rec.cmds[0].Args, " ")
	for _, want := range []string{"delete pvc", "--all", "--namespace n8n"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestDeleteNamespaceToleratesAbsence(t *testing.T) {
	rec := &recordingRunner{results: []runner.Result{
		{ExitCode: 1, Stderr: `Error from server (NotFound): namespaces "n8n" not found`},
	}}
	if err := New(rec).DeleteNamespace(context.Background(), "n8n"); err != nil {
		t.Errorf("DeleteNamespace of absent namespace = %v, want nil", err)
	}
}

func TestDeleteManifestUsesIgnoreNotFound(t *testing.T) {
	rec := &recordingRunner{}
	if err := New(rec).DeleteManifest(context.Background(), "kind: Namespace\n"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(rec.cmds[0].Args, " ")
	if !strings.Contains(joined, "--ignore-not-found") {
		t.Errorf("args = %s", joined)
	}
}
