package cloud

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

type fakeSecretsManager struct {
	secrets    map[string]string
	lastCreate *secretsmanager.CreateSecretInput

	createErr error
	getErr    error
	deleteErr error
}

func newFakeSecretsManager() *fakeSecretsManager {
	return &fakeSecretsManager{secrets: map[string]string{}}
}

func (f *fakeSecretsManager) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.lastCreate = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.secrets[*in.Name]; ok {
		return nil, &smtypes.ResourceExistsException{}
	}
	f.secrets[*in.Name] = *in.SecretString
	return &secretsmanager.CreateSecretOutput{}, nil
}

func (f *fakeSecretsManager) PutSecretValue(_ context.Context, in *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.secrets[*in.SecretId] = *in.SecretString
	return &secretsmanager.PutSecretValueOutput{}, nil
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.secrets[*in.SecretId]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func (f *fakeSecretsManager) DeleteSecret(_ context.Context, in *secretsmanager.DeleteSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if _, ok := f.secrets[*in.SecretId]; !ok {
		return nil, &smtypes.ResourceNotFoundException{}
	}
	delete(f.secrets, *in.SecretId)
	return &secretsmanager.DeleteSecretOutput{}, nil
}

func TestSecretsManagerPutCreatesThenUpdates(t *testing.T) {
	fake := newFakeSecretsManager()
	store := &secretsManagerStore{client: fake}
	ctx := context.Background()

	if err := store.Put(ctx, "n8n/n8n/encryption-key", "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "n8n/n8n/encryption-key", "v2"); err != nil {
		t.Fatalf("Put over existing: %v", err)
	}

	got, err := store.Get(ctx, "n8n/n8n/encryption-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}
}

func TestSecretsManagerPutLabelsNewSecrets(t *testing.T) {
	fake := newFakeSecretsManager()
	store := &secretsManagerStore{client: fake}

	if err := store.Put(context.Background(), "n8n/n8n/basic-auth", "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	in := fake.lastCreate
	if in.Description == nil || !strings.Contains(*in.Description, "n8nctl") {
		t.Errorf("CreateSecret description missing or unlabeled: %v", in.Description)
	}
	var tagged bool
	for _, tag := range in.Tags {
		if aws.ToString(tag.Key) == "managed-by" && aws.ToString(tag.Value) == "n8nctl" {
			tagged = true
		}
	}
	if !tagged {
		t.Error("CreateSecret missing managed-by tag")
	}
}

func TestSecretsManagerGetMissing(t *testing.T) {
	store := &secretsManagerStore{client: newFakeSecretsManager()}
	if _, err := store.Get(context.Background(), "n8n/n8n/absent"); err == nil {
		t.Error("expected error for missing secret")
	}
}

func TestSecretsManagerDeleteToleratesAbsence(t *testing.T) {
	store := &secretsManagerStore{client: newFakeSecretsManager()}
	if err := store.Delete(context.Background(), "n8n/n8n/absent"); err != nil {
		t.Errorf("Delete of absent secret = %v, want nil", err)
	}
}

func TestSecretsManagerDeleteRealError(t *testing.T) {
	fake := newFakeSecretsManager()
	fake.deleteErr = errors.New("access denied")
	store := &secretsManagerStore{client: fake}
	if err := store.Delete(context.Background(), "n8n/n8n/encryption-key"); err == nil {
		t.Error("expected error")
	}
}
