package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// secretsManagerAPI is the slice of the Secrets Manager client the store
// uses, extracted for tests.
type secretsManagerAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// secretsManagerStore stores deployment secrets in AWS Secrets Manager.
type secretsManagerStore struct {
	client secretsManagerAPI
}

func newSecretsManagerStore(ctx context.Context, profile, region string) (SecretStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithSharedConfigProfile(profile),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &secretsManagerStore{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// Put creates the secret or, when it already exists, writes a new version.
// New secrets carry a description and a managed-by tag so they can be told
// apart from hand-made entries in the console.
func (s *secretsManagerStore) Put(ctx context.Context, name, value string) error {
	_, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
		Description:  aws.String("Managed by n8nctl; deleted by 'n8nctl teardown'"),
		Tags: []smtypes.Tag{
			{Key: aws.String("managed-by"), Value: aws.String("n8nctl")},
		},
	})
	if err == nil {
		return nil
	}

	var exists *smtypes.ResourceExistsException
	if !errors.As(err, &exists) {
		return fmt.Errorf("failed to create secret %s: %w", name, err)
	}
	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		return fmt.Errorf("failed to update secret %s: %w", name, err)
	}
	return nil
}

func (s *secretsManagerStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return *out.SecretString, nil
}

// Delete removes the secret immediately. Recovery windows would block a
// redeploy under the same cluster name.
func (s *secretsManagerStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(name),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete secret %s: %w", name, err)
	}
	return nil
}
