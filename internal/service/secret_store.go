package service

import (
	"context"
	"fmt"

	"pressroom/internal/model"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// WebhookSecretStore holds subscription signing secrets. The row store keeps
// them on the subscription record; the Secret Manager store keeps them out of
// the database entirely for deployments that want that.
type WebhookSecretStore interface {
	Store(ctx context.Context, subscriptionID, secret string) error
	Resolve(ctx context.Context, sub *model.WebhookSubscription) (string, error)
	Delete(ctx context.Context, subscriptionID string) error
}

// rowSecretStore resolves secrets straight off the subscription row.
type rowSecretStore struct{}

// NewRowSecretStore creates the default, repository-backed secret store.
func NewRowSecretStore() WebhookSecretStore {
	return rowSecretStore{}
}

func (rowSecretStore) Store(ctx context.Context, subscriptionID, secret string) error { return nil }

func (rowSecretStore) Resolve(ctx context.Context, sub *model.WebhookSubscription) (string, error) {
	if sub.Secret == "" {
		return "", fmt.Errorf("subscription %s has no signing secret", sub.ID)
	}
	return sub.Secret, nil
}

func (rowSecretStore) Delete(ctx context.Context, subscriptionID string) error { return nil }

type gcpSecretStore struct {
	client    *secretmanager.Client
	projectID string
}

// NewGCPSecretStore creates a Secret Manager backed store. Requires a real
// GCP project even for local development.
func NewGCPSecretStore(ctx context.Context, projectID string, opts ...option.ClientOption) (WebhookSecretStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &gcpSecretStore{client: client, projectID: projectID}, nil
}

func (s *gcpSecretStore) secretName(subscriptionID string) string {
	return fmt.Sprintf("webhook-sub-%s-secret", subscriptionID)
}

func (s *gcpSecretStore) Store(ctx context.Context, subscriptionID, secret string) error {
	secretName := s.secretName(subscriptionID)
	secretPath := fmt.Sprintf("projects/%s/secrets/%s", s.projectID, secretName)

	secretExists := true
	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: secretPath})
	if err != nil {
		secretExists = false
	}

	if !secretExists {
		createReq := &secretmanagerpb.CreateSecretRequest{
			Parent:   fmt.Sprintf("projects/%s", s.projectID),
			SecretId: secretName,
			Secret: &secretmanagerpb.Secret{
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		}
		if _, err := s.client.CreateSecret(ctx, createReq); err != nil {
			return fmt.Errorf("failed to create secret: %w", err)
		}
	}

	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secretPath,
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(secret)},
	})
	if err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}
	return nil
}

func (s *gcpSecretStore) Resolve(ctx context.Context, sub *model.WebhookSubscription) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, s.secretName(sub.ID))
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

func (s *gcpSecretStore) Delete(ctx context.Context, subscriptionID string) error {
	secretPath := fmt.Sprintf("projects/%s/secrets/%s", s.projectID, s.secretName(subscriptionID))
	if err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: secretPath}); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
