package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// GSMAccessor reads secret payloads from Google Secret Manager. It satisfies
// config.SecretAccessor; references that are not manager paths never reach
// it.
type GSMAccessor struct {
	client *secretmanager.Client
}

func NewGSMAccessor(ctx context.Context) (*GSMAccessor, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &GSMAccessor{client: client}, nil
}

func (a *GSMAccessor) AccessSecret(ctx context.Context, name string) (string, error) {
	resp, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("access secret version %q: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (a *GSMAccessor) Close() error {
	return a.client.Close()
}
