package config

import (
	"context"
	"fmt"
	"strings"
)

// SecretAccessor fetches secret payloads from an external manager. References
// shaped like projects/<p>/secrets/<name>/versions/<v> are routed here; any
// other reference is treated as a literal value, which keeps local dev and
// tests free of manager round trips.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) (string, error)
}

const managedSecretPrefix = "projects/"

// NeedsSecretManager reports whether any configured reference points at the
// secret manager, so binaries only dial it when required.
func (c Config) NeedsSecretManager() bool {
	refs := []string{
		c.PlayHQAPIKeyRef,
		c.IDBundleRef,
		c.InternalBearerRef,
		c.LLMAPIKeyRef,
		c.PlayHQPrivateTokenRef,
		c.WebhookSecretRef,
	}
	for _, ref := range refs {
		if strings.HasPrefix(ref, managedSecretPrefix) {
			return true
		}
	}
	return false
}

func resolveSecret(ctx context.Context, accessor SecretAccessor, ref string) (string, error) {
	if !strings.HasPrefix(ref, managedSecretPrefix) {
		return ref, nil
	}
	if accessor == nil {
		return "", fmt.Errorf("secret %q requires a secret accessor", ref)
	}

	value, err := accessor.AccessSecret(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("access secret %q: %w", ref, err)
	}

	return strings.TrimSpace(value), nil
}

// ResolveSecrets resolves every secret reference in place and validates that
// the set required by the configured mode is present. All missing settings
// are reported in one error so operators fix the deployment in one pass.
func (c *Config) ResolveSecrets(ctx context.Context, accessor SecretAccessor) error {
	var problems []string

	required := []struct {
		ref  string
		env  string
		dest *string
	}{
		{c.PlayHQAPIKeyRef, "PLAYHQ_API_KEY_REF", &c.PlayHQAPIKey},
		{c.InternalBearerRef, "INTERNAL_BEARER_REF", &c.InternalBearerToken},
	}
	if c.IsPrivate() {
		required = append(required,
			struct {
				ref  string
				env  string
				dest *string
			}{c.PlayHQPrivateTokenRef, "PLAYHQ_PRIVATE_TOKEN_REF", &c.PlayHQPrivateToken},
			struct {
				ref  string
				env  string
				dest *string
			}{c.WebhookSecretRef, "WEBHOOK_HMAC_SECRET_REF", &c.WebhookSecret},
		)
	}

	for _, item := range required {
		if item.ref == "" {
			problems = append(problems, fmt.Sprintf("%s is required", item.env))
			continue
		}
		value, err := resolveSecret(ctx, accessor, item.ref)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if value == "" {
			problems = append(problems, fmt.Sprintf("%s resolved to an empty value", item.env))
			continue
		}
		*item.dest = value
	}

	// The LLM key is optional: without it the service answers from snippets
	// and lexical retrieval only, with RAG disabled.
	if c.LLMAPIKeyRef != "" {
		if value, err := resolveSecret(ctx, accessor, c.LLMAPIKeyRef); err != nil {
			problems = append(problems, err.Error())
		} else {
			c.LLMAPIKey = value
		}
	}

	if c.IDBundleRef == "" {
		problems = append(problems, "IDS_BUNDLE_REF is required")
	} else if raw, err := resolveSecret(ctx, accessor, c.IDBundleRef); err != nil {
		problems = append(problems, err.Error())
	} else if bundle, err := ParseIdentifierBundle(raw); err != nil {
		problems = append(problems, err.Error())
	} else {
		c.IDBundle = bundle
	}

	if len(problems) > 0 {
		return fmt.Errorf("resolve secrets: %s", strings.Join(problems, "; "))
	}

	return nil
}
