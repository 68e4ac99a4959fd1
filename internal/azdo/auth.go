package azdo

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// AuthMethod selects how the Builder obtains credentials. Exactly one method
// is tried; there is no fallback chain.
type AuthMethod string

const (
	AuthMethodPAT           AuthMethod = "pat"
	AuthMethodAzureIdentity AuthMethod = "azure-identity"
	AuthMethodAzureCLI      AuthMethod = "azure-cli"
)

// ResourceScope is the token audience for Azure DevOps.
const ResourceScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

// ParseAuthMethod parses a configured method name, case-insensitively.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch m := AuthMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case AuthMethodPAT, AuthMethodAzureIdentity, AuthMethodAzureCLI:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported authentication method %q", s)
	}
}

// AuthConfig describes how to authenticate to one organization. It is
// supplied once at startup and never changed.
type AuthConfig struct {
	Method          AuthMethod
	OrganizationURL string
	// PersonalAccessToken is required when Method is AuthMethodPAT.
	PersonalAccessToken string
}

// CredentialFactory builds the token credential for an identity-based method.
type CredentialFactory func(method AuthMethod) (azcore.TokenCredential, error)

// DefaultCredentialFactory uses the ambient platform identity chain for
// AuthMethodAzureIdentity and the local Azure CLI for AuthMethodAzureCLI.
func DefaultCredentialFactory(method AuthMethod) (azcore.TokenCredential, error) {
	switch method {
	case AuthMethodAzureIdentity:
		return azidentity.NewDefaultAzureCredential(nil)
	case AuthMethodAzureCLI:
		return azidentity.NewAzureCLICredential(nil)
	default:
		return nil, fmt.Errorf("no token credential for method %q", method)
	}
}

// basicAuthHeader builds the header for a personal access token. No network
// call is involved.
func basicAuthHeader(pat string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat))
}

// bearerAuthHeader acquires a token scoped to Azure DevOps from cred.
func bearerAuthHeader(ctx context.Context, cred azcore.TokenCredential) (string, error) {
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{ResourceScope}})
	if err != nil {
		return "", err
	}
	if tok.Token == "" {
		return "", fmt.Errorf("failed to acquire token for Azure DevOps")
	}
	return "Bearer " + tok.Token, nil
}
