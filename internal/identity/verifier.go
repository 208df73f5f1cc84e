// Package identity verifies federated credentials against external providers.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
)

// Principal is the verified external identity returned by a provider.
type Principal struct {
	ProviderID string
	Email      string
	GivenName  string
	FamilyName string
}

// Verifier exchanges an opaque external credential for a verified principal.
type Verifier interface {
	// Verify validates the credential with the named provider. Returns
	// errs.ErrUnauthorized when the provider rejects it.
	Verify(ctx context.Context, provider, credential string) (Principal, error)
}

// HTTPVerifier validates credentials against OIDC-style tokeninfo endpoints,
// one per supported provider.
type HTTPVerifier struct {
	endpoints map[string]string
	client    *http.Client
}

// NewHTTPVerifier constructs a verifier for the given provider→endpoint map.
func NewHTTPVerifier(endpoints map[string]string) *HTTPVerifier {
	return &HTTPVerifier{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Verify posts the credential to the provider's tokeninfo endpoint.
func (v *HTTPVerifier) Verify(ctx context.Context, provider, credential string) (Principal, error) {
	endpoint, ok := v.endpoints[provider]
	if !ok {
		return Principal{}, fmt.Errorf("%w: unknown provider %q", errs.ErrValidation, provider)
	}

	form := url.Values{"id_token": {credential}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Principal{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Principal{}, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Principal{}, errs.ErrUnauthorized
	}

	var ti tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&ti); err != nil {
		return Principal{}, fmt.Errorf("tokeninfo decode: %w", err)
	}
	if ti.Sub == "" || ti.Email == "" {
		return Principal{}, errs.ErrUnauthorized
	}
	return Principal{
		ProviderID: ti.Sub,
		Email:      ti.Email,
		GivenName:  ti.GivenName,
		FamilyName: ti.FamilyName,
	}, nil
}
