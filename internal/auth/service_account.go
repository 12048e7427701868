package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dl-alexandre/drivesync/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// ParseServiceAccountKey decodes and validates a service account key
func ParseServiceAccountKey(data []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, invalidKey("failed to parse service account key: " + err.Error())
	}
	if key.Type != "service_account" {
		return nil, invalidKey("invalid service account key type: " + key.Type)
	}
	if key.ClientEmail == "" {
		return nil, invalidKey("missing client_email in service account key")
	}
	if key.PrivateKey == "" {
		return nil, invalidKey("missing private_key in service account key")
	}
	return &key, nil
}

// ServiceOptions tunes the Drive service built from a key
type ServiceOptions struct {
	Scopes []string
	// Transport wraps the authenticated transport, e.g. for request logging
	Transport func(http.RoundTripper) http.RoundTripper
	// Extra options such as option.WithEndpoint
	ClientOptions []option.ClientOption
}

// NewDriveService builds a Drive service authenticated with the service
// account key in keyJSON. It fails before any request when the key is absent
// or malformed.
func NewDriveService(ctx context.Context, keyJSON []byte, opts ServiceOptions) (*drive.Service, error) {
	if len(keyJSON) == 0 {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired, "no service account key configured").Build())
	}
	if _, err := ParseServiceAccountKey(keyJSON); err != nil {
		return nil, err
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = utils.ScopesServiceAccount
	}
	creds, err := google.CredentialsFromJSON(ctx, keyJSON, scopes...)
	if err != nil {
		return nil, invalidKey("failed to load service account credentials: " + err.Error())
	}

	clientOpts := append([]option.ClientOption{}, opts.ClientOptions...)
	if opts.Transport != nil {
		httpClient := &http.Client{
			Transport: opts.Transport(&oauth2.Transport{Source: creds.TokenSource, Base: http.DefaultTransport}),
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(httpClient))
	} else {
		clientOpts = append(clientOpts, option.WithCredentials(creds))
	}

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthClientInvalid, "failed to create Drive service: "+err.Error()).Build())
	}
	return svc, nil
}

func invalidKey(msg string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthClientInvalid, msg).Build())
}
