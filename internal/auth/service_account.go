package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/afero"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// KeyringPrefix selects a key stored in the OS keyring: "keyring:<name>"
const KeyringPrefix = "keyring:"

// Authorizer hands out a token source for the Drive API and nothing else
type Authorizer interface {
	Authorize(ctx context.Context) (oauth2.TokenSource, error)
}

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// ServiceAccountAuthorizer authorizes with a service account key given
// inline as JSON, as a file path, or as a keyring reference
type ServiceAccountAuthorizer struct {
	key    string
	fs     afero.Fs
	keys   KeyStore
	scopes []string
}

// NewServiceAccountAuthorizer creates an authorizer for key. keys may be nil
// when keyring references are not used.
func NewServiceAccountAuthorizer(key string, fs afero.Fs, keys KeyStore) *ServiceAccountAuthorizer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ServiceAccountAuthorizer{
		key:    key,
		fs:     fs,
		keys:   keys,
		scopes: []string{drive.DriveScope},
	}
}

// Authorize loads and validates the key. Errors never echo the key or the
// path it was read from.
func (a *ServiceAccountAuthorizer) Authorize(ctx context.Context) (oauth2.TokenSource, error) {
	data, source, err := a.load()
	if err != nil {
		return nil, err
	}

	var saKey ServiceAccountKey
	if err := json.Unmarshal(data, &saKey); err != nil {
		return nil, authError("service account key is not valid JSON", source)
	}
	if saKey.Type != "service_account" {
		return nil, authError("key is not a service account key", source)
	}
	if saKey.ClientEmail == "" {
		return nil, authError("missing client_email in service account key", source)
	}
	if saKey.PrivateKey == "" {
		return nil, authError("missing private_key in service account key", source)
	}

	cfg, err := google.JWTConfigFromJSON(data, a.scopes...)
	if err != nil {
		return nil, authError("service account key could not be parsed", source)
	}
	return cfg.TokenSource(ctx), nil
}

// load resolves the key and names its kind of source for error context
func (a *ServiceAccountAuthorizer) load() ([]byte, string, error) {
	key := strings.TrimSpace(a.key)
	switch {
	case key == "":
		return nil, "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeConfiguration,
			"GOOGLE_KEY is not set").Build())
	case strings.HasPrefix(key, "{"):
		return []byte(key), "inline", nil
	case strings.HasPrefix(key, KeyringPrefix):
		if a.keys == nil {
			return nil, "keyring", authError("keyring storage is not available", "keyring")
		}
		data, err := a.keys.Load(strings.TrimPrefix(key, KeyringPrefix))
		if err != nil {
			return nil, "keyring", authError("service account key not found in keyring", "keyring")
		}
		return data, "keyring", nil
	default:
		data, err := afero.ReadFile(a.fs, key)
		if err != nil {
			return nil, "file", authError("service account key file could not be read", "file")
		}
		return data, "file", nil
	}
}

func authError(msg, source string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid, msg).
		WithContext("keySource", source).
		Build())
}
