package auth

import (
	"context"
	"net/http"

	"github.com/dl-alexandre/gitdrive/internal/utils"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewDriveService authorizes, fetches a first token and builds a Drive
// client. base, when set, is the transport under the OAuth2 layer (e.g. the
// debug transport).
func NewDriveService(ctx context.Context, a Authorizer, base http.RoundTripper) (*drive.Service, error) {
	ts, err := a.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := FetchToken(ts); err != nil {
		return nil, err
	}

	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base},
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
			"failed to create Drive client").Build(), err)
	}
	return svc, nil
}

// FetchToken asks ts for a token. A refusal by the token endpoint is an
// AUTH_ERROR; its response is left out since it may quote the assertion.
func FetchToken(ts oauth2.TokenSource) (*oauth2.Token, error) {
	token, err := ts.Token()
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
			"service account could not obtain an access token").Build())
	}
	return token, nil
}
