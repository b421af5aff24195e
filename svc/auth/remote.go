package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteVerifier asks the identity service who owns a token.
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRemoteVerifier(baseURL, apiKey string, client *http.Client) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errors.Join(ErrUnauthenticated, ErrMissingToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Identity{}, errors.Join(ErrUnauthenticated, fmt.Errorf("identity service returned %d", resp.StatusCode))
	}

	var u remoteUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	if u.ID == "" {
		return Identity{}, errors.Join(ErrUnauthenticated, errors.New("identity service returned no user id"))
	}

	return Identity{UserID: u.ID, Email: u.Email}, nil
}
