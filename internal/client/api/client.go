// Package api is the REST client for the KeyGuard server. It keeps the
// session token in memory and attaches the vault secret header only to the
// calls that need to encrypt or decrypt.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avorobjovs/keyguard/internal/common"
)

const vaultSecretHeader = "X-Vault-Secret"

type Client struct {
	baseURL string
	httpc   *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// IsAuthenticated reports whether a session token is held.
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// do performs one API request. vaultSecret is attached as a header when
// non-empty; in and out may be nil.
func (c *Client) do(ctx context.Context, method, path, vaultSecret string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if vaultSecret != "" {
		req.Header.Set(vaultSecretHeader, vaultSecret)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps an error response onto the shared sentinel errors so
// callers can match with errors.Is regardless of transport.
func statusError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = common.ErrValidation
	case http.StatusUnauthorized:
		kind = common.ErrUnauthorized
	case http.StatusForbidden:
		kind = common.ErrForbidden
	case http.StatusNotFound:
		kind = common.ErrNotFound
	case http.StatusConflict:
		kind = common.ErrConflict
	case http.StatusUnprocessableEntity:
		kind = common.ErrDecryption
	default:
		kind = common.ErrInternal
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

func (c *Client) SignUp(ctx context.Context, username, email, password string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/api/v1/users/signup", "", signUpRequest{
		Username: username, Email: email, Password: password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the session token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/users/login", "", loginRequest{
		Username: username, Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

// Logout drops the session token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/users/logout", "", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", "", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateCredential(ctx context.Context, vaultSecret string, input *CredentialInput) (*Credential, error) {
	var cred Credential
	if err := c.do(ctx, http.MethodPost, "/api/v1/passwords", vaultSecret, input, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *Client) ListCredentials(ctx context.Context) ([]Credential, error) {
	var creds []Credential
	if err := c.do(ctx, http.MethodGet, "/api/v1/passwords", "", nil, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

func (c *Client) GetCredential(ctx context.Context, vaultSecret, id string) (*Credential, error) {
	var cred Credential
	if err := c.do(ctx, http.MethodGet, "/api/v1/passwords/"+id, vaultSecret, nil, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *Client) UpdateCredential(ctx context.Context, vaultSecret, id string, upd *CredentialUpdate) (*Credential, error) {
	var cred Credential
	if err := c.do(ctx, http.MethodPut, "/api/v1/passwords/"+id, vaultSecret, upd, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *Client) DeleteCredential(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/passwords/"+id, "", nil, nil)
}

func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.do(ctx, http.MethodGet, "/api/v1/folders", "", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (c *Client) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	var folder Folder
	if err := c.do(ctx, http.MethodPost, "/api/v1/folders", "", folderRequest{Name: name}, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) GetFolder(ctx context.Context, id string) (*FolderDetail, error) {
	var detail FolderDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/folders/"+id, "", nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) RenameFolder(ctx context.Context, id, name string) (*Folder, error) {
	var folder Folder
	if err := c.do(ctx, http.MethodPut, "/api/v1/folders/"+id, "", folderRequest{Name: name}, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/folders/"+id, "", nil, nil)
}

func (c *Client) ListGuardians(ctx context.Context) (*GuardianOverview, error) {
	var overview GuardianOverview
	if err := c.do(ctx, http.MethodGet, "/api/v1/guardians", "", nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (c *Client) AddGuardian(ctx context.Context, email string) (*GuardianEdge, error) {
	var edge GuardianEdge
	if err := c.do(ctx, http.MethodPost, "/api/v1/guardians", "", addGuardianRequest{Email: email}, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

func (c *Client) RemoveGuardian(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/guardians/"+id, "", nil, nil)
}

// Recover resets an account password via two guardian keys. No session is
// required.
func (c *Client) Recover(ctx context.Context, email, key1, key2, newPassword string) (*RecoverResult, error) {
	var result RecoverResult
	err := c.do(ctx, http.MethodPost, "/api/v1/recover", "", recoverRequest{
		Email: email, GuardianKey1: key1, GuardianKey2: key2, NewPassword: newPassword,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
