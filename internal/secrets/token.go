package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service groups the engine's secrets in the OS keychain.
	KeyringService = "leaddesk"
)

var ErrTokenNotFound = errors.New("API token not found (set it with `engine token set`)")

// TokenAccount is the keychain account the bearer token for account is
// stored under.
func TokenAccount(account string) string {
	return fmt.Sprintf("leaddesk:token:%s", strings.TrimSpace(account))
}

func GetToken(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	tok, err := keyring.Get(KeyringService, TokenAccount(account))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if strings.TrimSpace(tok) == "" {
		return "", ErrTokenNotFound
	}
	return tok, nil
}

func SetToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	token = strings.TrimPrefix(token, "Bearer ")
	return keyring.Set(KeyringService, TokenAccount(account), token)
}

func DeleteToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, TokenAccount(account))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrTokenNotFound
	}
	return err
}

// Source returns a token getter for the backend client. A missing token is
// not an error there: requests go out unauthenticated and the backend
// answers 401.
func Source(account func() string) func() (string, error) {
	return func() (string, error) {
		tok, err := GetToken(account())
		if errors.Is(err, ErrTokenNotFound) {
			return "", nil
		}
		return tok, err
	}
}
