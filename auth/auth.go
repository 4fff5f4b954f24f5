package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCred caches a client-credentials token and renews it when expired.
type ClientCred struct {
	conf  clientcredentials.Config
	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.toOauth2Config(),
	}
}

// GetToken returns the cached access token while it is valid and requests a
// new one otherwise.
func (c *ClientCred) GetToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	if err := c.fetch(); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

func (c *ClientCred) fetch() error {
	tok, err := c.conf.Token(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return nil
}

// Credentials returns a provider yielding username and the current access
// token as password. It is evaluated on every (re)connect. onErr receives
// token failures; the password is then empty and the broker refuses the
// connection.
func (c *ClientCred) Credentials(username string, onErr func(error)) func() (string, string) {
	return func() (string, string) {
		tok, err := c.GetToken()
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return username, ""
		}
		return username, tok
	}
}
