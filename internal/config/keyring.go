package config

import (
	"fmt"

	"github.com/zalando/go-keyring"

	"sparkload/pkg/errors"
	"sparkload/pkg/models"
)

// KeyringService is the OS keyring service passwords are stored under.
const KeyringService = "sparkload"

// KeyringAccount names the keyring entry for a user on an endpoint.
func KeyringAccount(user, endpoint string) string {
	return fmt.Sprintf("%s@%s", user, endpoint)
}

// KeyringAccountFor names the entry for a configuration: the user on the
// host for redshift, on the account for snowflake.
func KeyringAccountFor(c *models.Config) string {
	endpoint := c.Cluster.Host
	if endpoint == "" {
		endpoint = c.Warehouse.Account
	}
	return KeyringAccount(c.Cluster.DBUser, endpoint)
}

// StorePassword saves a password in the OS keyring for the configured
// user and endpoint.
func StorePassword(c *models.Config, password string) error {
	account := KeyringAccountFor(c)
	if err := keyring.Set(KeyringService, account, password); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to store password in keyring").
			WithContext("account", account)
	}
	return nil
}

// ResolvePassword returns the password to connect with. Environment
// overrides are already applied by Load; ENC[...] values are decrypted;
// an empty value is looked up in the OS keyring.
func ResolvePassword(c *models.Config) (string, error) {
	password := c.Cluster.DBPassword
	if IsEncrypted(password) {
		return DecryptPassword(password)
	}
	if password != "" || c.Cluster.DBUser == "" {
		return password, nil
	}

	account := KeyringAccountFor(c)
	secret, err := keyring.Get(KeyringService, account)
	if err != nil {
		// A missing entry or keyring backend leaves the password unset
		return "", nil
	}
	return secret, nil
}
