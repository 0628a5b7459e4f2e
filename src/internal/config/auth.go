// FILE: src/internal/config/auth.go
package config

import "fmt"

type AuthConfig struct {
	// Authentication type: "none", "basic", "bearer"
	Type string `toml:"type" yaml:"type"`

	// Basic auth
	BasicAuth *BasicAuthConfig `toml:"basic_auth" yaml:"basic_auth"`

	// Bearer token auth
	BearerAuth *BearerAuthConfig `toml:"bearer_auth" yaml:"bearer_auth"`
}

type BasicAuthConfig struct {
	// Static users (for simple deployments)
	Users []BasicAuthUser `toml:"users" yaml:"users"`

	// External auth file
	UsersFile string `toml:"users_file" yaml:"users_file"`

	// Realm for WWW-Authenticate header
	Realm string `toml:"realm" yaml:"realm"`
}

type BasicAuthUser struct {
	Username string `toml:"username" yaml:"username"`
	// Password hash (bcrypt)
	PasswordHash string `toml:"password_hash" yaml:"password_hash"`
}

type BearerAuthConfig struct {
	// Static tokens
	Tokens []string `toml:"tokens" yaml:"tokens"`

	// JWT validation
	JWT *JWTConfig `toml:"jwt" yaml:"jwt"`
}

type JWTConfig struct {
	// Static signing key
	SigningKey string `toml:"signing_key" yaml:"signing_key"`

	// Expected issuer
	Issuer string `toml:"issuer" yaml:"issuer"`

	// Expected audience
	Audience string `toml:"audience" yaml:"audience"`
}

func validateAuth(surface string, auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	validTypes := map[string]bool{"none": true, "basic": true, "bearer": true}
	if !validTypes[auth.Type] {
		return fmt.Errorf("%s: invalid auth type: %s", surface, auth.Type)
	}

	if auth.Type == "basic" && auth.BasicAuth == nil {
		return fmt.Errorf("%s: basic auth type specified but config missing", surface)
	}

	if auth.Type == "bearer" && auth.BearerAuth == nil {
		return fmt.Errorf("%s: bearer auth type specified but config missing", surface)
	}

	return nil
}
