package jwt

import (
	"clean-care-backend/internal/env"
	"fmt"
	"sync"
	"time"
)

const DefaultTokenTTL = 15 * time.Minute

var (
	secretsMu   sync.RWMutex
	roleSecrets = map[Role]string{}
)

// SetRoleSecret replaces the signing secret of role.
func SetRoleSecret(role Role, secret string) {
	secretsMu.Lock()
	defer secretsMu.Unlock()
	roleSecrets[role] = secret
}

func roleSecret(role Role) (string, bool) {
	secretsMu.RLock()
	defer secretsMu.RUnlock()
	secret, ok := roleSecrets[role]
	return secret, ok && secret != ""
}

// LoadSecrets reads the citizen and admin secrets from the environment.
func LoadSecrets() error {
	keys := map[Role]string{
		RoleCitizen: env.CitizenSecretKey,
		RoleAdmin:   env.AdminSecretKey,
	}
	for role, key := range keys {
		secret := env.Get(key)
		if secret == "" {
			return fmt.Errorf("jwt: %s is not set", key)
		}
		SetRoleSecret(role, secret)
	}
	return nil
}
