package jwt

type Role int

const (
	RoleCitizen Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleCitizen:
		return "citizen"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Identity is the authenticated caller carried by an access token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"-"`
}
