package domain

// TokenRole names a token store partition. Each role owns one access and
// one refresh slot in the cache.
type TokenRole string

const (
	RolePublisher  TokenRole = "publisher"
	RoleSubscriber TokenRole = "subscriber"
)

// Roles lists every known partition, in lookup order.
var Roles = []TokenRole{RolePublisher, RoleSubscriber}

// Valid reports whether the role maps to a known partition.
func (r TokenRole) Valid() bool {
	return r == RolePublisher || r == RoleSubscriber
}

// AccessRecord is the value cached in a role's access-token slot.
type AccessRecord struct {
	Username    string    `json:"username"`
	Role        TokenRole `json:"role"`
	AccessToken string    `json:"access_token"`
}

// RefreshRecord is the value cached in a role's refresh-token slot. It
// expires independently of the access record.
type RefreshRecord struct {
	Username     string    `json:"username"`
	Role         TokenRole `json:"role"`
	RefreshToken string    `json:"refresh_token"`
}

// Principal is the authenticated identity attributed to a request.
type Principal struct {
	Username string
	Role     TokenRole
}
