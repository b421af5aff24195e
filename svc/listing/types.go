package listing

// Roles stored in users.role.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// NeedsEscalation reports whether a user with role must become a provider
// before listing.
func NeedsEscalation(role string) bool {
	return role != RoleProvider && role != RoleAdmin
}

// Listing is a provider's submitted profile.
type Listing struct {
	Name         string   `json:"name" validate:"required"`
	Address      string   `json:"address" validate:"required"`
	PhoneContact string   `json:"phone_contact" validate:"required"`
	EmailContact string   `json:"email_contact" validate:"required,email"`
	Description  string   `json:"description,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// Result describes a created listing.
type Result struct {
	ProviderID string
	Escalated  bool
}
