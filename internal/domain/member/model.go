package member

import "time"

// Role is the member's position in the community.
type Role string

const (
	RoleAffiliate  Role = "affiliate"
	RoleDeveloping Role = "developing"
	RoleModerator  Role = "moderator"
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
	RoleCommunity  Role = "community"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAffiliate, RoleDeveloping, RoleModerator, RoleStaff, RoleAdmin, RoleCommunity:
		return true
	}
	return false
}

// Member is the identity record of one community member. Login is the stable
// join key and is stored lowercase.
type Member struct {
	Login          string    `json:"login"`
	DisplayName    string    `json:"displayName"`
	PlatformID     string    `json:"platformId,omitempty"`
	ProfileURL     string    `json:"profileUrl,omitempty"`
	ChatID         string    `json:"chatId,omitempty"`
	ChatHandle     string    `json:"chatHandle,omitempty"`
	Role           Role      `json:"role"`
	VIP            bool      `json:"vip"`
	Active         bool      `json:"active"`
	Badges         []string  `json:"badges,omitempty"`
	Description    string    `json:"description,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	SiteUsername   string    `json:"siteUsername,omitempty"`
	ListID         int       `json:"listId,omitempty"`
	ManualOverride bool      `json:"manualOverride"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateInput carries the fields accepted when adding a member by hand.
type CreateInput struct {
	Login       string   `json:"login"`
	DisplayName string   `json:"displayName"`
	PlatformID  string   `json:"platformId,omitempty"`
	ChatID      string   `json:"chatId,omitempty"`
	ChatHandle  string   `json:"chatHandle,omitempty"`
	Role        Role     `json:"role,omitempty"`
	VIP         bool     `json:"vip"`
	Badges      []string `json:"badges,omitempty"`
}
