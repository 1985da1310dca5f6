package member

import "time"

// Field names a member attribute an operator picks a source for when merging.
type Field string

const (
	FieldDisplayName  Field = "displayName"
	FieldLogin        Field = "login"
	FieldProfileURL   Field = "profileUrl"
	FieldChatID       Field = "chatId"
	FieldChatHandle   Field = "chatHandle"
	FieldRole         Field = "role"
	FieldVIP          Field = "vip"
	FieldBadges       Field = "badges"
	FieldDescription  Field = "description"
	FieldBio          Field = "bio"
	FieldSiteUsername Field = "siteUsername"
	FieldListID       Field = "listId"
)

// MergeFields lists every field a merge can select.
var MergeFields = []Field{
	FieldDisplayName, FieldLogin, FieldProfileURL, FieldChatID, FieldChatHandle, FieldRole,
	FieldVIP, FieldBadges, FieldDescription, FieldBio, FieldSiteUsername, FieldListID,
}

// ValidField reports whether f can be selected in a merge.
func ValidField(f Field) bool {
	for _, known := range MergeFields {
		if f == known {
			return true
		}
	}
	return false
}

// CopyField sets field f of dst to the value held by src.
func CopyField(dst, src *Member, f Field) {
	switch f {
	case FieldDisplayName:
		dst.DisplayName = src.DisplayName
	case FieldLogin:
		dst.Login = src.Login
		dst.PlatformID = src.PlatformID
	case FieldProfileURL:
		dst.ProfileURL = src.ProfileURL
	case FieldChatID:
		dst.ChatID = src.ChatID
	case FieldChatHandle:
		dst.ChatHandle = src.ChatHandle
	case FieldRole:
		dst.Role = src.Role
	case FieldVIP:
		dst.VIP = src.VIP
	case FieldBadges:
		dst.Badges = append([]string(nil), src.Badges...)
	case FieldDescription:
		dst.Description = src.Description
	case FieldBio:
		dst.Bio = src.Bio
	case FieldSiteUsername:
		dst.SiteUsername = src.SiteUsername
	case FieldListID:
		dst.ListID = src.ListID
	}
}

// DuplicateGroup is a suspected duplicate set computed from the live directory.
type DuplicateGroup struct {
	Key     string   `json:"key"`
	KeyType string   `json:"keyType"`
	Members []Member `json:"members"`
}

// MergeInput selects, per field, which of Logins holds the value to keep.
// Fields without a selection take the value of the member owning MergedLogin.
type MergeInput struct {
	Logins      []string         `json:"logins"`
	MergedLogin string           `json:"mergedLogin"`
	Selections  map[Field]string `json:"selections,omitempty"`
}

// MergeResult describes the surviving record and what was folded into it.
type MergeResult struct {
	Member           Member   `json:"member"`
	RemovedLogins    []string `json:"removedLogins"`
	MovedEvaluations int      `json:"movedEvaluations"`
	Partial          bool     `json:"partial,omitempty"`
}

// UpdateInput carries an admin edit. Nil fields are left untouched and any
// edit sets the manual-override flag.
type UpdateInput struct {
	DisplayName  *string   `json:"displayName,omitempty"`
	ProfileURL   *string   `json:"profileUrl,omitempty"`
	ChatID       *string   `json:"chatId,omitempty"`
	ChatHandle   *string   `json:"chatHandle,omitempty"`
	Role         *Role     `json:"role,omitempty"`
	VIP          *bool     `json:"vip,omitempty"`
	Active       *bool     `json:"active,omitempty"`
	Badges       *[]string `json:"badges,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	SiteUsername *string   `json:"siteUsername,omitempty"`
	ListID       *int      `json:"listId,omitempty"`
}

// EventMerged is the type of the event published after a merge.
const EventMerged = "member.merged"

// MergeEvent is the webhook payload describing a completed merge.
type MergeEvent struct {
	Type          string           `json:"type"`
	MergedLogin   string           `json:"mergedLogin"`
	RemovedLogins []string         `json:"removedLogins"`
	Selections    map[Field]string `json:"selections,omitempty"`
	Actor         string           `json:"actor,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
	// Partial is set when the directory merge committed but moving the
	// evaluation rows failed.
	Partial bool `json:"partial,omitempty"`
}
