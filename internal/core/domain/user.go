package domain

// unknownUser is the display name for users we never retrieved.
const unknownUser = "Unknown user"

// User is a workspace member.
type User struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
	Deleted     bool
	IsBot       bool
	TimeZone    string
}

// Username returns the name of the user with the given ID,
// or "Unknown user" when it is not present.
func Username(users map[string]User, id string) string {
	if u, ok := users[id]; ok && u.Name != "" {
		return u.Name
	}
	return unknownUser
}
