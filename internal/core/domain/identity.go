package domain

// Identity is the workspace and user a token belongs to.
type Identity struct {
	Team   string
	TeamID string
	User   string
	UserID string
	URL    string
}
