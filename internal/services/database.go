package services

// ProfileStore resolves display names from user profiles.
type ProfileStore interface {
	// Username returns userID itself when no profile exists.
	Username(userID string) string
}
