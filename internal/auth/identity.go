package auth

import "strconv"

// Identity is the provisioned user bound to an authenticated connection.
type Identity struct {
	UserID         uint   `json:"userId"`
	ExternalAuthID string `json:"externalAuthId"`
	Email          string `json:"email"`
}

// UserKey is the user id in the string form used for presence keys.
func (i Identity) UserKey() string {
	return strconv.FormatUint(uint64(i.UserID), 10)
}

// ExternalIdentity is what the identity authority vouches for.
type ExternalIdentity struct {
	Subject string
	Email   string
}
