package models

// UserRecord is the presence state of one identity.
type UserRecord struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsOnline    bool   `json:"isOnline"`
	HasUnread   bool   `json:"hasUnread"`
}

// Profile is what a client announces about itself on connect.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
