package models

// Credential is a stored vault record. Secret holds the envelope produced by
// cryptox.EncryptSecret; the plaintext never reaches the database. UserID is
// set at creation and never changes.
type Credential struct {
	ID       string
	UserID   string
	FolderID *string
	Name     string
	Username string
	Secret   string
	URL      string
	Notes    string
}

// OwnedBy reports the owning user for authorization checks.
func (c *Credential) OwnedBy() string { return c.UserID }
