package models

// Folder groups credentials for one user. It has no security-relevant
// behavior beyond ownership; a folder is deleted automatically when its last
// credential is removed or moved away.
type Folder struct {
	ID     string
	UserID string
	Name   string
}

// OwnedBy reports the owning user for authorization checks.
func (f *Folder) OwnedBy() string { return f.UserID }
