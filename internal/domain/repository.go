package domain

// Repository represents the git repository being observed.
type Repository struct {
	Owner     string
	Name      string
	Host      string
	RemoteURL string
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
