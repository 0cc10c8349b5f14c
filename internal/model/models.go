package model

// All returns every model that has to be migrated
func All() []any {
	return []any{
		&User{},
		&Warning{},
		&Post{},
		&PostWarning{},
		&Comment{},
		&Token{},
		&ResendRequest{},
		&SystemMaintenance{},
		&Announcement{},
		&Update{},
		&ChatMessage{},
	}
}
