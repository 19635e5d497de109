package domain

import "time"

// User is the registered owner of one or more accounts. Registration and
// identity live outside this core; only the id is used for ownership checks.
type User struct {
	ID           int64
	Name         string
	RegisteredAt time.Time
}
