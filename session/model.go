package session

// UserRole is the role block of an authenticated user as returned by the API.
type UserRole struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Code string `json:"code" bson:"code"`
}

// User is the authenticated principal held by the store.
type User struct {
	ID             string   `json:"id" bson:"id"`
	Email          string   `json:"email" bson:"email"`
	FullName       string   `json:"fullName" bson:"full_name"`
	OrganizationID string   `json:"organizationId" bson:"organization_id"`
	Role           UserRole `json:"role" bson:"role"`
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// State is a point-in-time copy of a Store. An empty Token means no token.
type State struct {
	Token      string `json:"token"`
	User       *User  `json:"user"`
	IsHydrated bool   `json:"isHydrated"`
}

// Authenticated reports whether s carries a token.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Record is the durable copy of a session. It never carries the hydration flag.
type Record struct {
	Token string
	User  *User
}
