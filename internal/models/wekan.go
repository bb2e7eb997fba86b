package models

// Wekan wire shapes. Wekan identifies everything by the "_id" field it
// assigns on creation; the id is the sole key for all follow-up
// operations against a board.

type Board struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type List struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

type Card struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

type Swimlane struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// LoginResponse is the body of POST /users/login.
type LoginResponse struct {
	Token        string `json:"token"`
	ID           string `json:"id"`
	TokenExpires string `json:"tokenExpires"`
}
