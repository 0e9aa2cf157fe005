package model

type User struct {
	Identity  Identity `json:"phoneNumber"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email,omitempty"`
	Photo     string   `json:"photo,omitempty"`
	Active    bool     `json:"active"`
	ChatIDs   []string `json:"chatIds,omitempty"`
}
