package model

import "github.com/google/uuid"

// Customer and Vehicle are directory records owned by the directory
// service. This core reads them by id to validate references and never
// mutates them.

type Customer struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
	Disabled bool      `json:"disabled"`
}

type Vehicle struct {
	ID       uuid.UUID `json:"id"`
	Plate    string    `json:"plate"`
	Make     string    `json:"make"`
	Model    string    `json:"model"`
	Disabled bool      `json:"disabled"`
}
