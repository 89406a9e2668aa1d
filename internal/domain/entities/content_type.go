package entities

import "time"

// ContentType groups the property types of entities of one kind.
// Entities refer to it by Alias.
type ContentType struct {
	Alias     string     `json:"alias"`
	Kind      EntityKind `json:"kind"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}
