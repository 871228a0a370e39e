package models

import "time"

// User repräsentiert einen Benutzer, dem Submissions gehören.
// Authentifizierung und Credential-Speicherung liegen beim externen
// Identity-Provider; hier nur die Stammdaten.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Name  string `json:"name" gorm:"not null"`
	Email string `json:"email" gorm:"uniqueIndex;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (User) TableName() string {
	return "users"
}
