package entity

// Event is a time-boxed calendar entry. BeginsAt/EndsAt are UTC epoch
// millis forming the half-open interval [BeginsAt, EndsAt).
type Event struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description *string
	BeginsAt    int64  `gorm:"not null;index"`
	EndsAt      int64  `gorm:"not null"`
	Color       string `gorm:"not null"`
	UserID      int    `gorm:"not null;index"` // References: users(id)
	CreatedAt   int64  `gorm:"not null"`
	UpdatedAt   int64  `gorm:"not null"`

	// Relations
	Owner User `gorm:"foreignKey:UserID;references:ID"`
}
