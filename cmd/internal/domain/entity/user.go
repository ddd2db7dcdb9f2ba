package entity

type User struct {
	ID            int    `gorm:"primaryKey"`
	SubUUID       string `gorm:"uniqueIndex;not null"` // Cognito subject
	Username      string `gorm:"not null"`
	Email         string `gorm:"uniqueIndex;not null"`
	EmailVerified bool   `gorm:"not null"`
	CreatedAt     int64  `gorm:"not null"`
	UpdatedAt     int64  `gorm:"not null"`
}
