package repository

import (
	"errors"

	"agendo/cmd/internal/domain/entity"
	"gorm.io/gorm"
)

type DefaultEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *DefaultEventRepository {
	return &DefaultEventRepository{db: db}
}

func (e *DefaultEventRepository) FindByID(id string) (*entity.Event, error) {
	var event entity.Event
	err := e.db.First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &event, err
}

// FindByUserID returns the user's committed events ordered by start time,
// which is the order every view and the overlap scan expect.
func (e *DefaultEventRepository) FindByUserID(userID int) ([]*entity.Event, error) {
	var events []*entity.Event
	err := e.db.Where("user_id = ?", userID).Order("begins_at asc").Find(&events).Error
	return events, err
}

func (e *DefaultEventRepository) Save(event *entity.Event) error {
	return e.db.Save(event).Error
}

func (e *DefaultEventRepository) Delete(event *entity.Event) error {
	return e.db.Delete(event).Error
}

// Replace removes the given event ids and writes the candidate in one
// transaction, so a failed write never leaves the conflict set half-deleted.
func (e *DefaultEventRepository) Replace(removeIDs []string, event *entity.Event) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		if len(removeIDs) > 0 {
			if err := tx.Delete(&entity.Event{}, "id IN ?", removeIDs).Error; err != nil {
				return err
			}
		}
		return tx.Save(event).Error
	})
}
