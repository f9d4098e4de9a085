package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is what every repository returns for a missing row, so
// handlers can map it to 404 without knowing about gorm.
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
