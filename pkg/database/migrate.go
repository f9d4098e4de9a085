package database

import (
	"github.com/mkatta/pushgate/pkg/models"
	"gorm.io/gorm"
)

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Subscription{},
		&models.SubscriptionTag{},
		&models.Notification{},
		&models.NotificationLog{},
	)
}
