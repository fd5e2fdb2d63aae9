package database

import (
	"github.com/voxlink/voxlink/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Server{},
	&models.PbxUser{},
	&models.UserChannel{},
	&models.Contact{},
	&models.Tag{},
	&models.Channel{},
	&models.Call{},
	&models.CallEvent{},
	&models.Message{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
