package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

var testDBSeq atomic.Int64

// useTestDB points database.C at a fresh in-memory store.
func useTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:voxlink_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	source, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := database.RunMigration(source); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	database.C = source
	SetupRefResolvers()
}

func seedServer(t *testing.T, name string) models.Server {
	t.Helper()
	server := models.Server{Name: name, Host: "127.0.0.1", Port: 5038}
	if err := database.C.Create(&server).Error; err != nil {
		t.Fatalf("seeding server: %v", err)
	}
	return server
}

func seedPbxUser(t *testing.T, server models.Server, userID uint, exten, channel string) models.PbxUser {
	t.Helper()
	pbxUser := models.PbxUser{
		UserID:            userID,
		ServerID:          server.ID,
		Name:              fmt.Sprintf("User %d", userID),
		Exten:             exten,
		MissedCallsNotify: true,
	}
	if err := database.C.Create(&pbxUser).Error; err != nil {
		t.Fatalf("seeding pbx user: %v", err)
	}
	binding := models.UserChannel{PbxUserID: pbxUser.ID, Name: channel, OriginateEnabled: true}
	if err := database.C.Create(&binding).Error; err != nil {
		t.Fatalf("seeding user channel: %v", err)
	}
	return pbxUser
}

func seedContact(t *testing.T, name, phone string) models.Contact {
	t.Helper()
	contact := models.Contact{Name: name, Phone: phone, PhoneNormalized: NormalizeNumber(phone)}
	if err := database.C.Create(&contact).Error; err != nil {
		t.Fatalf("seeding contact: %v", err)
	}
	return contact
}

func countMessages(t *testing.T, ref models.Ref) int64 {
	t.Helper()
	var count int64
	if err := database.C.Model(&models.Message{}).
		Where("ref_kind = ? AND ref_id = ?", ref.Kind, ref.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("counting messages: %v", err)
	}
	return count
}
