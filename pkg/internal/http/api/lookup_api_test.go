package api

import (
	"fmt"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

var testDBSeq atomic.Int64

func setupLookupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:voxlink_api_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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

	server := models.Server{Name: "pbx-test", Host: "127.0.0.1", Port: 5038}
	if err := database.C.Create(&server).Error; err != nil {
		t.Fatalf("seeding server: %v", err)
	}
	managerUser := models.PbxUser{
		UserID:   3,
		ServerID: server.ID,
		Name:     "Alice",
		Exten:    "101010",
	}
	if err := database.C.Create(&managerUser).Error; err != nil {
		t.Fatalf("seeding pbx user: %v", err)
	}
	tag := models.Tag{Name: "vip"}
	if err := database.C.Create(&tag).Error; err != nil {
		t.Fatalf("seeding tag: %v", err)
	}
	contact := models.Contact{
		Name:            "Test Partner",
		Phone:           "10101",
		PhoneNormalized: "10101",
		Tags:            []models.Tag{tag},
	}
	manager := uint(3)
	contact.ManagerID = &manager
	if err := database.C.Create(&contact).Error; err != nil {
		t.Fatalf("seeding contact: %v", err)
	}

	app := fiber.New()
	MapAPIs(app, "/api")
	return app
}

func fetch(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	res, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(body)
}

func TestLookupCallerName(t *testing.T) {
	app := setupLookupApp(t)
	viper.Set("lookup.permit_ips", "")

	status, body := fetch(t, app, "/api/lookup/caller_name?number=10101")
	if status != fiber.StatusOK || body != "Test Partner" {
		t.Fatalf("caller_name = %d %q, want 200 %q", status, body, "Test Partner")
	}

	status, body = fetch(t, app, "/api/lookup/caller_name?number=10101999")
	if status != fiber.StatusOK || body != "" {
		t.Fatalf("unknown number = %d %q, want 200 and empty body", status, body)
	}

	status, _ = fetch(t, app, "/api/lookup/caller_name")
	if status != fiber.StatusBadRequest {
		t.Fatalf("missing number = %d, want 400", status)
	}
}

func TestLookupForbiddenAddress(t *testing.T) {
	app := setupLookupApp(t)
	viper.Set("lookup.permit_ips", "45.46.47.1")
	defer viper.Set("lookup.permit_ips", "")

	status, _ := fetch(t, app, "/api/lookup/caller_name?number=10101")
	if status != fiber.StatusForbidden {
		t.Fatalf("unpermitted address = %d, want 403", status)
	}
}

func TestLookupPartnerManager(t *testing.T) {
	app := setupLookupApp(t)
	viper.Set("lookup.permit_ips", "")

	status, body := fetch(t, app, "/api/lookup/partner_manager?number=10101")
	if status != fiber.StatusOK || body != "101010" {
		t.Fatalf("partner_manager = %d %q, want the manager's extension 101010", status, body)
	}

	status, body = fetch(t, app, "/api/lookup/partner_manager?number=10101999")
	if status != fiber.StatusOK || body != "" {
		t.Fatalf("unknown number = %d %q, want 200 and empty body", status, body)
	}
}

func TestLookupPartnerManagerWithoutBinding(t *testing.T) {
	app := setupLookupApp(t)
	viper.Set("lookup.permit_ips", "")

	contact := models.Contact{
		Name:            "Orphan Partner",
		Phone:           "20202",
		PhoneNormalized: "20202",
	}
	unbound := uint(77)
	contact.ManagerID = &unbound
	if err := database.C.Create(&contact).Error; err != nil {
		t.Fatalf("seeding contact: %v", err)
	}

	status, body := fetch(t, app, "/api/lookup/partner_manager?number=20202")
	if status != fiber.StatusOK || body != "" {
		t.Fatalf("manager without binding = %d %q, want 200 and empty body", status, body)
	}
}

func TestLookupCallerTags(t *testing.T) {
	app := setupLookupApp(t)
	viper.Set("lookup.permit_ips", "")

	status, body := fetch(t, app, "/api/lookup/caller_tags?number=10101")
	if status != fiber.StatusOK || body != "vip" {
		t.Fatalf("caller_tags = %d %q, want 200 vip", status, body)
	}
}
