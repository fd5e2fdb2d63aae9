package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/voxlink/voxlink/pkg/internal/ami"
	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

var (
	managerMutex sync.Mutex
	managers     = make(map[uint]*ami.Client)
)

// BootstrapServers seeds the server table from the settings file. Rows
// are matched by name so credentials can be rotated in place.
func BootstrapServers() error {
	var entries []struct {
		Name     string `mapstructure:"name"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Secret   string `mapstructure:"secret"`
	}
	if err := viper.UnmarshalKey("servers", &entries); err != nil {
		return err
	}

	for _, entry := range entries {
		var server models.Server
		tx := database.C.Where(&models.Server{Name: entry.Name}).First(&server)
		server.Name = entry.Name
		server.Host = entry.Host
		server.Port = entry.Port
		server.Username = entry.Username
		server.Secret = entry.Secret
		server.AutoConnect = true
		if tx.Error != nil {
			if err := database.C.Create(&server).Error; err != nil {
				return err
			}
		} else if err := database.C.Save(&server).Error; err != nil {
			return err
		}
	}
	return nil
}

// StartServers spawns one manager session per auto-connect server.
// Every session pumps its events serially into HandleEvent.
func StartServers(ctx context.Context) error {
	var servers []models.Server
	if err := database.C.Where(&models.Server{AutoConnect: true}).Find(&servers).Error; err != nil {
		return err
	}

	for _, server := range servers {
		server := server
		client := ami.NewClient(ami.Config{
			Host:     server.Host,
			Port:     server.Port,
			Username: server.Username,
			Secret:   server.Secret,
		}, func(event ami.Event) {
			HandleEvent(server, event)
		})

		managerMutex.Lock()
		managers[server.ID] = client
		managerMutex.Unlock()

		go client.Run(ctx)
	}
	return nil
}

func ManagerClient(serverID uint) (*ami.Client, error) {
	managerMutex.Lock()
	defer managerMutex.Unlock()
	client, ok := managers[serverID]
	if !ok {
		return nil, fmt.Errorf("no manager session for server #%d", serverID)
	}
	return client, nil
}

// HandleEvent routes one manager event into the trackers. Errors stay
// scoped to the event: one unmatched or malformed frame never blocks
// the ones behind it.
func HandleEvent(server models.Server, event ami.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("event", event.Name()).
				Msg("Recovered from event handler panic.")
		}
	}()

	var err error
	switch event.Name() {
	case "Newchannel":
		_, err = OnNewChannel(server, event)
	case "Newstate":
		_, err = OnNewState(server, event)
	case "Hangup":
		_, err = OnHangup(server, event)
	case "OriginateResponse":
		_, err = OnOriginateFailure(server, event)
	default:
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("event", event.Name()).Str("server", server.Name).
			Msg("An error occurred when handling manager event.")
	}
}
