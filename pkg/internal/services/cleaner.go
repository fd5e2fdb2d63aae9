package services

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

// DeleteCalls drops calls whose end is past the retention window.
// Each deletion is independent, the sweep may stop between rows.
func DeleteCalls() {
	days := viper.GetInt("retention.calls_keep_days")
	if days <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	tx := database.C.Unscoped().
		Where("ended <= ?", cutoff).
		Delete(&models.Call{})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when deleting expired calls...")
		return
	}
	log.Info().Int64("affected", tx.RowsAffected).Msg("Expired calls cleaned up.")
}

// DeleteChannels drops terminal channels past the retention window.
func DeleteChannels() {
	days := viper.GetInt("retention.channels_keep_days")
	if days <= 0 {
		days = viper.GetInt("retention.calls_keep_days")
	}
	if days <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	tx := database.C.Unscoped().
		Where("active = ? AND end_time <= ?", false, cutoff).
		Delete(&models.Channel{})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when deleting expired channels...")
		return
	}
	log.Info().Int64("affected", tx.RowsAffected).Msg("Expired channels cleaned up.")
}

// DoRetentionSweep is the scheduled entry point. It runs apart from
// live ingestion and never blocks it.
func DoRetentionSweep() {
	DeleteCalls()
	DeleteChannels()
}

// DoAutoDatabaseCleanup purges rows that sat soft-deleted for longer
// than an hour.
func DoAutoDatabaseCleanup() {
	deadline := time.Now().Add(-60 * time.Minute)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up entire database...")

	var count int64
	for _, model := range database.AutoMaintainRange {
		tx := database.C.Unscoped().Delete(model, "deleted_at <= ?", deadline)
		if tx.Error != nil {
			log.Error().Err(tx.Error).Msg("An error occurred when running database cleanup...")
		}
		count += tx.RowsAffected
	}

	log.Debug().Int64("affected", count).Msg("Clean up entire database accomplished.")
}
