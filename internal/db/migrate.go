/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"github.com/lumentrack/console/internal/auth"
	"github.com/lumentrack/console/internal/library"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		// Track library
		&library.Track{},
		&library.BeatGrid{},
		&library.HotCue{},
		&library.TrackWaveform{},

		// Control API authentication
		&auth.Operator{},
		&auth.APIKey{},
	)
}
