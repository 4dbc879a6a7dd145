package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Application lifecycle modes. A fresh install starts in setup mode and
// switches to active once a setup token is consumed.
const (
	AppModeSetup  = "setup"
	AppModeActive = "active"
)

// AppProfile is the singleton application identity record.
type AppProfile struct {
	ID           string
	InstanceName string
	Mode         string
	Version      int
	CreatedAt    string
	UpdatedAt    string
}

// AppProfile loads the singleton application profile.
func (s *Store) AppProfile(ctx context.Context) (AppProfile, error) {
	var profile AppProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, instance_name, mode, version, created_at, updated_at
		FROM app_profile
		WHERE id = ?
	`, AppProfileID).Scan(
		&profile.ID, &profile.InstanceName, &profile.Mode,
		&profile.Version, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return AppProfile{}, NotFoundError{Entity: "app profile", Key: AppProfileID}
	}
	if err != nil {
		return AppProfile{}, fmt.Errorf("config: load app profile: %w", err)
	}
	return profile, nil
}

// SetAppMode transitions the application profile into the given mode and
// bumps its version.
func (s *Store) SetAppMode(ctx context.Context, mode string) error {
	if s.readOnly {
		return fmt.Errorf("config: set app mode: store opened read-only")
	}
	if mode != AppModeSetup && mode != AppModeActive {
		return fmt.Errorf("config: set app mode: unknown mode %q", mode)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_profile
		SET mode = ?,
		    version = version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, mode, AppProfileID)
	if err != nil {
		return fmt.Errorf("config: set app mode: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return NotFoundError{Entity: "app profile", Key: AppProfileID}
	}
	return nil
}
