package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FSPolicy controls how completed downloads are placed into the library.
type FSPolicy struct {
	ID          string
	LibraryRoot string
	Extract     bool
	Par2        string
	Flatten     bool
	MoveMode    string
	CreatedAt   string
	UpdatedAt   string
}

// FSPolicy loads the singleton filesystem policy.
func (s *Store) FSPolicy(ctx context.Context) (FSPolicy, error) {
	var (
		policy  FSPolicy
		extract int
		flatten int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, library_root, extract, par2, flatten, move_mode, created_at, updated_at
		FROM fs_policy
		WHERE id = ?
	`, FSPolicyID).Scan(
		&policy.ID, &policy.LibraryRoot, &extract, &policy.Par2,
		&flatten, &policy.MoveMode, &policy.CreatedAt, &policy.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return FSPolicy{}, NotFoundError{Entity: "fs policy", Key: FSPolicyID}
	}
	if err != nil {
		return FSPolicy{}, fmt.Errorf("config: load fs policy: %w", err)
	}

	policy.Extract = extract == 1
	policy.Flatten = flatten == 1
	return policy, nil
}

// UpdateFSPolicy rewrites the whole filesystem policy record.
func (s *Store) UpdateFSPolicy(ctx context.Context, policy FSPolicy) error {
	if s.readOnly {
		return fmt.Errorf("config: update fs policy: store opened read-only")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE fs_policy SET
			library_root = ?,
			extract = ?,
			par2 = ?,
			flatten = ?,
			move_mode = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, policy.LibraryRoot, boolToInt(policy.Extract), policy.Par2,
		boolToInt(policy.Flatten), policy.MoveMode, FSPolicyID)
	if err != nil {
		return fmt.Errorf("config: update fs policy: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return NotFoundError{Entity: "fs policy", Key: FSPolicyID}
	}
	return nil
}
