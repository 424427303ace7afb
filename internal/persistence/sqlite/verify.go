// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CheckMode picks the SQLite integrity pragma.
type CheckMode string

const (
	QuickCheck CheckMode = "quick_check"
	FullCheck  CheckMode = "integrity_check"
)

// IntegrityError lists the problems an integrity pragma reported.
type IntegrityError struct {
	Mode     CheckMode
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("sqlite %s: %s", e.Mode, strings.Join(e.Problems, "; "))
}

// Verify runs the pragma for mode. A healthy database yields nil; corruption
// yields an *IntegrityError.
func Verify(ctx context.Context, db *sql.DB, mode CheckMode) error {
	rows, err := db.QueryContext(ctx, "PRAGMA "+string(mode))
	if err != nil {
		return fmt.Errorf("sqlite %s: %w", mode, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("sqlite %s: scan: %w", mode, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite %s: %w", mode, err)
	}

	switch {
	case len(lines) == 0:
		return &IntegrityError{Mode: mode, Problems: []string{"pragma returned no rows"}}
	case len(lines) == 1 && strings.EqualFold(lines[0], "ok"):
		return nil
	default:
		return &IntegrityError{Mode: mode, Problems: lines}
	}
}
