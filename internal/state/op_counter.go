/*

This file manages the persistent operation sequence counter. The counter is
stored in the database so audit sequence numbers stay monotonic across
restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetOperationSequence retrieves the last recorded operation sequence.
func GetOperationSequence() (uint64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_sequence FROM operation_counter WHERE id = 1;`

	var current uint64
	row := DB.QueryRow(query)
	err := row.Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn().Msg("No operation counter row found, starting from 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get operation sequence: %w", err)
	}

	log.Debug().Uint64("sequence", current).Msg("Retrieved operation sequence")
	return current, nil
}

// RecordOperationSequence persists the latest committed sequence number.
func RecordOperationSequence(sequence uint64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE operation_counter
		SET current_sequence = GREATEST(current_sequence, $1),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, sequence)
	if err != nil {
		return fmt.Errorf("failed to record operation sequence %d: %w", sequence, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when recording operation sequence")
	}

	return nil
}
