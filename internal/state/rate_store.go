package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/mvault/internal/types"
)

// SaveRateSnapshot writes one rate snapshot row.
func SaveRateSnapshot(snapshot types.RateSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	insertSQL := `
		INSERT INTO rate_snapshots (sequence, snapshot_timestamp, assets_per_share, total_assets, total_shares)
		VALUES ($1, $2, $3, $4, $5);`

	_, err := DB.Exec(insertSQL,
		snapshot.Sequence, snapshot.Timestamp,
		snapshot.AssetsPerShare.String(), snapshot.TotalAssets.String(), snapshot.TotalShares.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rate snapshot: %w", err)
	}

	log.Debug().
		Uint64("sequence", snapshot.Sequence).
		Str("rate", snapshot.AssetsPerShare.String()).
		Msg("Saved rate snapshot")
	return nil
}

// GetRateHistory returns up to limit snapshots, newest first.
func GetRateHistory(limit int) ([]types.RateSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT sequence, snapshot_timestamp, assets_per_share, total_assets, total_shares
		FROM rate_snapshots
		ORDER BY sequence DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]types.RateSnapshot, 0, limit)
	for rows.Next() {
		var (
			snapshot  types.RateSnapshot
			rateStr   string
			assetsStr string
			sharesStr string
		)
		if err := rows.Scan(&snapshot.Sequence, &snapshot.Timestamp, &rateStr, &assetsStr, &sharesStr); err != nil {
			return nil, err
		}
		snapshot.AssetsPerShare, err = sdkmath.LegacyNewDecFromStr(rateStr)
		if err != nil {
			return nil, fmt.Errorf("bad rate column: %w", err)
		}
		snapshot.TotalAssets, err = parseNumeric(assetsStr)
		if err != nil {
			return nil, fmt.Errorf("bad total_assets column: %w", err)
		}
		snapshot.TotalShares, err = parseNumeric(sharesStr)
		if err != nil {
			return nil, fmt.Errorf("bad total_shares column: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// SaveCapChange writes one cap change row.
func SaveCapChange(change types.CapChange) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	insertSQL := `
		INSERT INTO cap_changes (change_timestamp, actor, old_cap, new_cap)
		VALUES ($1, $2, $3, $4);`

	_, err := DB.Exec(insertSQL, change.Timestamp, change.Actor, change.OldCap.String(), change.NewCap.String())
	if err != nil {
		return fmt.Errorf("failed to insert cap change: %w", err)
	}
	return nil
}
