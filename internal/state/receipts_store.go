/*

This file persists operation receipts: one row per committed or rejected
vault operation, written by the receipt sink and served by the web API.

*/

package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/mvault/internal/types"
)

// SaveOperationReceipt writes one receipt row.
func SaveOperationReceipt(receipt types.OperationReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	allocationsJSON, err := json.Marshal(receipt.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	insertSQL := `
		INSERT INTO operation_receipts
			(receipt_id, sequence, op_timestamp, kind, caller, owner_addr, receiver, assets, shares, rate, allocations, success, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	_, err = DB.Exec(insertSQL,
		receipt.ID, receipt.Sequence, receipt.Timestamp, string(receipt.Kind),
		receipt.Caller, nullable(receipt.Owner), nullable(receipt.Receiver),
		receipt.Assets.String(), receipt.Shares.String(), receipt.Rate.String(),
		allocationsJSON, receipt.Success, nullable(receipt.Message),
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation receipt: %w", err)
	}

	log.Debug().
		Str("receiptId", receipt.ID.String()).
		Uint64("sequence", receipt.Sequence).
		Str("kind", string(receipt.Kind)).
		Msg("Saved operation receipt")
	return nil
}

// GetRecentReceipts returns up to limit receipts, newest first.
func GetRecentReceipts(limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT receipt_id, sequence, op_timestamp, kind, caller, owner_addr, receiver, assets, shares, rate, allocations, success, message
		FROM operation_receipts
		ORDER BY op_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]types.OperationReceipt, 0, limit)
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// GetReceiptByID returns one receipt by its UUID.
func GetReceiptByID(id uuid.UUID) (*types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT receipt_id, sequence, op_timestamp, kind, caller, owner_addr, receiver, assets, shares, rate, allocations, success, message
		FROM operation_receipts
		WHERE receipt_id = $1;`

	row := DB.QueryRow(query, id)
	receipt, err := scanReceipt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("receipt %s not found", id)
		}
		return nil, err
	}
	return &receipt, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row rowScanner) (types.OperationReceipt, error) {
	var (
		receipt         types.OperationReceipt
		kind            string
		owner, receiver sql.NullString
		message         sql.NullString
		assetsStr       string
		sharesStr       string
		rateStr         string
		allocationsJSON []byte
	)

	err := row.Scan(&receipt.ID, &receipt.Sequence, &receipt.Timestamp, &kind,
		&receipt.Caller, &owner, &receiver, &assetsStr, &sharesStr, &rateStr,
		&allocationsJSON, &receipt.Success, &message)
	if err != nil {
		return types.OperationReceipt{}, err
	}

	receipt.Kind = types.OperationKind(kind)
	receipt.Owner = owner.String
	receipt.Receiver = receiver.String
	receipt.Message = message.String

	receipt.Assets, err = parseNumeric(assetsStr)
	if err != nil {
		return types.OperationReceipt{}, fmt.Errorf("bad assets column: %w", err)
	}
	receipt.Shares, err = parseNumeric(sharesStr)
	if err != nil {
		return types.OperationReceipt{}, fmt.Errorf("bad shares column: %w", err)
	}
	receipt.Rate, err = sdkmath.LegacyNewDecFromStr(rateStr)
	if err != nil {
		return types.OperationReceipt{}, fmt.Errorf("bad rate column: %w", err)
	}

	if len(allocationsJSON) > 0 {
		if err := json.Unmarshal(allocationsJSON, &receipt.Allocations); err != nil {
			return types.OperationReceipt{}, fmt.Errorf("bad allocations column: %w", err)
		}
	}
	return receipt, nil
}

func parseNumeric(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
