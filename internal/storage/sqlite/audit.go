package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/buildmandi/backend/internal/models"
)

// appendHistory writes one audit entry inside the caller's transaction.
// The AUTOINCREMENT seq totally orders the log even when two entries
// share a timestamp.
func appendHistory(ctx context.Context, tx *sql.Tx, entry *models.StatusHistoryEntry) error {
	var reason any
	if entry.Reason != "" {
		reason = entry.Reason
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO settlement_status_history
		 (settlement_id, from_status, to_status, actor_id, actor_role, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SettlementID, string(entry.FromStatus), string(entry.ToStatus),
		entry.ActorID, entry.ActorRole, reason, fmtTime(entry.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ListHistory returns the settlement's audit entries in log order.
func (s *SQLiteStore) ListHistory(ctx context.Context, settlementID string) ([]models.StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, settlement_id, from_status, to_status, actor_id, actor_role, reason, recorded_at
		 FROM settlement_status_history
		 WHERE settlement_id = ?
		 ORDER BY seq ASC`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var (
			entry       models.StatusHistoryEntry
			from, to    string
			reason      sql.NullString
			recordedStr string
		)
		if err := rows.Scan(&entry.Seq, &entry.SettlementID, &from, &to,
			&entry.ActorID, &entry.ActorRole, &reason, &recordedStr); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.FromStatus = models.SettlementStatus(from)
		entry.ToStatus = models.SettlementStatus(to)
		if reason.Valid {
			entry.Reason = reason.String
		}
		if entry.RecordedAt, err = parseTime(recordedStr); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}
