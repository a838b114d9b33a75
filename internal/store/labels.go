package store

import (
	"context"
	"fmt"
)

// LoadLabels returns every custom label of the address book, grouped by
// field, in insertion order.
func (s *Store) LoadLabels(ctx context.Context, addressBookID string) (map[string][]string, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT field, label FROM custom_labels
		WHERE abook_id = ?
		ORDER BY rowid`,
		addressBookID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying custom labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[string][]string)
	for rows.Next() {
		var field, label string
		if err := rows.Scan(&field, &label); err != nil {
			return nil, fmt.Errorf("scanning custom label row: %w", err)
		}
		labels[field] = append(labels[field], label)
	}

	return labels, rows.Err()
}

// InsertLabel records a newly discovered custom label. Re-inserting an
// existing label is a no-op.
func (s *Store) InsertLabel(ctx context.Context, addressBookID, field, label string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO custom_labels (abook_id, field, label)
		VALUES (?, ?, ?)`,
		addressBookID, field, label,
	)
	if err != nil {
		return fmt.Errorf("inserting custom label %q: %w", label, err)
	}
	return nil
}
