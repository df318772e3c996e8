package db

import (
	"context"
	"database/sql"
)

// SlotChange is a slot write recorded by another process
type SlotChange struct {
	Key    string
	Seq    int64
	Writer string
}

// Slot returns the stored value for key, or nil if the slot is empty
func (db *DB) Slot(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return value, err
}

// changeLogSize is how many recent writes the change log keeps
const changeLogSize = 10000

// PutSlot replaces the whole value of key and records the write in the
// change log
func (db *DB) PutSlot(ctx context.Context, key string, value []byte) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq, err := logChange(ctx, tx, key, db.writer)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO slots (key, value, seq, writer, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			seq = excluded.seq,
			writer = excluded.writer,
			updated_at = excluded.updated_at
	`, key, value, seq, db.writer); err != nil {
		return err
	}
	return tx.Commit()
}

// logChange appends a write of key to the change log and trims old entries
func logChange(ctx context.Context, tx *sql.Tx, key, writer string) (int64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO slot_changes (key, writer) VALUES (?, ?)", key, writer)
	if err != nil {
		return 0, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM slot_changes WHERE seq <= ?", seq-changeLogSize); err != nil {
		return 0, err
	}
	return seq, nil
}

// LatestSeq returns the newest change in the log
func (db *DB) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM slot_changes").Scan(&seq)
	return seq, err
}

// ForeignChanges lists slots written by other processes after seq, oldest first
func (db *DB) ForeignChanges(ctx context.Context, after int64) ([]SlotChange, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key, seq, writer FROM slot_changes
		WHERE seq > ? AND writer <> ?
		ORDER BY seq ASC
	`, after, db.writer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []SlotChange
	for rows.Next() {
		var c SlotChange
		if err := rows.Scan(&c.Key, &c.Seq, &c.Writer); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
