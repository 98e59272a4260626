// Package sqlite provides the durable store backend. One Store implements
// both the quest repository and the actor ledger store; the ledger's
// exactly-once and batch guards are enforced with conditional updates so a
// lost race surfaces as zero affected rows, never as a double spend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/ledger"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
)

const schema = `
CREATE TABLE IF NOT EXISTS quests (
	id     TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	capped INTEGER NOT NULL DEFAULT 0,
	doc    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS actor_ledgers (
	actor_id              TEXT PRIMARY KEY,
	total_completed       INTEGER NOT NULL DEFAULT 0,
	pending_turn_ins      INTEGER NOT NULL DEFAULT 0,
	legacy_total          INTEGER NOT NULL DEFAULT 0,
	legacy_pending        INTEGER NOT NULL DEFAULT 0,
	legacy_transferred_at TEXT,
	legacy_transfer_used  INTEGER NOT NULL DEFAULT 0
);
`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- quest.Repository ---

func (s *Store) Seed(ctx context.Context, quests []quest.Quest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range quests {
		if q.Status == "" {
			q.Status = quest.StatusDraft
		}
		if err := upsertQuest(ctx, tx, q); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, id string) (quest.Quest, bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM quests WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return quest.Quest{}, false, nil
	}
	if err != nil {
		return quest.Quest{}, false, err
	}
	q, err := decodeQuest(doc)
	if err != nil {
		return quest.Quest{}, false, err
	}
	return q, true, nil
}

func (s *Store) Put(ctx context.Context, q quest.Quest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertQuest(ctx, tx, q); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	return err
}

func (s *Store) List(ctx context.Context) ([]quest.Quest, error) {
	return s.queryQuests(ctx, `SELECT doc FROM quests ORDER BY id`)
}

func (s *Store) ListActiveCapped(ctx context.Context) ([]quest.Quest, error) {
	return s.queryQuests(ctx, `SELECT doc FROM quests WHERE status = 'active' AND capped = 1 ORDER BY id`)
}

func (s *Store) queryQuests(ctx context.Context, query string, args ...any) ([]quest.Quest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quest.Quest
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		q, err := decodeQuest(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func upsertQuest(ctx context.Context, tx *sql.Tx, q quest.Quest) error {
	doc, err := json.Marshal(q)
	if err != nil {
		return err
	}
	capped := 0
	if q.Capped() {
		capped = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO quests (id, status, capped, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, capped = excluded.capped, doc = excluded.doc`,
		q.ID, string(q.Status), capped, string(doc))
	return err
}

// decodeQuest deserializes once at the store boundary into the canonical
// participants container.
func decodeQuest(doc string) (quest.Quest, error) {
	var q quest.Quest
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return quest.Quest{}, err
	}
	if q.Participants == nil {
		q.Participants = map[string]quest.Participant{}
	}
	return q, nil
}

// --- ledger.Store ---

// LedgerStore is the actor-ledger view of the Store. A separate view type
// keeps the ledger's Get from colliding with the quest repository's.
type LedgerStore struct {
	s *Store
}

func (s *Store) Ledgers() *LedgerStore {
	return &LedgerStore{s: s}
}

func (ls *LedgerStore) Get(ctx context.Context, actorID string) (ledger.ActorLedger, error) {
	return ls.s.scanLedger(ctx, actorID)
}

func (ls *LedgerStore) RecordCompletion(ctx context.Context, actorID string, n int) (ledger.ActorLedger, error) {
	return ls.s.recordCompletion(ctx, actorID, n)
}

func (ls *LedgerStore) ApplyLegacyTransfer(ctx context.Context, actorID string, totalCompleted, pending int, at time.Time) (ledger.ActorLedger, error) {
	return ls.s.applyLegacyTransfer(ctx, actorID, totalCompleted, pending, at)
}

func (ls *LedgerStore) Consume(ctx context.Context, actorID string, batch int) (ledger.ActorLedger, error) {
	return ls.s.consume(ctx, actorID, batch)
}

func (s *Store) recordCompletion(ctx context.Context, actorID string, n int) (ledger.ActorLedger, error) {
	if n > 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO actor_ledgers (actor_id, total_completed, pending_turn_ins) VALUES (?, ?, ?)
			ON CONFLICT(actor_id) DO UPDATE SET
				total_completed = total_completed + excluded.total_completed,
				pending_turn_ins = pending_turn_ins + excluded.pending_turn_ins`,
			actorID, n, n)
		if err != nil {
			return ledger.ActorLedger{}, err
		}
	}
	return s.scanLedger(ctx, actorID)
}

func (s *Store) applyLegacyTransfer(ctx context.Context, actorID string, totalCompleted, pending int, at time.Time) (ledger.ActorLedger, error) {
	if err := s.ensureRow(ctx, actorID); err != nil {
		return ledger.ActorLedger{}, err
	}

	// The WHERE clause is the exactly-once guard: the check and the
	// mutation are one conditional write against the document.
	res, err := s.db.ExecContext(ctx, `
		UPDATE actor_ledgers SET
			legacy_total = ?,
			legacy_pending = ?,
			legacy_transferred_at = ?,
			legacy_transfer_used = 1
		WHERE actor_id = ? AND legacy_transfer_used = 0`,
		totalCompleted, pending, at.UTC().Format(time.RFC3339Nano), actorID)
	if err != nil {
		return ledger.ActorLedger{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ledger.ActorLedger{}, err
	}
	if affected == 0 {
		return ledger.ActorLedger{}, ledger.ErrAlreadyTransferred
	}
	return s.scanLedger(ctx, actorID)
}

func (s *Store) consume(ctx context.Context, actorID string, batch int) (ledger.ActorLedger, error) {
	if batch <= 0 {
		return ledger.ActorLedger{}, ledger.ErrInsufficientTurnIns
	}

	// Legacy credits drain first. SET expressions read the pre-update row,
	// and the WHERE clause makes precondition and decrement one atomic
	// unit; a concurrent consumer that loses the race affects zero rows.
	res, err := s.db.ExecContext(ctx, `
		UPDATE actor_ledgers SET
			legacy_pending = legacy_pending - MIN(legacy_pending, ?1),
			pending_turn_ins = pending_turn_ins - (?1 - MIN(legacy_pending, ?1))
		WHERE actor_id = ?2 AND legacy_pending + pending_turn_ins >= ?1`,
		batch, actorID)
	if err != nil {
		return ledger.ActorLedger{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ledger.ActorLedger{}, err
	}
	if affected == 0 {
		return ledger.ActorLedger{}, ledger.ErrInsufficientTurnIns
	}
	return s.scanLedger(ctx, actorID)
}

func (s *Store) ensureRow(ctx context.Context, actorID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO actor_ledgers (actor_id) VALUES (?)`, actorID)
	return err
}

func (s *Store) scanLedger(ctx context.Context, actorID string) (ledger.ActorLedger, error) {
	var (
		l             ledger.ActorLedger
		transferredAt sql.NullString
		used          int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT actor_id, total_completed, pending_turn_ins, legacy_total, legacy_pending, legacy_transferred_at, legacy_transfer_used
		FROM actor_ledgers WHERE actor_id = ?`, actorID).
		Scan(&l.ActorID, &l.TotalCompleted, &l.PendingTurnIns, &l.Legacy.TotalTransferred, &l.Legacy.PendingTurnIns, &transferredAt, &used)
	if err == sql.ErrNoRows {
		return ledger.ActorLedger{ActorID: actorID}, nil
	}
	if err != nil {
		return ledger.ActorLedger{}, err
	}
	l.Legacy.TransferUsed = used != 0
	if transferredAt.Valid && transferredAt.String != "" {
		if t, perr := time.Parse(time.RFC3339Nano, transferredAt.String); perr == nil {
			l.Legacy.TransferredAt = &t
		}
	}
	return l, nil
}
