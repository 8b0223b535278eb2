package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/mudgo/internal/affect"
	"github.com/udisondev/mudgo/internal/stat"
)

// permanentMs marks a never-expiring affect in the remaining_ms column.
const permanentMs = int64(-1)

// AffectRow is the persisted shape of one affect: identity, semantic flags,
// target point by name, delta and remaining duration.
type AffectRow struct {
	CharacterID int64
	Kind        int16
	Type        int32
	Flags       int64
	Point       string
	Delta       int32
	RemainingMs int64
	CostPerSec  float64
	KeepOnDeath bool
}

// RowFromAffect converts an active affect snapshot into its persisted shape.
func RowFromAffect(characterID int64, a affect.Affect) AffectRow {
	remaining := permanentMs
	if !a.IsPermanent() {
		remaining = a.Remaining.Milliseconds()
	}
	return AffectRow{
		CharacterID: characterID,
		Kind:        int16(a.Kind),
		Type:        a.Type,
		Flags:       int64(a.Flags),
		Point:       a.Point.String(),
		Delta:       a.Delta,
		RemainingMs: remaining,
		CostPerSec:  a.CostPerSec,
		KeepOnDeath: a.KeepOnDeath,
	}
}

// ToAffect rebuilds the live affect from a stored row. The point column is
// validated against the closed point table; an unknown name means the row
// predates a rename and is rejected.
func (row AffectRow) ToAffect() (*affect.Affect, error) {
	point, ok := stat.PointByName(row.Point)
	if !ok {
		return nil, fmt.Errorf("affect row for character %d: unknown point %q", row.CharacterID, row.Point)
	}
	remaining := affect.Permanent
	if row.RemainingMs >= 0 {
		remaining = time.Duration(row.RemainingMs) * time.Millisecond
	}
	return &affect.Affect{
		Kind:        affect.Kind(row.Kind),
		Type:        row.Type,
		Point:       point,
		Delta:       row.Delta,
		Remaining:   remaining,
		CostPerSec:  row.CostPerSec,
		Persist:     true,
		KeepOnDeath: row.KeepOnDeath,
		Flags:       affect.Flag(row.Flags),
	}, nil
}

// AffectRepository reads and writes character affect rows.
type AffectRepository struct {
	pool *pgxpool.Pool
}

// NewAffectRepository creates a repository on the given pool.
func NewAffectRepository(pool *pgxpool.Pool) *AffectRepository {
	return &AffectRepository{pool: pool}
}

// ReplaceAllTx overwrites a character's stored affects inside tx:
// delete-then-insert, so the stored set always mirrors the last save.
func (r *AffectRepository) ReplaceAllTx(ctx context.Context, tx pgx.Tx, characterID int64, rows []AffectRow) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM character_affects WHERE character_id = $1`, characterID,
	); err != nil {
		return fmt.Errorf("clearing affects for character %d: %w", characterID, err)
	}

	for _, row := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO character_affects
			 (character_id, kind, type, flags, point, delta, remaining_ms, cost_per_sec, keep_on_death)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			characterID, row.Kind, row.Type, row.Flags, row.Point,
			row.Delta, row.RemainingMs, row.CostPerSec, row.KeepOnDeath,
		); err != nil {
			return fmt.Errorf("inserting affect for character %d: %w", characterID, err)
		}
	}
	return nil
}

// LoadByCharacter returns every stored affect row for a character.
func (r *AffectRepository) LoadByCharacter(ctx context.Context, characterID int64) ([]AffectRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT character_id, kind, type, flags, point, delta, remaining_ms, cost_per_sec, keep_on_death
		 FROM character_affects WHERE character_id = $1`, characterID)
	if err != nil {
		return nil, fmt.Errorf("querying affects for character %d: %w", characterID, err)
	}
	defer rows.Close()

	var out []AffectRow
	for rows.Next() {
		var row AffectRow
		if err := rows.Scan(&row.CharacterID, &row.Kind, &row.Type, &row.Flags,
			&row.Point, &row.Delta, &row.RemainingMs, &row.CostPerSec, &row.KeepOnDeath); err != nil {
			return nil, fmt.Errorf("scanning affect row for character %d: %w", characterID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading affects for character %d: %w", characterID, err)
	}
	return out, nil
}
