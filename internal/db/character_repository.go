package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CharacterRow is the plain persisted shape of a character.
type CharacterRow struct {
	ID    int64
	Name  string
	Class string
	Level int32
	HP    int32
	SP    int32
	X     int32
	Y     int32
	Z     int32
}

// CharacterRepository reads and writes character rows.
type CharacterRepository struct {
	pool *pgxpool.Pool
}

// NewCharacterRepository creates a repository on the given pool.
func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// Insert creates a character row and returns its id.
func (r *CharacterRepository) Insert(ctx context.Context, row CharacterRow) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO characters (name, class, level, hp, sp, x, y, z)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		row.Name, row.Class, row.Level, row.HP, row.SP, row.X, row.Y, row.Z,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting character %q: %w", row.Name, err)
	}
	return id, nil
}

// UpdateTx overwrites the mutable columns of a character row inside tx.
func (r *CharacterRepository) UpdateTx(ctx context.Context, tx pgx.Tx, row CharacterRow) error {
	tag, err := tx.Exec(ctx,
		`UPDATE characters
		 SET level = $2, hp = $3, sp = $4, x = $5, y = $6, z = $7, updated_at = now()
		 WHERE id = $1`,
		row.ID, row.Level, row.HP, row.SP, row.X, row.Y, row.Z,
	)
	if err != nil {
		return fmt.Errorf("updating character %d: %w", row.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating character %d: no such row", row.ID)
	}
	return nil
}

// GetByName returns the character row with the given name.
// Returns nil, nil if it does not exist.
func (r *CharacterRepository) GetByName(ctx context.Context, name string) (*CharacterRow, error) {
	var row CharacterRow
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, class, level, hp, sp, x, y, z
		 FROM characters WHERE name = $1`, name,
	).Scan(&row.ID, &row.Name, &row.Class, &row.Level, &row.HP, &row.SP, &row.X, &row.Y, &row.Z)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying character %q: %w", name, err)
	}
	return &row, nil
}

// Names returns every stored character name. The world server restores its
// persisted population from this list at boot.
func (r *CharacterRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM characters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying character names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning character name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading character names: %w", err)
	}
	return names, nil
}

// Delete removes a character row (and, via cascade, its affects).
func (r *CharacterRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting character %d: %w", id, err)
	}
	return nil
}
