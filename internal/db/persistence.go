package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/mudgo/internal/model"
	"github.com/udisondev/mudgo/internal/timer"
	"github.com/udisondev/mudgo/internal/world"
)

// PersistenceService saves and restores characters together with their
// persist-flagged affects, and runs the periodic autosave loop.
type PersistenceService struct {
	pool       *pgxpool.Pool
	charRepo   *CharacterRepository
	affectRepo *AffectRepository
}

// NewPersistenceService creates the service.
func NewPersistenceService(pool *pgxpool.Pool, charRepo *CharacterRepository, affectRepo *AffectRepository) *PersistenceService {
	return &PersistenceService{
		pool:       pool,
		charRepo:   charRepo,
		affectRepo: affectRepo,
	}
}

// SaveCharacter writes the character row and its persist-flagged affects in
// one transaction. A character without a row id is inserted first.
func (s *PersistenceService) SaveCharacter(ctx context.Context, c *model.Character) error {
	loc := c.Location()
	row := CharacterRow{
		ID:    c.CharacterID(),
		Name:  c.Name(),
		Class: c.Class().Name,
		Level: c.Level(),
		HP:    c.HP(),
		SP:    c.SP(),
		X:     loc.X,
		Y:     loc.Y,
		Z:     loc.Z,
	}

	if row.ID == 0 {
		id, err := s.charRepo.Insert(ctx, row)
		if err != nil {
			return err
		}
		c.SetCharacterID(id)
		row.ID = id
	}

	var affectRows []AffectRow
	for _, a := range c.Affects().Active() {
		if a.Persist {
			affectRows = append(affectRows, RowFromAffect(row.ID, a))
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for character %d: %w", row.ID, err)
	}
	defer tx.Rollback(ctx)

	if err := s.charRepo.UpdateTx(ctx, tx, row); err != nil {
		return err
	}
	if err := s.affectRepo.ReplaceAllTx(ctx, tx, row.ID, affectRows); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction for character %d: %w", row.ID, err)
	}

	slog.Debug("character saved",
		"characterID", row.ID,
		"character", row.Name,
		"affects", len(affectRows))
	return nil
}

// LoadCharacter restores a character by name: the row becomes a live
// character on the given scheduler and every stored affect is re-applied.
// Returns nil, nil when the name is unknown.
func (s *PersistenceService) LoadCharacter(ctx context.Context, name string, objectID uint32, tuning model.Tuning, scheduler *timer.Scheduler) (*model.Character, error) {
	row, err := s.charRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	c := model.NewCharacter(objectID, row.Name, model.NewLocation(row.X, row.Y, row.Z),
		row.Level, model.TemplateByName(row.Class), tuning, scheduler)
	c.SetCharacterID(row.ID)

	affectRows, err := s.affectRepo.LoadByCharacter(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	for _, ar := range affectRows {
		a, err := ar.ToAffect()
		if err != nil {
			slog.Warn("skipping unreadable affect row", "error", err)
			continue
		}
		c.ApplyAffect(a)
	}

	// Vitals land after the affects so the stored values clamp against the
	// modified maxima.
	c.SetVitals(row.HP, row.SP)
	return c, nil
}

// RunSaveLoop autosaves every registered character at the given interval
// until ctx is cancelled, then performs one final save pass.
func (s *PersistenceService) RunSaveLoop(ctx context.Context, w *world.World, interval time.Duration) error {
	slog.Info("autosave loop started", "interval", interval)
	defer slog.Info("autosave loop stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.saveAll(context.WithoutCancel(ctx), w)
			return ctx.Err()
		case <-ticker.C:
			s.saveAll(ctx, w)
		}
	}
}

func (s *PersistenceService) saveAll(ctx context.Context, w *world.World) {
	for _, c := range w.Snapshot() {
		if err := s.SaveCharacter(ctx, c); err != nil {
			slog.Error("autosave failed",
				"character", c.Name(),
				"error", err)
		}
	}
}
