package storage

import (
	"context"
	"fmt"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
)

const snapshotSavepoint = "snapshot_read"

// snapshotReader is the Reader handed to Snapshot callbacks. A PostgreSQL
// transaction refuses every statement after the first failure, so each read
// runs inside its own savepoint and is rolled back to it on error. SQLite
// accepts the same statements.
type snapshotReader struct {
	s *Store
}

func (r snapshotReader) guard(ctx context.Context, read func() error) error {
	if _, err := r.s.q.ExecContext(ctx, "SAVEPOINT "+snapshotSavepoint); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := read(); err != nil {
		if _, rbErr := r.s.q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+snapshotSavepoint); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}
	if _, err := r.s.q.ExecContext(ctx, "RELEASE SAVEPOINT "+snapshotSavepoint); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (r snapshotReader) HouseByID(ctx context.Context, id string) (h domain.House, ok bool, err error) {
	err = r.guard(ctx, func() error {
		h, ok, err = r.s.HouseByID(ctx, id)
		return err
	})
	return h, ok, err
}

func (r snapshotReader) HouseBySlug(ctx context.Context, slug string) (h domain.House, ok bool, err error) {
	err = r.guard(ctx, func() error {
		h, ok, err = r.s.HouseBySlug(ctx, slug)
		return err
	})
	return h, ok, err
}

func (r snapshotReader) LatestHouse(ctx context.Context) (h domain.House, ok bool, err error) {
	err = r.guard(ctx, func() error {
		h, ok, err = r.s.LatestHouse(ctx)
		return err
	})
	return h, ok, err
}

func (r snapshotReader) Architect(ctx context.Context, id string) (a domain.Architect, ok bool, err error) {
	err = r.guard(ctx, func() error {
		a, ok, err = r.s.Architect(ctx, id)
		return err
	})
	return a, ok, err
}

func (r snapshotReader) HousePhotos(ctx context.Context, houseID string) (ps []domain.HousePhoto, err error) {
	err = r.guard(ctx, func() error {
		ps, err = r.s.HousePhotos(ctx, houseID)
		return err
	})
	return ps, err
}

func (r snapshotReader) HouseStyles(ctx context.Context, houseIDs ...string) (hs []domain.HouseStyle, err error) {
	err = r.guard(ctx, func() error {
		hs, err = r.s.HouseStyles(ctx, houseIDs...)
		return err
	})
	return hs, err
}
