// Package houses composes catalog reads into the shapes the browse, detail
// and admin pages need: filtered listings, enriched house aggregates, facet
// options with counts and similar-home rails.
package houses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
	"github.com/denisok6893-rgb/midmod-radar/internal/matching"
	"github.com/denisok6893-rgb/midmod-radar/internal/storage"
)

var (
	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid input")
	// ErrNotFound is returned by operations that address a missing house,
	// photo or style.
	ErrNotFound = errors.New("not found")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

type Service struct {
	store   *storage.Store
	objects storage.ObjectStore
	engine  *matching.Engine
	log     *zap.Logger
	now     func() time.Time

	lookups singleflight.Group
}

// NewService wires the composer. objects and engine may be nil when photo
// uploads or similar-home rails are not needed.
func NewService(store *storage.Store, objects storage.ObjectStore, engine *matching.Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		objects: objects,
		engine:  engine,
		log:     log,
		now:     time.Now,
	}
}

// List returns the valid houses matching f in the requested order. Each house
// carries its architect and all of its style associations.
func (s *Service) List(ctx context.Context, f filter.State, sort storage.Sort) ([]domain.House, error) {
	return s.list(ctx, storage.HouseQuery{Filter: f, Sort: sort})
}

func (s *Service) list(ctx context.Context, q storage.HouseQuery) ([]domain.House, error) {
	hs, err := s.store.ListHouses(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	if len(hs) == 0 {
		return hs, nil
	}

	ids := make([]string, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	styles, err := s.store.HouseStyles(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("list house styles: %w", err)
	}

	byHouse := make(map[string][]domain.HouseStyle, len(hs))
	for _, st := range styles {
		byHouse[st.HouseID] = append(byHouse[st.HouseID], st)
	}
	for i := range hs {
		hs[i].Styles = byHouse[hs[i].ID]
	}
	return hs, nil
}

// GetByID returns the enriched house, or nil when no house has that id.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.House, error) {
	return s.lookup(ctx, "id:"+id, byID(id))
}

// GetBySlug returns the enriched house, or nil when no house has that slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.House, error) {
	return s.lookup(ctx, "slug:"+slug, func(ctx context.Context, r storage.Reader) (domain.House, bool, error) {
		return r.HouseBySlug(ctx, slug)
	})
}

// Featured returns the newest valid house, enriched, or nil for an empty
// catalog.
func (s *Service) Featured(ctx context.Context) (*domain.House, error) {
	return s.lookup(ctx, featuredKey, func(ctx context.Context, r storage.Reader) (domain.House, bool, error) {
		return r.LatestHouse(ctx)
	})
}

const featuredKey = "featured"

type finder func(ctx context.Context, r storage.Reader) (domain.House, bool, error)

func byID(id string) finder {
	return func(ctx context.Context, r storage.Reader) (domain.House, bool, error) {
		return r.HouseByID(ctx, id)
	}
}

// lookup coalesces concurrent loads of the same key. The shared load outlives
// any single caller; a caller whose ctx ends stops waiting for it. Every
// caller gets its own copy of the aggregate.
func (s *Service) lookup(ctx context.Context, key string, find finder) (*domain.House, error) {
	ch := s.lookups.DoChan(key, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), find)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		h, _ := res.Val.(*domain.House)
		if h == nil {
			return nil, nil
		}
		return cloneHouse(h), nil
	}
}

// reload reads house id after a write. Loads already in flight may predate
// the write, so it bypasses them and detaches their keys.
func (s *Service) reload(ctx context.Context, id string) (*domain.House, error) {
	s.lookups.Forget("id:" + id)
	s.lookups.Forget(featuredKey)
	h, err := s.load(ctx, byID(id))
	if err != nil || h == nil {
		return h, err
	}
	s.lookups.Forget("slug:" + h.Slug)
	return h, nil
}

func (s *Service) load(ctx context.Context, find finder) (*domain.House, error) {
	var out *domain.House
	err := s.store.Snapshot(ctx, func(r storage.Reader) error {
		h, ok, err := find(ctx, r)
		if err != nil {
			return fmt.Errorf("get house: %w", err)
		}
		if !ok {
			return nil
		}
		s.enrich(ctx, r, &h)
		out = &h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// enrich attaches architect, photos and styles. A failing step is logged and
// leaves its relation empty.
func (s *Service) enrich(ctx context.Context, r storage.Reader, h *domain.House) {
	log := s.log.With(zap.String("house_id", h.ID))

	if h.ArchitectID != nil {
		a, ok, err := r.Architect(ctx, *h.ArchitectID)
		switch {
		case err != nil:
			log.Warn("load architect", zap.String("architect_id", *h.ArchitectID), zap.Error(err))
		case ok:
			h.Architect = &a
		}
	}

	photos, err := r.HousePhotos(ctx, h.ID)
	if err != nil {
		log.Warn("load photos", zap.Error(err))
	} else {
		h.Photos = photos
	}

	styles, err := r.HouseStyles(ctx, h.ID)
	if err != nil {
		log.Warn("load styles", zap.Error(err))
	} else {
		h.Styles = styles
	}
}

func cloneHouse(h *domain.House) *domain.House {
	cp := *h
	if h.Architect != nil {
		a := *h.Architect
		cp.Architect = &a
	}
	cp.Photos = append([]domain.HousePhoto(nil), h.Photos...)
	cp.Styles = append([]domain.HouseStyle(nil), h.Styles...)
	return &cp
}

// Similar ranks the other valid houses by resemblance to the house with the
// given slug.
func (s *Service) Similar(ctx context.Context, slug string, limit int) ([]domain.ScoreResult, error) {
	target, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if s.engine == nil {
		return []domain.ScoreResult{}, nil
	}

	candidates, err := s.List(ctx, filter.Empty(), storage.SortRecent)
	if err != nil {
		return nil, err
	}
	return s.engine.ScoreSimilar(*target, candidates, limit), nil
}
