package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func ptr[T any](v T) *T { return &v }

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func house(id string, year int, value float64, minutes int) domain.House {
	return domain.House{
		ID:             id,
		Slug:           id,
		Street:         "1 " + id + " Way",
		City:           "Palm Springs",
		CityStd:        "palm-springs",
		State:          "CA",
		YearBuilt:      ptr(year),
		EstimatedValue: ptr(value),
		IsValid:        true,
		CreatedAt:      base.Add(time.Duration(minutes) * time.Minute),
		UpdatedAt:      base,
	}
}

func ids(hs []domain.House) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.ID)
	}
	return out
}

func seedCatalog(t *testing.T, s *Store) {
	t.Helper()
	a := house("a", 1950, 900_000, 1)
	a.ArchitectID = ptr("neutra")
	a.Styles = []domain.HouseStyle{{StyleID: "desert"}, {StyleID: "post-beam"}}

	b := house("b", 1980, 1_500_000, 2)
	b.State = "AZ"
	b.City, b.CityStd = "Scottsdale", "scottsdale"
	b.Styles = []domain.HouseStyle{{StyleID: "desert"}}

	c := house("c", 1960, 700_000, 3)
	c.IsValid = false
	c.Styles = []domain.HouseStyle{{StyleID: "desert"}}

	d := house("d", 1962, 0, 0)
	d.YearBuilt = nil
	d.EstimatedValue = nil
	d.ArchitectID = ptr("neutra")

	require.NoError(t, s.Seed(context.Background(), SeedData{
		Architects: []domain.Architect{{ID: "neutra", Name: "Richard Neutra"}},
		Styles: []domain.Style{
			{ID: "desert", Name: "Desert Modern"},
			{ID: "post-beam", Name: "Post and Beam"},
		},
		Houses: []domain.House{a, b, c, d},
	}, base))
}

func TestListHouses_ValidOnlyNewestFirst(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)

	got, err := s.ListHouses(context.Background(), HouseQuery{Filter: filter.Empty()})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "d"}, ids(got))
	require.NotNil(t, got[1].Architect)
	assert.Equal(t, "Richard Neutra", got[1].Architect.Name)
	assert.Nil(t, got[0].Architect)
}

func TestListHouses_YearMinExcludesInvalidAndOlder(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)

	f := filter.Reduce(filter.Empty(), filter.YearRange(filter.RangePatch{Min: ptr(1955.0)}))
	got, err := s.ListHouses(context.Background(), HouseQuery{Filter: f})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(got))
}

func TestListHouses_Facets(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	tests := []struct {
		name    string
		actions []filter.Action
		want    []string
	}{
		{"style or within facet", []filter.Action{filter.Add(filter.FacetStyle, "post-beam"), filter.Add(filter.FacetStyle, "desert")}, []string{"b", "a"}},
		{"style and state", []filter.Action{filter.Add(filter.FacetStyle, "desert"), filter.Add(filter.FacetState, "CA")}, []string{"a"}},
		{"architect", []filter.Action{filter.Add(filter.FacetArchitect, "neutra")}, []string{"a", "d"}},
		{"city", []filter.Action{filter.Add(filter.FacetCity, "scottsdale")}, []string{"b"}},
		{"valuation max drops nulls", []filter.Action{filter.ValuationRange(filter.RangePatch{Max: ptr(1_000_000.0)})}, []string{"a"}},
		{"unknown style", []filter.Action{filter.Add(filter.FacetStyle, "brutalist")}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListHouses(ctx, HouseQuery{Filter: filter.ReduceAll(filter.Empty(), tt.actions...)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestListHouses_Sorts(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	tests := []struct {
		sort Sort
		want []string
	}{
		{SortPriceHigh, []string{"b", "a", "d"}},
		{SortPriceLow, []string{"d", "a", "b"}},
		{SortYearNew, []string{"b", "a", "d"}},
		{SortYearOld, []string{"d", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got, err := s.ListHouses(ctx, HouseQuery{Filter: filter.Empty(), Sort: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestParseSort(t *testing.T) {
	got, ok := ParseSort("")
	assert.True(t, ok)
	assert.Equal(t, SortRecent, got)

	_, ok = ParseSort("cheapest")
	assert.False(t, ok)
}

func TestHouseStyles_Batched(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)

	got, err := s.HouseStyles(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].HouseID)
	assert.Equal(t, "Desert Modern", got[0].Style.Name)
	assert.Equal(t, "Post and Beam", got[1].Style.Name)
	assert.Equal(t, "b", got[2].HouseID)
}

func TestLatestHouse_SkipsInvalid(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)

	h, ok, err := s.LatestHouse(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", h.ID)
}

func TestPhotos_SingleFeatured(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	first, err := s.AddPhoto(ctx, domain.HousePhoto{ID: "p1", HouseID: "a", PhotoURL: "/photos/a/1.jpg", CreatedAt: base})
	require.NoError(t, err)
	assert.True(t, first.IsFeatured)

	second, err := s.AddPhoto(ctx, domain.HousePhoto{ID: "p2", HouseID: "a", PhotoURL: "/photos/a/2.jpg", CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)
	assert.False(t, second.IsFeatured)

	require.NoError(t, s.SetFeaturedPhoto(ctx, "a", "p2"))
	photos, err := s.HousePhotos(ctx, "a")
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "p2", photos[0].ID)
	assert.True(t, photos[0].IsFeatured)
	assert.False(t, photos[1].IsFeatured)

	h, _, err := s.HouseByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "/photos/a/2.jpg", h.FeaturedPhotoURL)

	// The partial unique index rejects a second featured row.
	_, err = s.exec(ctx, `UPDATE house_photos SET is_featured = ? WHERE id = ?`, true, "p1")
	require.Error(t, err)

	assert.ErrorIs(t, s.SetFeaturedPhoto(ctx, "b", "p1"), ErrNotFound)

	deleted, err := s.DeletePhoto(ctx, "a", "p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", deleted.ID)
	h, _, err = s.HouseByID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, h.FeaturedPhotoURL)
}

func TestUpdateHouse(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	ok, err := s.UpdateHouse(ctx, "a", HouseUpdate{
		Description:         ptr("Butterfly roof."),
		ClearEstimatedValue: true,
		IsValid:             ptr(false),
	}, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	h, _, err := s.HouseByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Butterfly roof.", h.Description)
	assert.Nil(t, h.EstimatedValue)
	assert.False(t, h.IsValid)
	assert.Equal(t, base.Add(time.Hour), h.UpdatedAt)

	ok, err = s.UpdateHouse(ctx, "missing", HouseUpdate{}, base)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteHouse_CascadesRelations(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	ok, err := s.DeleteHouse(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	styles, err := s.HouseStyles(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, styles)
}

func TestSubscribers_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, s.AddSubscriber(ctx, domain.Subscriber{Email: "eames@example.com", CreatedAt: base}))
	}
	n, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeed_Twice(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	seedCatalog(t, s)

	got, err := s.ListHouses(context.Background(), HouseQuery{Filter: filter.Empty(), IncludeInvalid: true})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestDialect_Postgres(t *testing.T) {
	d, err := newDialect(DriverPostgres)
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", d.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	clause, args := d.in("h.state", []string{"CA", "AZ"})
	assert.Equal(t, "h.state = ANY(?)", clause)
	require.Len(t, args, 1)
	assert.Equal(t, pq.Array([]string{"CA", "AZ"}), args[0])

	where, whereArgs := d.houseWhere(HouseQuery{Filter: filter.Empty()})
	assert.Equal(t, "WHERE h.is_valid = ?", where)
	assert.Equal(t, []any{true}, whereArgs)
}

func TestDialect_SQLiteIn(t *testing.T) {
	d, err := newDialect(DriverSQLite)
	require.NoError(t, err)

	clause, args := d.in("h.state", []string{"CA", "AZ"})
	assert.Equal(t, "h.state IN (?,?)", clause)
	assert.Equal(t, []any{"CA", "AZ"}, args)

	_, err = newDialect("mysql")
	assert.Error(t, err)
}

func TestDiskObjectStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskObjectStore(t.TempDir(), "/photos/")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "h1/123.jpg", strings.NewReader("jpeg")))
	assert.FileExists(t, filepath.Join(store.Root(), "h1", "123.jpg"))
	assert.Equal(t, "/photos/h1/123.jpg", store.PublicURL("h1/123.jpg"))

	require.NoError(t, store.Remove(ctx, "h1/123.jpg"))
	assert.NoFileExists(t, filepath.Join(store.Root(), "h1", "123.jpg"))
	require.NoError(t, store.Remove(ctx, "h1/123.jpg"))

	assert.Error(t, store.Put(ctx, "../escape.jpg", strings.NewReader("x")))
}

func TestSnapshot_ReadsOneStateAndNeverCommits(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	err := s.Snapshot(ctx, func(r Reader) error {
		before, ok, err := r.HouseByID(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)

		updated, err := s.UpdateHouse(ctx, "a", HouseUpdate{Description: ptr("Clerestory windows.")}, base.Add(time.Hour))
		require.NoError(t, err)
		require.True(t, updated)

		after, _, err := r.HouseByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, before.Description, after.Description)
		return nil
	})
	require.NoError(t, err)

	h, _, err := s.HouseByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Clerestory windows.", h.Description)
}

func TestSnapshot_FailedReadLeavesLaterReadsUsable(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	err := s.Snapshot(ctx, func(r Reader) error {
		sr, ok := r.(snapshotReader)
		require.True(t, ok)

		err := sr.guard(ctx, func() error {
			_, err := sr.s.query(ctx, `SELECT id FROM no_such_table`)
			return err
		})
		require.Error(t, err)

		photos, err := r.HousePhotos(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, photos)

		styles, err := r.HouseStyles(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, styles, 2)

		a, ok, err := r.Architect(ctx, "neutra")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Richard Neutra", a.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestSnapshot_PropagatesCallbackError(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")
	assert.ErrorIs(t, s.Snapshot(context.Background(), func(Reader) error { return boom }), boom)
}

func TestDialect_SnapshotOptions(t *testing.T) {
	pg, err := newDialect(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, pg.snapshotOptions())

	lite, err := newDialect(DriverSQLite)
	require.NoError(t, err)
	assert.Nil(t, lite.snapshotOptions())
}

func TestCreateHouse_DuplicateSlug(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	dup := house("z", 1955, 800_000, 9)
	dup.Slug = "a"
	err := s.CreateHouse(ctx, dup)
	require.ErrorIs(t, err, ErrSlugTaken)

	// A clashing primary key is not a slug clash.
	clash := house("a", 1955, 800_000, 9)
	clash.Slug = "fresh-slug"
	err = s.CreateHouse(ctx, clash)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlugTaken)
}

func TestDialect_UniqueViolation(t *testing.T) {
	pg, err := newDialect(DriverPostgres)
	require.NoError(t, err)
	slugErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "houses_slug_key"})
	assert.True(t, pg.uniqueViolation(slugErr, "houses", "slug"))
	assert.False(t, pg.uniqueViolation(&pq.Error{Code: "23505", Constraint: "houses_pkey"}, "houses", "slug"))
	assert.False(t, pg.uniqueViolation(&pq.Error{Code: "23503", Constraint: "houses_slug_key"}, "houses", "slug"))
	assert.False(t, pg.uniqueViolation(nil, "houses", "slug"))
}
