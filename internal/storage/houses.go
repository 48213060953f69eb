package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
)

// Reader is the set of single-house reads used to assemble a house aggregate.
// Store implements it directly and inside Snapshot.
type Reader interface {
	HouseByID(ctx context.Context, id string) (domain.House, bool, error)
	HouseBySlug(ctx context.Context, slug string) (domain.House, bool, error)
	LatestHouse(ctx context.Context) (domain.House, bool, error)
	Architect(ctx context.Context, id string) (domain.Architect, bool, error)
	HousePhotos(ctx context.Context, houseID string) ([]domain.HousePhoto, error)
	HouseStyles(ctx context.Context, houseIDs ...string) ([]domain.HouseStyle, error)
}

type Sort string

const (
	SortRecent    Sort = "recent"
	SortPriceHigh Sort = "price_high"
	SortPriceLow  Sort = "price_low"
	SortYearNew   Sort = "year_new"
	SortYearOld   Sort = "year_old"
)

// ParseSort maps a sort name to a Sort; empty means SortRecent.
func ParseSort(v string) (Sort, bool) {
	switch s := Sort(strings.TrimSpace(v)); s {
	case "":
		return SortRecent, true
	case SortRecent, SortPriceHigh, SortPriceLow, SortYearNew, SortYearOld:
		return s, true
	}
	return "", false
}

func (s Sort) orderBy() string {
	switch s {
	case SortPriceHigh:
		return "ORDER BY COALESCE(h.estimated_value, 0) DESC, h.created_at DESC"
	case SortPriceLow:
		return "ORDER BY COALESCE(h.estimated_value, 0) ASC, h.created_at DESC"
	case SortYearNew:
		return "ORDER BY COALESCE(h.year_built, 0) DESC, h.created_at DESC"
	case SortYearOld:
		return "ORDER BY COALESCE(h.year_built, 0) ASC, h.created_at DESC"
	}
	return "ORDER BY h.created_at DESC"
}

// HouseQuery selects houses for the listing.
type HouseQuery struct {
	Filter         filter.State
	Sort           Sort
	IncludeInvalid bool
	Limit          int
}

const houseColumns = `h.id, h.slug, h.street, h.street_std, h.city, h.city_std, h.state, h.zip,
  h.beds, h.baths, h.sqft, h.lot_acres, h.year_built, h.estimated_value,
  h.architect_id, h.architect_verified, h.description_text, h.featured_photo_url,
  h.address_canonical, h.is_valid, h.created_at, h.updated_at`

const architectColumns = `a.id, a.name, a.birth_year, a.death_year, a.bio, a.wikipedia_url`

type scanner interface {
	Scan(dest ...any) error
}

func scanHouse(row scanner, extra ...any) (domain.House, error) {
	var (
		h                    domain.House
		beds, sqft, year     sql.NullInt64
		baths, lot, value    sql.NullFloat64
		architectID          sql.NullString
		createdAt, updatedAt int64
	)
	dest := []any{
		&h.ID, &h.Slug, &h.Street, &h.StreetStd, &h.City, &h.CityStd, &h.State, &h.Zip,
		&beds, &baths, &sqft, &lot, &year, &value,
		&architectID, &h.ArchitectVerified, &h.Description, &h.FeaturedPhotoURL,
		&h.AddressCanonical, &h.IsValid, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.House{}, err
	}
	h.Beds = intPtr(beds)
	h.Baths = floatPtr(baths)
	h.Sqft = intPtr(sqft)
	h.LotAcres = floatPtr(lot)
	h.YearBuilt = intPtr(year)
	h.EstimatedValue = floatPtr(value)
	h.ArchitectID = strPtr(architectID)
	h.CreatedAt = fromMillis(createdAt)
	h.UpdatedAt = fromMillis(updatedAt)
	return h, nil
}

// joinedArchitect receives the LEFT JOINed architect columns.
type joinedArchitect struct {
	id, name, bio, wiki sql.NullString
	birth, death        sql.NullInt64
}

func (j *joinedArchitect) dest() []any {
	return []any{&j.id, &j.name, &j.birth, &j.death, &j.bio, &j.wiki}
}

func (j *joinedArchitect) architect() *domain.Architect {
	if !j.id.Valid {
		return nil
	}
	return &domain.Architect{
		ID:           j.id.String,
		Name:         j.name.String,
		BirthYear:    intPtr(j.birth),
		DeathYear:    intPtr(j.death),
		Bio:          j.bio.String,
		WikipediaURL: j.wiki.String,
	}
}

// houseWhere compiles a filter snapshot into a WHERE clause. Predicates are
// ANDed; ids within one facet are ORed. A range bound excludes rows whose
// column is NULL.
func (d dialect) houseWhere(q HouseQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, a ...any) {
		where = append(where, clause)
		args = append(args, a...)
	}

	if !q.IncludeInvalid {
		add("h.is_valid = ?", true)
	}

	f := q.Filter
	facets := []struct {
		column string
		ids    []string
	}{
		{"h.architect_id", f.Architects},
		{"h.state", f.States},
		{"h.city_std", f.Cities},
	}
	for _, fc := range facets {
		if len(fc.ids) > 0 {
			clause, a := d.in(fc.column, fc.ids)
			add(clause, a...)
		}
	}
	if len(f.Styles) > 0 {
		clause, a := d.in("hs.style_id", f.Styles)
		add("EXISTS (SELECT 1 FROM house_styles hs WHERE hs.house_id = h.id AND "+clause+")", a...)
	}

	// year_built is an integer column.
	if v := f.YearBuilt.Min; v != nil {
		add("h.year_built >= ?", int64(math.Ceil(*v)))
	}
	if v := f.YearBuilt.Max; v != nil {
		add("h.year_built <= ?", int64(math.Floor(*v)))
	}
	if v := f.Valuation.Min; v != nil {
		add("h.estimated_value >= ?", *v)
	}
	if v := f.Valuation.Max; v != nil {
		add("h.estimated_value <= ?", *v)
	}

	if len(where) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

// ListHouses returns the houses matching q with their architect joined in.
// Styles and photos are not loaded.
func (s *Store) ListHouses(ctx context.Context, q HouseQuery) ([]domain.House, error) {
	whereSQL, args := s.d.houseWhere(q)

	query := `SELECT ` + houseColumns + `, ` + architectColumns + `
FROM houses h
LEFT JOIN architects a ON a.id = h.architect_id
` + whereSQL + "\n" + q.Sort.orderBy()
	if q.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	defer rows.Close()

	out := []domain.House{}
	for rows.Next() {
		var a joinedArchitect
		h, err := scanHouse(rows, a.dest()...)
		if err != nil {
			return nil, fmt.Errorf("scan house: %w", err)
		}
		h.Architect = a.architect()
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) houseWhereOne(ctx context.Context, cond string, args ...any) (domain.House, bool, error) {
	row := s.queryRow(ctx, `SELECT `+houseColumns+` FROM houses h `+cond, args...)
	h, err := scanHouse(row)
	if err == sql.ErrNoRows {
		return domain.House{}, false, nil
	}
	if err != nil {
		return domain.House{}, false, err
	}
	return h, true, nil
}

func (s *Store) HouseByID(ctx context.Context, id string) (domain.House, bool, error) {
	return s.houseWhereOne(ctx, "WHERE h.id = ?", id)
}

func (s *Store) HouseBySlug(ctx context.Context, slug string) (domain.House, bool, error) {
	return s.houseWhereOne(ctx, "WHERE h.slug = ?", slug)
}

// LatestHouse returns the most recently created valid house.
func (s *Store) LatestHouse(ctx context.Context) (domain.House, bool, error) {
	return s.houseWhereOne(ctx, "WHERE h.is_valid = ? ORDER BY h.created_at DESC LIMIT 1", true)
}

// SlugExists reports whether a house already uses slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM houses WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Architect(ctx context.Context, id string) (domain.Architect, bool, error) {
	var a joinedArchitect
	err := s.queryRow(ctx, `SELECT `+architectColumns+` FROM architects a WHERE a.id = ?`, id).Scan(a.dest()...)
	if err == sql.ErrNoRows {
		return domain.Architect{}, false, nil
	}
	if err != nil {
		return domain.Architect{}, false, err
	}
	return *a.architect(), true, nil
}

// Architects returns the architect catalog ordered by name.
func (s *Store) Architects(ctx context.Context) ([]domain.Architect, error) {
	rows, err := s.query(ctx, `SELECT `+architectColumns+` FROM architects a ORDER BY a.name`)
	if err != nil {
		return nil, fmt.Errorf("list architects: %w", err)
	}
	defer rows.Close()

	out := []domain.Architect{}
	for rows.Next() {
		var a joinedArchitect
		if err := rows.Scan(a.dest()...); err != nil {
			return nil, err
		}
		out = append(out, *a.architect())
	}
	return out, rows.Err()
}

// Styles returns the style catalog ordered by name.
func (s *Store) Styles(ctx context.Context) ([]domain.Style, error) {
	rows, err := s.query(ctx, `SELECT id, name, description, years_active, region FROM styles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list styles: %w", err)
	}
	defer rows.Close()

	out := []domain.Style{}
	for rows.Next() {
		var st domain.Style
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.YearsActive, &st.Region); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// HousePhotos returns the photos of a house, featured first.
func (s *Store) HousePhotos(ctx context.Context, houseID string) ([]domain.HousePhoto, error) {
	rows, err := s.query(ctx, `
SELECT id, house_id, photo_url, storage_key, is_featured, created_at
FROM house_photos
WHERE house_id = ?
ORDER BY is_featured DESC, created_at ASC`, houseID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	out := []domain.HousePhoto{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPhoto(row scanner) (domain.HousePhoto, error) {
	var (
		p         domain.HousePhoto
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.HouseID, &p.PhotoURL, &p.StorageKey, &p.IsFeatured, &createdAt); err != nil {
		return domain.HousePhoto{}, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// HouseStyles returns the style associations of the given houses joined with
// the style catalog. With no ids it returns every association.
func (s *Store) HouseStyles(ctx context.Context, houseIDs ...string) ([]domain.HouseStyle, error) {
	query := `
SELECT hs.house_id, hs.style_id, hs.confidence, s.id, s.name, s.description, s.years_active, s.region
FROM house_styles hs
LEFT JOIN styles s ON s.id = hs.style_id`
	var args []any
	if len(houseIDs) > 0 {
		var clause string
		clause, args = s.d.in("hs.house_id", houseIDs)
		query += "\nWHERE " + clause
	}
	query += "\nORDER BY hs.house_id, s.name"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list house styles: %w", err)
	}
	defer rows.Close()

	out := []domain.HouseStyle{}
	for rows.Next() {
		var (
			hs                            domain.HouseStyle
			confidence                    sql.NullFloat64
			id, name, desc, years, region sql.NullString
		)
		if err := rows.Scan(&hs.HouseID, &hs.StyleID, &confidence, &id, &name, &desc, &years, &region); err != nil {
			return nil, err
		}
		hs.Confidence = floatPtr(confidence)
		if id.Valid {
			hs.Style = &domain.Style{
				ID:          id.String,
				Name:        name.String,
				Description: desc.String,
				YearsActive: years.String,
				Region:      region.String,
			}
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}

// HouseFacetRow carries the facet columns of one valid house.
type HouseFacetRow struct {
	ArchitectID *string
	State       string
	City        string
	CityStd     string
}

// ValidHouseFacets returns the facet columns of every valid house, oldest
// first.
func (s *Store) ValidHouseFacets(ctx context.Context) ([]HouseFacetRow, error) {
	rows, err := s.query(ctx, `SELECT architect_id, state, city, city_std FROM houses WHERE is_valid = ? ORDER BY created_at, id`, true)
	if err != nil {
		return nil, fmt.Errorf("list house facets: %w", err)
	}
	defer rows.Close()

	out := []HouseFacetRow{}
	for rows.Next() {
		var (
			r           HouseFacetRow
			architectID sql.NullString
		)
		if err := rows.Scan(&architectID, &r.State, &r.City, &r.CityStd); err != nil {
			return nil, err
		}
		r.ArchitectID = strPtr(architectID)
		out = append(out, r)
	}
	return out, rows.Err()
}
