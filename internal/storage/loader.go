package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
)

// SeedData is the catalog snapshot loaded by the seed command. Houses may
// carry nested styles and photos.
type SeedData struct {
	Architects []domain.Architect `json:"architects"`
	Styles     []domain.Style     `json:"styles"`
	Houses     []domain.House     `json:"houses"`
}

// LoadSeedFromFile reads a seed file. YAML files (.yaml, .yml) are accepted
// alongside JSON and decoded with the same field names.
func LoadSeedFromFile(path string) (SeedData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return SeedData{}, fmt.Errorf("unmarshal seed yaml: %w", err)
		}
		if b, err = json.Marshal(doc); err != nil {
			return SeedData{}, fmt.Errorf("convert seed yaml: %w", err)
		}
	}

	var data SeedData
	if err := json.Unmarshal(b, &data); err != nil {
		return SeedData{}, fmt.Errorf("unmarshal seed: %w", err)
	}
	return data, nil
}

// Seed inserts the snapshot in one transaction without duplicating rows that
// already exist. Houses without timestamps get now, spaced one millisecond
// apart in file order so that the first house in the file is the newest.
func (s *Store) Seed(ctx context.Context, data SeedData, now time.Time) error {
	return s.inTx(ctx, func(tx *Store) error {
		for _, a := range data.Architects {
			if _, err := tx.exec(ctx, `
INSERT INTO architects (id, name, birth_year, death_year, bio, wikipedia_url)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
				a.ID, a.Name, nullInt(a.BirthYear), nullInt(a.DeathYear), a.Bio, a.WikipediaURL,
			); err != nil {
				return fmt.Errorf("seed architect %s: %w", a.ID, err)
			}
		}

		for _, st := range data.Styles {
			if _, err := tx.exec(ctx, `
INSERT INTO styles (id, name, description, years_active, region)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
				st.ID, st.Name, st.Description, st.YearsActive, st.Region,
			); err != nil {
				return fmt.Errorf("seed style %s: %w", st.ID, err)
			}
		}

		for i, h := range data.Houses {
			if h.CreatedAt.IsZero() {
				h.CreatedAt = now.Add(-time.Duration(i) * time.Millisecond)
			}
			if h.UpdatedAt.IsZero() {
				h.UpdatedAt = h.CreatedAt
			}
			if _, err := tx.exec(ctx, `
INSERT INTO houses
(id, slug, street, street_std, city, city_std, state, zip, beds, baths, sqft, lot_acres,
 year_built, estimated_value, architect_id, architect_verified, description_text,
 featured_photo_url, address_canonical, is_valid, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
				h.ID, h.Slug, h.Street, h.StreetStd, h.City, h.CityStd, h.State, h.Zip,
				nullInt(h.Beds), nullFloat(h.Baths), nullInt(h.Sqft), nullFloat(h.LotAcres),
				nullInt(h.YearBuilt), nullFloat(h.EstimatedValue), nullStr(h.ArchitectID), h.ArchitectVerified,
				h.Description, h.FeaturedPhotoURL, h.AddressCanonical, h.IsValid,
				toMillis(h.CreatedAt), toMillis(h.UpdatedAt),
			); err != nil {
				return fmt.Errorf("seed house %s: %w", h.ID, err)
			}

			for _, hs := range h.Styles {
				hs.HouseID = h.ID
				if _, err := tx.exec(ctx, `
INSERT INTO house_styles (house_id, style_id, confidence)
VALUES (?, ?, ?)
ON CONFLICT (house_id, style_id) DO NOTHING`,
					hs.HouseID, hs.StyleID, nullFloat(hs.Confidence),
				); err != nil {
					return fmt.Errorf("seed house style %s/%s: %w", h.ID, hs.StyleID, err)
				}
			}

			for _, p := range h.Photos {
				if p.CreatedAt.IsZero() {
					p.CreatedAt = h.CreatedAt
				}
				if _, err := tx.exec(ctx, `
INSERT INTO house_photos (id, house_id, photo_url, storage_key, is_featured, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
					p.ID, h.ID, p.PhotoURL, p.StorageKey, p.IsFeatured, toMillis(p.CreatedAt),
				); err != nil {
					return fmt.Errorf("seed photo %s: %w", p.ID, err)
				}
			}
		}
		return nil
	})
}
