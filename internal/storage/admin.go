package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
)

// CreateHouse inserts h without its relations. ID, slug and timestamps must
// already be set. A slug already in use yields ErrSlugTaken.
func (s *Store) CreateHouse(ctx context.Context, h domain.House) error {
	_, err := s.exec(ctx, `
INSERT INTO houses
(id, slug, street, street_std, city, city_std, state, zip, beds, baths, sqft, lot_acres,
 year_built, estimated_value, architect_id, architect_verified, description_text,
 featured_photo_url, address_canonical, is_valid, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Slug, h.Street, h.StreetStd, h.City, h.CityStd, h.State, h.Zip,
		nullInt(h.Beds), nullFloat(h.Baths), nullInt(h.Sqft), nullFloat(h.LotAcres),
		nullInt(h.YearBuilt), nullFloat(h.EstimatedValue), nullStr(h.ArchitectID), h.ArchitectVerified,
		h.Description, h.FeaturedPhotoURL, h.AddressCanonical, h.IsValid,
		toMillis(h.CreatedAt), toMillis(h.UpdatedAt),
	)
	if s.d.uniqueViolation(err, "houses", "slug") {
		return fmt.Errorf("insert house %q: %w", h.Slug, ErrSlugTaken)
	}
	if err != nil {
		return fmt.Errorf("insert house: %w", err)
	}
	return nil
}

// HouseUpdate holds the admin-editable columns. Nil fields are left alone;
// the Clear* flags set the column to NULL.
type HouseUpdate struct {
	Description    *string
	EstimatedValue *float64
	Beds           *int
	Baths          *float64
	Sqft           *int
	LotAcres       *float64
	YearBuilt      *int
	IsValid        *bool

	ClearEstimatedValue bool
	ClearBeds           bool
	ClearBaths          bool
	ClearSqft           bool
	ClearLotAcres       bool
	ClearYearBuilt      bool
}

// UpdateHouse applies u and bumps updated_at. It reports false when the
// house does not exist.
func (s *Store) UpdateHouse(ctx context.Context, id string, u HouseUpdate, now time.Time) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(now)}
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if u.Description != nil {
		set("description_text", *u.Description)
	}
	if u.IsValid != nil {
		set("is_valid", *u.IsValid)
	}
	nullable := []struct {
		column string
		value  any
		clear  bool
		given  bool
	}{
		{"estimated_value", nullFloat(u.EstimatedValue), u.ClearEstimatedValue, u.EstimatedValue != nil},
		{"beds", nullInt(u.Beds), u.ClearBeds, u.Beds != nil},
		{"baths", nullFloat(u.Baths), u.ClearBaths, u.Baths != nil},
		{"sqft", nullInt(u.Sqft), u.ClearSqft, u.Sqft != nil},
		{"lot_acres", nullFloat(u.LotAcres), u.ClearLotAcres, u.LotAcres != nil},
		{"year_built", nullInt(u.YearBuilt), u.ClearYearBuilt, u.YearBuilt != nil},
	}
	for _, n := range nullable {
		switch {
		case n.clear:
			set(n.column, nil)
		case n.given:
			set(n.column, n.value)
		}
	}

	query := "UPDATE houses SET " + joinComma(sets) + " WHERE id = ?"
	res, err := s.exec(ctx, query, append(args, id)...)
	if err != nil {
		return false, fmt.Errorf("update house: %w", err)
	}
	return affected(res), nil
}

// DeleteHouse removes a house; style links and photo rows cascade.
func (s *Store) DeleteHouse(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM houses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete house: %w", err)
	}
	return affected(res), nil
}

func (s *Store) CreateArchitect(ctx context.Context, a domain.Architect) error {
	_, err := s.exec(ctx, `
INSERT INTO architects (id, name, birth_year, death_year, bio, wikipedia_url)
VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, nullInt(a.BirthYear), nullInt(a.DeathYear), a.Bio, a.WikipediaURL,
	)
	if err != nil {
		return fmt.Errorf("insert architect: %w", err)
	}
	return nil
}

func (s *Store) CreateStyle(ctx context.Context, st domain.Style) error {
	_, err := s.exec(ctx, `
INSERT INTO styles (id, name, description, years_active, region)
VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.Name, st.Description, st.YearsActive, st.Region,
	)
	if err != nil {
		return fmt.Errorf("insert style: %w", err)
	}
	return nil
}

// AttachStyle links a style to a house, replacing the confidence of an
// existing link.
func (s *Store) AttachStyle(ctx context.Context, hs domain.HouseStyle) error {
	_, err := s.exec(ctx, `
INSERT INTO house_styles (house_id, style_id, confidence)
VALUES (?, ?, ?)
ON CONFLICT (house_id, style_id) DO UPDATE SET confidence = excluded.confidence`,
		hs.HouseID, hs.StyleID, nullFloat(hs.Confidence),
	)
	if err != nil {
		return fmt.Errorf("attach style: %w", err)
	}
	return nil
}

// AddPhoto stores a photo row. The first photo of a house becomes its
// featured photo and is copied to houses.featured_photo_url.
func (s *Store) AddPhoto(ctx context.Context, p domain.HousePhoto) (domain.HousePhoto, error) {
	err := s.inTx(ctx, func(tx *Store) error {
		var n int
		if err := tx.queryRow(ctx, `SELECT COUNT(*) FROM house_photos WHERE house_id = ?`, p.HouseID).Scan(&n); err != nil {
			return fmt.Errorf("count photos: %w", err)
		}
		p.IsFeatured = n == 0

		if _, err := tx.exec(ctx, `
INSERT INTO house_photos (id, house_id, photo_url, storage_key, is_featured, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.HouseID, p.PhotoURL, p.StorageKey, p.IsFeatured, toMillis(p.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert photo: %w", err)
		}

		if p.IsFeatured {
			if _, err := tx.exec(ctx, `UPDATE houses SET featured_photo_url = ? WHERE id = ?`, p.PhotoURL, p.HouseID); err != nil {
				return fmt.Errorf("update featured photo url: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.HousePhoto{}, err
	}
	return p, nil
}

// SetFeaturedPhoto makes photoID the only featured photo of houseID.
func (s *Store) SetFeaturedPhoto(ctx context.Context, houseID, photoID string) error {
	return s.inTx(ctx, func(tx *Store) error {
		p, err := scanPhoto(tx.queryRow(ctx, `
SELECT id, house_id, photo_url, storage_key, is_featured, created_at
FROM house_photos WHERE id = ? AND house_id = ?`, photoID, houseID))
		if err != nil {
			if isNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("get photo: %w", err)
		}

		// Clear first: at most one featured row per house is a unique index.
		if _, err := tx.exec(ctx, `UPDATE house_photos SET is_featured = ? WHERE house_id = ? AND id <> ?`, false, houseID, photoID); err != nil {
			return fmt.Errorf("reset featured photos: %w", err)
		}
		if _, err := tx.exec(ctx, `UPDATE house_photos SET is_featured = ? WHERE id = ?`, true, photoID); err != nil {
			return fmt.Errorf("set featured photo: %w", err)
		}
		if _, err := tx.exec(ctx, `UPDATE houses SET featured_photo_url = ? WHERE id = ?`, p.PhotoURL, houseID); err != nil {
			return fmt.Errorf("update featured photo url: %w", err)
		}
		return nil
	})
}

// DeletePhoto removes a photo row and returns it so the caller can remove
// the stored object. Deleting the featured photo clears the house's
// featured_photo_url.
func (s *Store) DeletePhoto(ctx context.Context, houseID, photoID string) (domain.HousePhoto, error) {
	var deleted domain.HousePhoto
	err := s.inTx(ctx, func(tx *Store) error {
		p, err := scanPhoto(tx.queryRow(ctx, `
SELECT id, house_id, photo_url, storage_key, is_featured, created_at
FROM house_photos WHERE id = ? AND house_id = ?`, photoID, houseID))
		if err != nil {
			if isNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("get photo: %w", err)
		}
		if _, err := tx.exec(ctx, `DELETE FROM house_photos WHERE id = ?`, photoID); err != nil {
			return fmt.Errorf("delete photo: %w", err)
		}
		if p.IsFeatured {
			if _, err := tx.exec(ctx, `UPDATE houses SET featured_photo_url = '' WHERE id = ?`, houseID); err != nil {
				return fmt.Errorf("clear featured photo url: %w", err)
			}
		}
		deleted = p
		return nil
	})
	return deleted, err
}

// AddSubscriber records an email address. Repeated addresses are ignored.
func (s *Store) AddSubscriber(ctx context.Context, sub domain.Subscriber) error {
	_, err := s.exec(ctx, `
INSERT INTO subscribers (email, created_at) VALUES (?, ?)
ON CONFLICT (email) DO NOTHING`,
		sub.Email, toMillis(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// CountSubscribers returns the number of stored addresses.
func (s *Store) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n)
	return n, err
}
