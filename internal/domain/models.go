package domain

import "time"

type House struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Street            string    `json:"street"`
	StreetStd         string    `json:"street_std"`
	City              string    `json:"city"`
	CityStd           string    `json:"city_std"`
	State             string    `json:"state"`
	Zip               string    `json:"zip"`
	Beds              *int      `json:"beds"`
	Baths             *float64  `json:"baths"`
	Sqft              *int      `json:"sqft"`
	LotAcres          *float64  `json:"lot_acres"`
	YearBuilt         *int      `json:"year_built"`
	EstimatedValue    *float64  `json:"estimated_value"`
	ArchitectID       *string   `json:"architect_id"`
	ArchitectVerified bool      `json:"architect_verified"`
	Description       string    `json:"description_text"`
	FeaturedPhotoURL  string    `json:"featured_photo_url"`
	AddressCanonical  string    `json:"address_canonical"`
	IsValid           bool      `json:"is_valid"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Architect *Architect   `json:"architect,omitempty"`
	Photos    []HousePhoto `json:"photos,omitempty"`
	Styles    []HouseStyle `json:"styles,omitempty"`
}

// StyleIDs returns the ids of the styles attached to the house.
func (h House) StyleIDs() []string {
	out := make([]string, 0, len(h.Styles))
	for _, s := range h.Styles {
		out = append(out, s.StyleID)
	}
	return out
}

type Architect struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BirthYear    *int   `json:"birth_year"`
	DeathYear    *int   `json:"death_year"`
	Bio          string `json:"bio"`
	WikipediaURL string `json:"wikipedia_url"`
}

type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	YearsActive string `json:"years_active"`
	Region      string `json:"region"`
}

// HouseStyle is a row of the house_styles join table, optionally decorated
// with the catalog entry it points to.
type HouseStyle struct {
	HouseID    string   `json:"house_id"`
	StyleID    string   `json:"style_id"`
	Confidence *float64 `json:"confidence"`
	Style      *Style   `json:"style,omitempty"`
}

type HousePhoto struct {
	ID         string    `json:"id"`
	HouseID    string    `json:"house_id"`
	PhotoURL   string    `json:"photo_url"`
	StorageKey string    `json:"storage_key"`
	IsFeatured bool      `json:"is_featured"`
	CreatedAt  time.Time `json:"created_at"`
}

// FacetOption is one selectable value of a filter dimension together with
// the number of houses that carry it.
type FacetOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Subscriber struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type ScoreResult struct {
	House   House         `json:"house"`
	Score   float64       `json:"score"`
	Reasons []ScoreReason `json:"reasons"`
}

type ScoreReason struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Impact  float64 `json:"impact"`
}
