package houses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
	"github.com/denisok6893-rgb/midmod-radar/internal/storage"
)

// AdminList returns every house, valid or not, newest first.
func (s *Service) AdminList(ctx context.Context) ([]domain.House, error) {
	return s.list(ctx, storage.HouseQuery{Filter: filter.Empty(), Sort: storage.SortRecent, IncludeInvalid: true})
}

// HouseInput is the payload of the admin create form.
type HouseInput struct {
	Street            string   `json:"street"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	Zip               string   `json:"zip"`
	Beds              *int     `json:"beds"`
	Baths             *float64 `json:"baths"`
	Sqft              *int     `json:"sqft"`
	LotAcres          *float64 `json:"lot_acres"`
	YearBuilt         *int     `json:"year_built"`
	EstimatedValue    *float64 `json:"estimated_value"`
	ArchitectID       *string  `json:"architect_id"`
	ArchitectVerified bool     `json:"architect_verified"`
	Description       string   `json:"description_text"`
	IsValid           *bool    `json:"is_valid"`
}

// CreateHouse validates in, derives the standardized address columns and a
// unique slug, and stores the house. New houses are valid unless in says
// otherwise.
func (s *Service) CreateHouse(ctx context.Context, in HouseInput) (*domain.House, error) {
	street := collapseSpaces(in.Street)
	city := collapseSpaces(in.City)
	state := strings.ToUpper(collapseSpaces(in.State))
	switch {
	case street == "":
		return nil, invalidf("street is required")
	case city == "":
		return nil, invalidf("city is required")
	case state == "":
		return nil, invalidf("state is required")
	}
	if err := checkNonNegative(in.Beds, in.Sqft, in.YearBuilt); err != nil {
		return nil, err
	}
	if err := checkNonNegativeFloat(in.Baths, in.LotAcres, in.EstimatedValue); err != nil {
		return nil, err
	}

	if in.ArchitectID != nil && *in.ArchitectID != "" {
		_, ok, err := s.store.Architect(ctx, *in.ArchitectID)
		if err != nil {
			return nil, fmt.Errorf("get architect: %w", err)
		}
		if !ok {
			return nil, invalidf("unknown architect %q", *in.ArchitectID)
		}
	}

	now := s.now().UTC()
	zip := strings.TrimSpace(in.Zip)
	h := domain.House{
		ID:                uuid.NewString(),
		Street:            street,
		StreetStd:         strings.ToLower(street),
		City:              city,
		CityStd:           slugify(city),
		State:             state,
		Zip:               zip,
		Beds:              in.Beds,
		Baths:             in.Baths,
		Sqft:              in.Sqft,
		LotAcres:          in.LotAcres,
		YearBuilt:         in.YearBuilt,
		EstimatedValue:    in.EstimatedValue,
		ArchitectID:       in.ArchitectID,
		ArchitectVerified: in.ArchitectVerified,
		Description:       strings.TrimSpace(in.Description),
		AddressCanonical:  strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s", street, city, state, zip)),
		IsValid:           in.IsValid == nil || *in.IsValid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.insertWithSlug(ctx, &h, slugify(street+" "+city+" "+state)); err != nil {
		return nil, err
	}
	s.log.Info("house created", zap.String("house_id", h.ID), zap.String("slug", h.Slug))
	return s.reload(ctx, h.ID)
}

const slugAttempts = 10

// insertWithSlug picks the first free slug derived from base and inserts h
// under it. A concurrent create can claim the same slug between the check
// and the insert, so the pick is retried.
func (s *Service) insertWithSlug(ctx context.Context, h *domain.House, base string) error {
	for attempt := 1; ; attempt++ {
		slug, err := s.uniqueSlug(ctx, base)
		if err != nil {
			return err
		}
		h.Slug = slug
		err = s.store.CreateHouse(ctx, *h)
		if !errors.Is(err, storage.ErrSlugTaken) || attempt == slugAttempts {
			return err
		}
		s.log.Debug("slug claimed concurrently", zap.String("slug", slug), zap.Int("attempt", attempt))
	}
}

func (s *Service) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "house"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := s.store.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// slugify lower-cases v and joins its letter and digit runs with hyphens.
func slugify(v string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(v) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

func collapseSpaces(v string) string { return strings.Join(strings.Fields(v), " ") }

func checkNonNegative(vs ...*int) error {
	for _, v := range vs {
		if v != nil && *v < 0 {
			return invalidf("numeric fields must not be negative")
		}
	}
	return nil
}

func checkNonNegativeFloat(vs ...*float64) error {
	for _, v := range vs {
		if v != nil && *v < 0 {
			return invalidf("numeric fields must not be negative")
		}
	}
	return nil
}

// ParseHouseUpdate decodes an admin PATCH body. A field set to null clears
// the column; an absent field is left alone.
func ParseHouseUpdate(data []byte) (storage.HouseUpdate, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return storage.HouseUpdate{}, invalidf("malformed body: %v", err)
	}

	var u storage.HouseUpdate
	for key, raw := range fields {
		isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
		var err error
		switch key {
		case "description_text":
			if !isNull {
				err = json.Unmarshal(raw, &u.Description)
			} else {
				u.Description = new(string)
			}
		case "is_valid":
			if isNull {
				err = errors.New("cannot be null")
			} else {
				err = json.Unmarshal(raw, &u.IsValid)
			}
		case "estimated_value":
			u.ClearEstimatedValue = isNull
			err = decodeUnlessNull(raw, isNull, &u.EstimatedValue)
		case "beds":
			u.ClearBeds = isNull
			err = decodeUnlessNull(raw, isNull, &u.Beds)
		case "baths":
			u.ClearBaths = isNull
			err = decodeUnlessNull(raw, isNull, &u.Baths)
		case "sqft":
			u.ClearSqft = isNull
			err = decodeUnlessNull(raw, isNull, &u.Sqft)
		case "lot_acres":
			u.ClearLotAcres = isNull
			err = decodeUnlessNull(raw, isNull, &u.LotAcres)
		case "year_built":
			u.ClearYearBuilt = isNull
			err = decodeUnlessNull(raw, isNull, &u.YearBuilt)
		default:
			return storage.HouseUpdate{}, invalidf("field %q is not editable", key)
		}
		if err != nil {
			return storage.HouseUpdate{}, invalidf("%s: %v", key, err)
		}
	}

	if err := checkNonNegative(u.Beds, u.Sqft, u.YearBuilt); err != nil {
		return storage.HouseUpdate{}, err
	}
	if err := checkNonNegativeFloat(u.Baths, u.LotAcres, u.EstimatedValue); err != nil {
		return storage.HouseUpdate{}, err
	}
	return u, nil
}

func decodeUnlessNull[T any](raw json.RawMessage, isNull bool, dst **T) error {
	if isNull {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// UpdateHouse applies u and returns the refreshed house.
func (s *Service) UpdateHouse(ctx context.Context, id string, u storage.HouseUpdate) (*domain.House, error) {
	ok, err := s.store.UpdateHouse(ctx, id, u, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.log.Info("house updated", zap.String("house_id", id))
	return s.reload(ctx, id)
}

// DeleteHouse removes a house with its relations. Stored photo files are
// removed afterwards; failures there are only logged.
func (s *Service) DeleteHouse(ctx context.Context, id string) error {
	photos, err := s.store.HousePhotos(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.store.DeleteHouse(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	for _, p := range photos {
		s.removeObject(ctx, p)
	}
	s.log.Info("house deleted", zap.String("house_id", id), zap.Int("photos", len(photos)))
	return nil
}

func (s *Service) CreateArchitect(ctx context.Context, a domain.Architect) (domain.Architect, error) {
	a.Name = collapseSpaces(a.Name)
	if a.Name == "" {
		return domain.Architect{}, invalidf("name is required")
	}
	if a.BirthYear != nil && a.DeathYear != nil && *a.DeathYear < *a.BirthYear {
		return domain.Architect{}, invalidf("death year precedes birth year")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.store.CreateArchitect(ctx, a); err != nil {
		return domain.Architect{}, err
	}
	return a, nil
}

func (s *Service) CreateStyle(ctx context.Context, st domain.Style) (domain.Style, error) {
	st.Name = collapseSpaces(st.Name)
	if st.Name == "" {
		return domain.Style{}, invalidf("name is required")
	}
	existing, err := s.store.Styles(ctx)
	if err != nil {
		return domain.Style{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, st.Name) {
			return domain.Style{}, invalidf("style %q already exists", e.Name)
		}
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if err := s.store.CreateStyle(ctx, st); err != nil {
		return domain.Style{}, err
	}
	return st, nil
}

// AttachStyle links a catalog style to a house. Confidence, when given, is in
// 0..1.
func (s *Service) AttachStyle(ctx context.Context, houseID, styleID string, confidence *float64) error {
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return invalidf("confidence must be between 0 and 1")
	}
	if _, ok, err := s.store.HouseByID(ctx, houseID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}

	styles, err := s.store.Styles(ctx)
	if err != nil {
		return err
	}
	known := false
	for _, st := range styles {
		if st.ID == styleID {
			known = true
			break
		}
	}
	if !known {
		return invalidf("unknown style %q", styleID)
	}

	return s.store.AttachStyle(ctx, domain.HouseStyle{HouseID: houseID, StyleID: styleID, Confidence: confidence})
}

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// UploadPhoto stores the file at <house_id>/<unix_nanos>.<ext> and records it.
// The first photo of a house becomes its featured photo.
func (s *Service) UploadPhoto(ctx context.Context, houseID, filename string, r io.Reader) (domain.HousePhoto, error) {
	if s.objects == nil {
		return domain.HousePhoto{}, errors.New("photo storage is not configured")
	}
	ext := strings.ToLower(path.Ext(filename))
	if !photoExtensions[ext] {
		return domain.HousePhoto{}, invalidf("unsupported photo type %q", ext)
	}
	if _, ok, err := s.store.HouseByID(ctx, houseID); err != nil {
		return domain.HousePhoto{}, err
	} else if !ok {
		return domain.HousePhoto{}, ErrNotFound
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s/%d%s", houseID, now.UnixNano(), ext)
	if err := s.objects.Put(ctx, key, r); err != nil {
		return domain.HousePhoto{}, fmt.Errorf("store photo: %w", err)
	}

	p, err := s.store.AddPhoto(ctx, domain.HousePhoto{
		ID:         uuid.NewString(),
		HouseID:    houseID,
		PhotoURL:   s.objects.PublicURL(key),
		StorageKey: key,
		CreatedAt:  now,
	})
	if err != nil {
		s.removeObject(ctx, domain.HousePhoto{HouseID: houseID, StorageKey: key})
		return domain.HousePhoto{}, err
	}
	s.log.Info("photo uploaded", zap.String("house_id", houseID), zap.String("photo_id", p.ID), zap.Bool("featured", p.IsFeatured))
	return p, nil
}

func (s *Service) SetFeaturedPhoto(ctx context.Context, houseID, photoID string) error {
	err := s.store.SetFeaturedPhoto(ctx, houseID, photoID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// DeletePhoto removes the photo row and then its stored file.
func (s *Service) DeletePhoto(ctx context.Context, houseID, photoID string) error {
	p, err := s.store.DeletePhoto(ctx, houseID, photoID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.removeObject(ctx, p)
	return nil
}

func (s *Service) removeObject(ctx context.Context, p domain.HousePhoto) {
	if s.objects == nil || p.StorageKey == "" {
		return
	}
	if err := s.objects.Remove(ctx, p.StorageKey); err != nil {
		s.log.Warn("remove photo object",
			zap.String("house_id", p.HouseID),
			zap.String("key", p.StorageKey),
			zap.Error(err))
	}
}

// Subscribe records an email address for listing alerts. The address must be
// a bare address and consent must be given; repeats are accepted.
func (s *Service) Subscribe(ctx context.Context, email string, consent bool) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalidf("Please enter your email address")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return invalidf("Please enter a valid email address")
	}
	if !consent {
		return invalidf("Please accept the privacy policy")
	}
	return s.store.AddSubscriber(ctx, domain.Subscriber{Email: strings.ToLower(email), CreatedAt: s.now().UTC()})
}
