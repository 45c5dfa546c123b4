// Package profileflow is the four-section profile completion state machine:
// Identity, Education, Certification, Experience, gated by a tab pointer.
// Each section persists to the profile backend independently and unlocks
// the next; the Identity fields lock permanently after their first save.
package profileflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/statestore"
	"github.com/diploy/competency-gateway/pkg/client"
)

// Section identifies one tab of the profile flow, in completion order.
type Section string

const (
	SectionIdentity      Section = "data-diri"
	SectionEducation     Section = "pendidikan"
	SectionCertification Section = "sertifikasi"
	SectionExperience    Section = "pengalaman"
)

// sectionOrder is the tab sequence. Saving section N advances to N+1.
var sectionOrder = []Section{
	SectionIdentity,
	SectionEducation,
	SectionCertification,
	SectionExperience,
}

// ErrSaveInFlight guards against duplicate concurrent saves of the same
// logical action.
var ErrSaveInFlight = errors.New("save already in flight")

// ValidationError is a locally-resolved field error. It never reaches the
// network layer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Backend is the subset of the SDK the flow needs.
type Backend interface {
	GetProfile(ctx context.Context, token string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*models.Profile, error)
	AddEducation(ctx context.Context, token string, edu models.Education) (*models.Education, error)
	DeleteEducation(ctx context.Context, token string, id int) error
	AddCertification(ctx context.Context, token string, cert client.CertificationUpload) (*models.Certification, error)
	DeleteCertification(ctx context.Context, token string, id int) error
	AddExperience(ctx context.Context, token string, exp models.Experience) (*models.Experience, error)
	DeleteExperience(ctx context.Context, token string, id int) error
}

// TokenFunc resolves the session's bearer token.
type TokenFunc func(ctx context.Context) (string, error)

// IdentityForm holds the Identity tab fields. The first four lock after the
// first successful save.
type IdentityForm struct {
	NIK       string `json:"nik"`
	FullName  string `json:"full_name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`

	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"`
	LinkedinURL       string `json:"linkedin_url,omitempty"`
	InstagramUsername string `json:"instagram_username,omitempty"`
	PortfolioURL      string `json:"portfolio_url,omitempty"`
	Address           string `json:"address,omitempty"`
	Bio               string `json:"bio,omitempty"`
}

// LockedFields records which identity fields are permanently read-only.
// The flags persist in the session store independent of server state; see
// the drift note in DESIGN.md.
type LockedFields struct {
	NIK       bool `json:"nik,omitempty"`
	FullName  bool `json:"nama,omitempty"`
	Gender    bool `json:"gender,omitempty"`
	BirthDate bool `json:"tanggalLahir,omitempty"`
}

// Any reports whether at least one identity field is locked.
func (l LockedFields) Any() bool {
	return l.NIK || l.FullName || l.Gender || l.BirthDate
}

// Flow is the profile completion state machine for one session.
type Flow struct {
	backend   Backend
	token     TokenFunc
	store     statestore.Store
	sessionID string

	mu             sync.Mutex
	active         Section
	identity       IdentityForm
	locked         LockedFields
	educations     []models.Education
	certifications []models.Certification
	experiences    []models.Experience
	avatarURL      string
	skills         []string
	busy           bool
}

// NewFlow creates the flow for a session. Call Load before use.
func NewFlow(backend Backend, token TokenFunc, store statestore.Store, sessionID string) *Flow {
	return &Flow{
		backend:   backend,
		token:     token,
		store:     store,
		sessionID: sessionID,
		active:    SectionIdentity,
	}
}

// Load pulls the profile from the backend and restores the lock flags and
// the active tab from the session store.
func (f *Flow) Load(ctx context.Context) error {
	token, err := f.token(ctx)
	if err != nil {
		return err
	}

	profile, err := f.backend.GetProfile(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.identity = IdentityForm{
		NIK:               profile.NIK,
		FullName:          profile.FullName,
		Gender:            profile.Gender,
		BirthDate:         profile.BirthDate,
		Email:             profile.Email,
		Phone:             profile.Phone,
		LinkedinURL:       profile.LinkedinURL,
		InstagramUsername: profile.InstagramUsername,
		PortfolioURL:      profile.PortfolioURL,
		Address:           profile.Address,
		Bio:               profile.Bio,
	}
	f.educations = profile.Educations
	f.certifications = profile.Certifications
	f.experiences = profile.Experiences
	f.avatarURL = profile.AvatarURL
	f.skills = profile.Skills

	f.locked = f.loadLocked(ctx)
	if tab, err := f.store.Get(ctx, f.sessionID, statestore.KeyActiveTab); err == nil {
		f.active = Section(tab)
	}

	return nil
}

// UpdateIdentity merges the submitted form into the flow. Locked fields
// keep their stored values: even a reset in-memory form cannot erase them.
func (f *Flow) UpdateIdentity(form IdentityForm) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.locked.NIK {
		form.NIK = f.identity.NIK
	}
	if f.locked.FullName {
		form.FullName = f.identity.FullName
	}
	if f.locked.Gender {
		form.Gender = f.identity.Gender
	}
	if f.locked.BirthDate {
		form.BirthDate = f.identity.BirthDate
	}
	f.identity = form
}

// IdentityValid reports whether the required identity fields are present.
func (f *Flow) IdentityValid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return validateIdentity(f.identity) == nil
}

func validateIdentity(form IdentityForm) error {
	switch {
	case form.NIK == "":
		return &ValidationError{Field: "nik", Message: "wajib diisi"}
	case form.FullName == "":
		return &ValidationError{Field: "full_name", Message: "wajib diisi"}
	case form.Gender == "":
		return &ValidationError{Field: "gender", Message: "wajib diisi"}
	case form.BirthDate == "":
		return &ValidationError{Field: "birth_date", Message: "wajib diisi"}
	}
	return nil
}

// SaveIdentity validates, persists the rewritable fields, locks the four
// identity fields and advances the tab to Education. The identity fields
// themselves are not part of the update payload; the backend fixed them at
// registration.
func (f *Flow) SaveIdentity(ctx context.Context) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrSaveInFlight
	}
	if err := validateIdentity(f.identity); err != nil {
		f.mu.Unlock()
		return err
	}
	f.busy = true
	update := models.ProfileUpdate{
		Phone:             f.identity.Phone,
		LinkedinURL:       f.identity.LinkedinURL,
		PortfolioURL:      f.identity.PortfolioURL,
		InstagramUsername: f.identity.InstagramUsername,
		Address:           f.identity.Address,
		Bio:               f.identity.Bio,
	}
	f.mu.Unlock()

	defer f.clearBusy()

	token, err := f.token(ctx)
	if err != nil {
		return err
	}

	if _, err := f.backend.UpdateProfile(ctx, token, update); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	f.mu.Lock()
	f.locked = LockedFields{NIK: true, FullName: true, Gender: true, BirthDate: true}
	f.active = SectionEducation
	f.mu.Unlock()

	f.persistLocked(ctx)
	f.persistActive(ctx, SectionEducation)
	return nil
}

// Locked returns the identity lock flags.
func (f *Flow) Locked() LockedFields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

// ActiveSection returns the currently unlocked tab.
func (f *Flow) ActiveSection() Section {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Advance moves the tab pointer past a list-typed section once its "next
// enabled" condition holds. Earlier sections are never revalidated.
func (f *Flow) Advance(ctx context.Context, from Section) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.sectionValidLocked(from) {
		return &ValidationError{Field: string(from), Message: "lengkapi isian wajib terlebih dahulu"}
	}

	for i, s := range sectionOrder {
		if s == from && i+1 < len(sectionOrder) {
			f.active = sectionOrder[i+1]
			f.persistActive(ctx, f.active)
			return nil
		}
	}
	return nil
}

// SectionValid reports the "next enabled" condition of a section. For
// list-typed sections it depends only on the first entry.
func (f *Flow) SectionValid(s Section) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sectionValidLocked(s)
}

func (f *Flow) sectionValidLocked(s Section) bool {
	switch s {
	case SectionIdentity:
		return validateIdentity(f.identity) == nil
	case SectionEducation:
		if len(f.educations) == 0 {
			return false
		}
		first := f.educations[0]
		if first.Level == "" {
			return false
		}
		if first.Level == models.EducationOther {
			return true
		}
		return first.InstitutionName != ""
	case SectionCertification:
		// Certifications are optional; the tab can always advance.
		return true
	case SectionExperience:
		return true
	default:
		return false
	}
}

func (f *Flow) clearBusy() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *Flow) persistActive(ctx context.Context, active Section) {
	if err := f.store.Set(ctx, f.sessionID, statestore.KeyActiveTab, string(active)); err != nil {
		slog.Warn("failed to persist active tab", "error", err)
	}
}

// Snapshot is a consistent read of the flow for rendering.
type Snapshot struct {
	Active         Section                `json:"active"`
	Identity       IdentityForm           `json:"identity"`
	Locked         LockedFields           `json:"locked"`
	Educations     []models.Education     `json:"educations"`
	Certifications []models.Certification `json:"certifications"`
	Experiences    []models.Experience    `json:"experiences"`
	AvatarURL      string                 `json:"avatar_url,omitempty"`
	Skills         []string               `json:"skills,omitempty"`
	Completeness   int                    `json:"completeness"`
	Missing        []string               `json:"missing,omitempty"`
}

// Snapshot returns a copy of the flow state, including the completeness
// score.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	score, missing := f.completenessLocked()

	return Snapshot{
		Active:         f.active,
		Identity:       f.identity,
		Locked:         f.locked,
		Educations:     append([]models.Education(nil), f.educations...),
		Certifications: append([]models.Certification(nil), f.certifications...),
		Experiences:    append([]models.Experience(nil), f.experiences...),
		AvatarURL:      f.avatarURL,
		Skills:         append([]string(nil), f.skills...),
		Completeness:   score,
		Missing:        missing,
	}
}

// completenessLocked scores the profile the way the backend does: contact
// details 25, avatar 15, education 30, certification or experience 30.
func (f *Flow) completenessLocked() (int, []string) {
	score := 0
	var missing []string

	if f.identity.Phone != "" && f.identity.Address != "" && f.identity.Bio != "" {
		score += 25
	} else {
		missing = append(missing, "Lengkapi No HP, Alamat, dan Bio")
	}
	if f.avatarURL != "" {
		score += 15
	} else {
		missing = append(missing, "Upload Foto Profil")
	}
	if len(f.educations) > 0 {
		score += 30
	} else {
		missing = append(missing, "Tambahkan Riwayat Pendidikan")
	}
	if len(f.certifications) > 0 || len(f.experiences) > 0 {
		score += 30
	} else {
		missing = append(missing, "Tambahkan Sertifikasi atau Pengalaman")
	}

	return score, missing
}

// --- identity lock persistence ---

func (f *Flow) loadLocked(ctx context.Context) LockedFields {
	raw, err := f.store.Get(ctx, f.sessionID, statestore.KeyProfileLocked)
	if err != nil {
		return LockedFields{}
	}
	var locked LockedFields
	if err := unmarshalLocked(raw, &locked); err != nil {
		slog.Warn("failed to parse lock flags, ignoring", "error", err)
		return LockedFields{}
	}
	return locked
}

func (f *Flow) persistLocked(ctx context.Context) {
	f.mu.Lock()
	raw, err := marshalLocked(f.locked)
	f.mu.Unlock()
	if err != nil {
		slog.Warn("failed to marshal lock flags", "error", err)
		return
	}
	if err := f.store.Set(ctx, f.sessionID, statestore.KeyProfileLocked, raw); err != nil {
		slog.Warn("failed to persist lock flags", "error", err)
	}
}

// certYearWindow bounds the certification year to the current year +/- 5.
const certYearWindow = 5

func validCertYear(year int) bool {
	current := time.Now().Year()
	return year >= current-certYearWindow && year <= current+certYearWindow
}
