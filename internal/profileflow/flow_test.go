package profileflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/statestore"
	"github.com/diploy/competency-gateway/pkg/client"
)

type fakeBackend struct {
	profile     models.Profile
	updates     []models.ProfileUpdate
	educations  []models.Education
	experiences []models.Experience
	certs       []client.CertificationUpload
	nextID      int
}

func (f *fakeBackend) GetProfile(ctx context.Context, token string) (*models.Profile, error) {
	p := f.profile
	return &p, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*models.Profile, error) {
	f.updates = append(f.updates, update)
	p := f.profile
	return &p, nil
}

func (f *fakeBackend) AddEducation(ctx context.Context, token string, edu models.Education) (*models.Education, error) {
	f.nextID++
	edu.ID = f.nextID
	f.educations = append(f.educations, edu)
	return &edu, nil
}

func (f *fakeBackend) DeleteEducation(ctx context.Context, token string, id int) error { return nil }

func (f *fakeBackend) AddCertification(ctx context.Context, token string, cert client.CertificationUpload) (*models.Certification, error) {
	f.nextID++
	f.certs = append(f.certs, cert)
	return &models.Certification{ID: f.nextID, Name: cert.Name, Organizer: cert.Organizer, Year: cert.Year}, nil
}

func (f *fakeBackend) DeleteCertification(ctx context.Context, token string, id int) error {
	return nil
}

func (f *fakeBackend) AddExperience(ctx context.Context, token string, exp models.Experience) (*models.Experience, error) {
	f.nextID++
	exp.ID = f.nextID
	f.experiences = append(f.experiences, exp)
	return &exp, nil
}

func (f *fakeBackend) DeleteExperience(ctx context.Context, token string, id int) error { return nil }

func newTestFlow(backend *fakeBackend) (*Flow, statestore.Store) {
	store := statestore.NewMemoryStore()
	token := func(ctx context.Context) (string, error) { return "tok", nil }
	return NewFlow(backend, token, store, "sess-1"), store
}

func validIdentity() IdentityForm {
	return IdentityForm{
		NIK:       "1234567890123456",
		FullName:  "Budi Santoso",
		Gender:    models.GenderMale,
		BirthDate: "1999-01-31",
		Phone:     "081234567890",
	}
}

func TestSaveIdentityLocksFieldsAndAdvances(t *testing.T) {
	backend := &fakeBackend{}
	flow, store := newTestFlow(backend)
	require.NoError(t, flow.Load(context.Background()))

	flow.UpdateIdentity(validIdentity())
	require.NoError(t, flow.SaveIdentity(context.Background()))

	locked := flow.Locked()
	assert.True(t, locked.NIK)
	assert.True(t, locked.FullName)
	assert.True(t, locked.Gender)
	assert.True(t, locked.BirthDate)
	assert.Equal(t, SectionEducation, flow.ActiveSection())

	// Lock flags survive in the session store.
	raw, err := store.Get(context.Background(), "sess-1", statestore.KeyProfileLocked)
	require.NoError(t, err)
	assert.Contains(t, raw, "nik")

	// The update payload never carries the identity fields.
	require.Len(t, backend.updates, 1)
	assert.Equal(t, "081234567890", backend.updates[0].Phone)
}

func TestSecondSavePreservesLockedValues(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)
	require.NoError(t, flow.Load(context.Background()))

	flow.UpdateIdentity(validIdentity())
	require.NoError(t, flow.SaveIdentity(context.Background()))

	// A reset form comes in with the locked fields blank.
	flow.UpdateIdentity(IdentityForm{Bio: "Lulusan baru"})
	require.NoError(t, flow.SaveIdentity(context.Background()))

	snap := flow.Snapshot()
	assert.Equal(t, "1234567890123456", snap.Identity.NIK)
	assert.Equal(t, "Budi Santoso", snap.Identity.FullName)
	assert.Equal(t, models.GenderMale, snap.Identity.Gender)
	assert.Equal(t, "1999-01-31", snap.Identity.BirthDate)
	assert.Equal(t, "Lulusan baru", snap.Identity.Bio)
}

func TestSaveIdentityValidatesRequiredFields(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)

	flow.UpdateIdentity(IdentityForm{FullName: "Budi"})
	err := flow.SaveIdentity(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nik", verr.Field)
	assert.Empty(t, backend.updates, "validation failures never reach the network")
}

func TestLockFlagsRestoredOnLoad(t *testing.T) {
	backend := &fakeBackend{}
	store := statestore.NewMemoryStore()
	token := func(ctx context.Context) (string, error) { return "tok", nil }
	require.NoError(t, store.Set(context.Background(), "sess-1", statestore.KeyProfileLocked,
		`{"nik":true,"nama":true,"gender":true,"tanggalLahir":true}`))

	flow := NewFlow(backend, token, store, "sess-1")
	require.NoError(t, flow.Load(context.Background()))

	assert.True(t, flow.Locked().Any())
}

func TestEducationOtherLevelVoidsSubordinateFields(t *testing.T) {
	e := models.Education{
		Level:           models.EducationOther,
		InstitutionName: "Kursus Mandiri",
		Faculty:         "Teknik",
		Major:           "Informatika",
		GPA:             "3.5",
		EnrollmentYear:  2018,
		GraduationYear:  2022,
		IsCurrent:       true,
	}
	ApplyEducationRules(&e)

	assert.Empty(t, e.Faculty)
	assert.Empty(t, e.Major)
	assert.Empty(t, e.GPA)
	assert.Zero(t, e.EnrollmentYear)
	assert.Zero(t, e.GraduationYear)
	assert.False(t, e.IsCurrent)
	assert.Equal(t, "Kursus Mandiri", e.InstitutionName)
}

func TestOngoingEducationVoidsGraduationYear(t *testing.T) {
	e := models.Education{
		Level:           models.EducationS1,
		InstitutionName: "Universitas Indonesia",
		GraduationYear:  2027,
		IsCurrent:       true,
	}
	ApplyEducationRules(&e)

	assert.Zero(t, e.GraduationYear)
	assert.True(t, e.IsCurrent)
}

func TestEducationCapAtThreeEntries(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)

	for i := 0; i < models.MaxEducationEntries; i++ {
		_, err := flow.AddEducation(context.Background(), models.Education{
			Level:           models.EducationS1,
			InstitutionName: "Kampus",
		})
		require.NoError(t, err)
	}

	_, err := flow.AddEducation(context.Background(), models.Education{
		Level:           models.EducationS1,
		InstitutionName: "Kampus Keempat",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, backend.educations, models.MaxEducationEntries)
}

func TestEducationFirstEntryGatesAdvance(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)

	// Empty section cannot advance.
	err := flow.Advance(context.Background(), SectionEducation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// "Lainnya" needs no institution.
	_, err = flow.AddEducation(context.Background(), models.Education{Level: models.EducationOther})
	require.NoError(t, err)
	require.NoError(t, flow.Advance(context.Background(), SectionEducation))
	assert.Equal(t, SectionCertification, flow.ActiveSection())
}

func TestUnemployedExperienceIsNotPersisted(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)

	saved, err := flow.AddExperience(context.Background(), models.Experience{
		JobType:     models.JobTypeUnemployed,
		Position:    "diisi tapi harus hilang",
		CompanyName: "PT Maju",
	})

	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, backend.experiences)
}

func TestOngoingExperienceVoidsEndDate(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)

	saved, err := flow.AddExperience(context.Background(), models.Experience{
		JobType:     models.JobTypeEmployed,
		Position:    "Backend Engineer",
		CompanyName: "PT Maju",
		StartDate:   "2023-01-01",
		EndDate:     "2024-01-01",
		IsCurrent:   true,
	})

	require.NoError(t, err)
	assert.Empty(t, saved.EndDate)
	assert.True(t, saved.IsCurrent)
}

func TestCertificationYearWindow(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)

	_, err := flow.AddCertification(context.Background(), client.CertificationUpload{
		Name:      "Sertifikat Lama",
		Organizer: "BNSP",
		Year:      time.Now().Year() - certYearWindow - 1,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "year", verr.Field)

	_, err = flow.AddCertification(context.Background(), client.CertificationUpload{
		Name:      "Sertifikat Baru",
		Organizer: "BNSP",
		Year:      time.Now().Year(),
	})
	require.NoError(t, err)
}

func TestCompletenessScore(t *testing.T) {
	backend := &fakeBackend{profile: models.Profile{
		Phone:     "0812",
		Address:   "Jakarta",
		Bio:       "Halo",
		AvatarURL: "https://cdn/avatar.png",
		Educations: []models.Education{
			{ID: 1, Level: models.EducationS1, InstitutionName: "UI"},
		},
		Experiences: []models.Experience{
			{ID: 2, JobType: models.JobTypeEmployed, Position: "Dev", CompanyName: "PT"},
		},
	}}
	flow, _ := newTestFlow(backend)
	require.NoError(t, flow.Load(context.Background()))

	snap := flow.Snapshot()
	assert.Equal(t, 100, snap.Completeness)
	assert.Empty(t, snap.Missing)
}

func TestCompletenessMissingHints(t *testing.T) {
	backend := &fakeBackend{}
	flow, _ := newTestFlow(backend)
	require.NoError(t, flow.Load(context.Background()))

	snap := flow.Snapshot()
	assert.Equal(t, 0, snap.Completeness)
	assert.Len(t, snap.Missing, 4)
}
