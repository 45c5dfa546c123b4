package profileflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/pkg/client"
)

func marshalLocked(l LockedFields) (string, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalLocked(raw string, l *LockedFields) error {
	return json.Unmarshal([]byte(raw), l)
}

// ApplyEducationRules voids fields made irrelevant by the selected level:
// "Lainnya" has no degree program, GPA or graduation year, and an ongoing
// education has no graduation year yet.
func ApplyEducationRules(e *models.Education) {
	if e.Level == models.EducationOther {
		e.Faculty = ""
		e.Major = ""
		e.GPA = ""
		e.EnrollmentYear = 0
		e.GraduationYear = 0
		e.FinalProjectTitle = ""
		e.IsCurrent = false
	}
	if e.IsCurrent {
		e.GraduationYear = 0
	}
}

// ValidateEducation checks a single education entry before it is sent.
func ValidateEducation(e models.Education) error {
	if e.Level == "" {
		return &ValidationError{Field: "level", Message: "jenjang wajib dipilih"}
	}
	if e.Level != models.EducationOther && e.InstitutionName == "" {
		return &ValidationError{Field: "institution_name", Message: "nama institusi wajib diisi"}
	}
	return nil
}

// AddEducation applies the conditional rules, validates and persists one
// education entry. The local list caps at MaxEducationEntries.
func (f *Flow) AddEducation(ctx context.Context, e models.Education) (*models.Education, error) {
	f.mu.Lock()
	if len(f.educations) >= models.MaxEducationEntries {
		f.mu.Unlock()
		return nil, &ValidationError{Field: "educations", Message: "maksimal tiga riwayat pendidikan"}
	}
	f.mu.Unlock()

	ApplyEducationRules(&e)
	if err := ValidateEducation(e); err != nil {
		return nil, err
	}

	token, err := f.token(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := f.backend.AddEducation(ctx, token, e)
	if err != nil {
		return nil, fmt.Errorf("failed to save education: %w", err)
	}

	f.mu.Lock()
	f.educations = append(f.educations, *saved)
	f.mu.Unlock()
	return saved, nil
}

// DeleteEducation removes a previously saved entry.
func (f *Flow) DeleteEducation(ctx context.Context, id int) error {
	token, err := f.token(ctx)
	if err != nil {
		return err
	}
	if err := f.backend.DeleteEducation(ctx, token, id); err != nil {
		return fmt.Errorf("failed to delete education: %w", err)
	}

	f.mu.Lock()
	f.educations = removeByID(f.educations, id, func(e models.Education) int { return e.ID })
	f.mu.Unlock()
	return nil
}

// AddCertification validates and uploads one certification with its
// document. The local list caps at MaxCertificationEntries.
func (f *Flow) AddCertification(ctx context.Context, cert client.CertificationUpload) (*models.Certification, error) {
	f.mu.Lock()
	if len(f.certifications) >= models.MaxCertificationEntries {
		f.mu.Unlock()
		return nil, &ValidationError{Field: "certifications", Message: "maksimal tiga sertifikasi"}
	}
	f.mu.Unlock()

	if cert.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "nama sertifikasi wajib diisi"}
	}
	if cert.Organizer == "" {
		return nil, &ValidationError{Field: "organizer", Message: "penyelenggara wajib diisi"}
	}
	if !validCertYear(cert.Year) {
		return nil, &ValidationError{Field: "year", Message: "tahun di luar rentang yang diizinkan"}
	}

	token, err := f.token(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := f.backend.AddCertification(ctx, token, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to save certification: %w", err)
	}

	f.mu.Lock()
	f.certifications = append(f.certifications, *saved)
	f.mu.Unlock()
	return saved, nil
}

// DeleteCertification removes a previously saved entry.
func (f *Flow) DeleteCertification(ctx context.Context, id int) error {
	token, err := f.token(ctx)
	if err != nil {
		return err
	}
	if err := f.backend.DeleteCertification(ctx, token, id); err != nil {
		return fmt.Errorf("failed to delete certification: %w", err)
	}

	f.mu.Lock()
	f.certifications = removeByID(f.certifications, id, func(c models.Certification) int { return c.ID })
	f.mu.Unlock()
	return nil
}

// ApplyExperienceRules voids fields made irrelevant by the job type or the
// ongoing flag. "Tidak/belum bekerja" leaves only the type itself.
func ApplyExperienceRules(e *models.Experience) {
	if e.JobType == models.JobTypeUnemployed {
		e.Position = ""
		e.CompanyName = ""
		e.FunctionalArea = ""
		e.StartDate = ""
		e.EndDate = ""
		e.IsCurrent = false
		e.Description = ""
		return
	}
	if e.IsCurrent {
		e.EndDate = ""
	}
}

// ValidateExperience checks a single experience entry before it is sent.
func ValidateExperience(e models.Experience) error {
	if e.JobType == "" {
		return &ValidationError{Field: "job_type", Message: "jenis pekerjaan wajib dipilih"}
	}
	if e.JobType == models.JobTypeUnemployed {
		return nil
	}
	if e.Position == "" {
		return &ValidationError{Field: "position", Message: "posisi wajib diisi"}
	}
	if e.CompanyName == "" {
		return &ValidationError{Field: "company_name", Message: "nama perusahaan wajib diisi"}
	}
	return nil
}

// AddExperience applies the conditional rules, validates and persists one
// experience entry. An unemployed entry carries no data worth storing, so
// it is accepted without a backend call and without joining the list.
func (f *Flow) AddExperience(ctx context.Context, e models.Experience) (*models.Experience, error) {
	ApplyExperienceRules(&e)
	if err := ValidateExperience(e); err != nil {
		return nil, err
	}
	if e.JobType == models.JobTypeUnemployed {
		return nil, nil
	}

	token, err := f.token(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := f.backend.AddExperience(ctx, token, e)
	if err != nil {
		return nil, fmt.Errorf("failed to save experience: %w", err)
	}

	f.mu.Lock()
	f.experiences = append(f.experiences, *saved)
	f.mu.Unlock()
	return saved, nil
}

// DeleteExperience removes a previously saved entry.
func (f *Flow) DeleteExperience(ctx context.Context, id int) error {
	token, err := f.token(ctx)
	if err != nil {
		return err
	}
	if err := f.backend.DeleteExperience(ctx, token, id); err != nil {
		return fmt.Errorf("failed to delete experience: %w", err)
	}

	f.mu.Lock()
	f.experiences = removeByID(f.experiences, id, func(e models.Experience) int { return e.ID })
	f.mu.Unlock()
	return nil
}

func removeByID[T any](list []T, id int, key func(T) int) []T {
	out := list[:0]
	for _, item := range list {
		if key(item) != id {
			out = append(out, item)
		}
	}
	return out
}
