package models

// Gender values accepted by the profile backend
const (
	GenderMale   = "Laki-laki"
	GenderFemale = "Perempuan"
)

// Education levels accepted by the profile backend
const (
	EducationSMA   = "SMA/SMK"
	EducationD3    = "D3"
	EducationD4    = "D4"
	EducationS1    = "S1"
	EducationS2    = "S2"
	EducationS3    = "S3"
	EducationOther = "Lainnya"
)

// Job types accepted by the profile backend
const (
	JobTypeEmployed   = "Kerja"
	JobTypeFreelance  = "Freelance"
	JobTypeInternship = "Magang"
	JobTypeUnemployed = "Tidak/belum bekerja"
)

// MaxEducationEntries and MaxCertificationEntries cap the list-typed profile
// sections. Experience has no hard cap.
const (
	MaxEducationEntries     = 3
	MaxCertificationEntries = 3
)

// Education is one entry of the education section.
type Education struct {
	ID                int    `json:"id,omitempty"`
	Level             string `json:"level"`
	InstitutionName   string `json:"institution_name,omitempty"`
	Faculty           string `json:"faculty,omitempty"`
	Major             string `json:"major,omitempty"`
	EnrollmentYear    int    `json:"enrollment_year,omitempty"`
	GraduationYear    int    `json:"graduation_year,omitempty"`
	IsCurrent         bool   `json:"is_current"`
	GPA               string `json:"gpa,omitempty"`
	FinalProjectTitle string `json:"final_project_title,omitempty"`
}

// Certification is one entry of the certification section. The proof file is
// uploaded alongside the metadata as multipart form data.
type Certification struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Organizer   string `json:"organizer"`
	Year        int    `json:"year"`
	ProofURL    string `json:"proof_url,omitempty"`
	Description string `json:"description"`
	Expertise   string `json:"bidang_keahlian,omitempty"`
}

// Experience is one entry of the work experience section.
type Experience struct {
	ID             int    `json:"id,omitempty"`
	JobType        string `json:"job_type"`
	Position       string `json:"position"`
	CompanyName    string `json:"company_name"`
	FunctionalArea string `json:"functional_area,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	IsCurrent      bool   `json:"is_current"`
	Description    string `json:"description,omitempty"`
}

// Profile is the full profile document held by the backend.
type Profile struct {
	ID     int `json:"id"`
	UserID int `json:"user_id"`

	Email     string `json:"email,omitempty"`
	NIK       string `json:"nik,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Gender    string `json:"gender,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`

	Phone             string `json:"phone,omitempty"`
	Address           string `json:"address,omitempty"`
	Bio               string `json:"bio,omitempty"`
	LinkedinURL       string `json:"linkedin_url,omitempty"`
	PortfolioURL      string `json:"portfolio_url,omitempty"`
	InstagramUsername string `json:"instagram_username,omitempty"`

	AvatarURL string   `json:"avatar_url,omitempty"`
	Skills    []string `json:"skills,omitempty"`

	Educations     []Education     `json:"educations,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Experiences    []Experience    `json:"experiences,omitempty"`
}

// ProfileUpdate carries the rewritable profile fields for PUT /profile/.
// The four identity fields (nik, full name, gender, birth date) are set at
// registration and are not part of the update contract.
type ProfileUpdate struct {
	Phone             string   `json:"phone,omitempty"`
	LinkedinURL       string   `json:"linkedin_url,omitempty"`
	PortfolioURL      string   `json:"portfolio_url,omitempty"`
	InstagramUsername string   `json:"instagram_username,omitempty"`
	Address           string   `json:"address,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	AvatarURL         string   `json:"avatar_url,omitempty"`
	Skills            []string `json:"skills,omitempty"`
}

// Identity is the minimal cached user identity kept in the session store.
type Identity struct {
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// RegisterRequest seeds a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	NIK       string `json:"nik"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
}
