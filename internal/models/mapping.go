package models

// AreaKey is the fixed key space for functional IT competency areas.
// NON_TIK is a sentinel for "unmappable": the interview could not place the
// user in any IT area and profile edits are required before re-attempting.
type AreaKey string

const (
	AreaDSC    AreaKey = "DSC"   // Sains Data / Kecerdasan Artifisial / Cloud
	AreaTKTI   AreaKey = "TKTI"  // Tata Kelola TI (IT Governance)
	AreaPPD    AreaKey = "PPD"   // Pengembangan Produk Digital
	AreaCyber  AreaKey = "CYBER" // Keamanan Informasi dan Siber
	AreaTI     AreaKey = "TI"    // Teknologi dan Infrastruktur
	AreaLTI    AreaKey = "LTI"   // Layanan Teknologi Informasi
	AreaNonTIK AreaKey = "NON_TIK"
)

// AreaKeys lists the six mappable areas in display order.
var AreaKeys = []AreaKey{AreaDSC, AreaTKTI, AreaPPD, AreaCyber, AreaTI, AreaLTI}

// AreaStatus is the assessment outcome for an area.
type AreaStatus string

const (
	StatusUnassessed AreaStatus = "Unassessed"
	StatusPassed     AreaStatus = "Lulus"
	StatusFailed     AreaStatus = "Gagal"
)

// CompetencyMapping is the canonical "area, level, status" triple displayed
// on the dashboard. It is reconstructed from an upstream payload on every
// load and is not locally authoritative.
//
// Pending marks the "results not yet available" placeholder shown when the
// upstream payload is absent or malformed; it is distinct from the NON_TIK
// terminal state, which is a definitive unmappable classification.
type CompetencyMapping struct {
	Key             AreaKey    `json:"key"`
	DisplayName     string     `json:"display_name"`
	Level           int        `json:"level"`
	Status          AreaStatus `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	RawArea         string     `json:"raw_area,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`
	Pending         bool       `json:"pending,omitempty"`
}

// Unmappable reports the terminal dead-end state: the user must edit their
// profile before re-attempting classification.
func (m *CompetencyMapping) Unmappable() bool {
	return m.Key == AreaNonTIK && !m.Pending
}

// AreaRecord is the per-area record returned by the dedicated mapping
// endpoint. Status is one of "lulus", "gagal", "unassessed" or the legacy
// "assessed".
type AreaRecord struct {
	Area   string  `json:"area"`
	Level  int     `json:"level_kompetensi"`
	Fit    float64 `json:"kecocokan,omitempty"`
	Status string  `json:"status"`
}
