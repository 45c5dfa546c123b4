package mapping

import (
	"strings"

	"github.com/diploy/competency-gateway/internal/models"
)

// normalize lowercases, collapses whitespace runs to a single space and
// folds the dash variants (hyphen, en dash, em dash) to a plain hyphen, so
// "Sains Data - AI", "sains data–ai" and "SAINS DATA AI" all compare equal
// under substring matching.
func normalize(s string) string {
	s = strings.ToLower(s)

	replacer := strings.NewReplacer("–", "-", "—", "-")
	s = replacer.Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

// aliasEntry pairs a normalized substring with the area key it selects.
// Order matters: the first matching needle wins.
type aliasEntry struct {
	needle string
	key    models.AreaKey
}

// aliases covers the area-name variations observed in interviewer output.
var aliases = []aliasEntry{
	{"data science", models.AreaDSC},
	{"sains data", models.AreaDSC},
	{"kecerdasan artifisial", models.AreaDSC},
	{"ai", models.AreaDSC},
	{"cloud", models.AreaDSC},

	{"tata kelola", models.AreaTKTI},
	{"it governance", models.AreaTKTI},
	{"governance", models.AreaTKTI},

	{"pengembangan produk digital", models.AreaPPD},
	{"digital product", models.AreaPPD},
	{"product development", models.AreaPPD},

	{"keamanan informasi", models.AreaCyber},
	{"siber", models.AreaCyber},
	{"cybersecurity", models.AreaCyber},
	{"cyber", models.AreaCyber},

	{"teknologi dan infrastruktur", models.AreaTI},
	{"infrastruktur", models.AreaTI},
	{"infrastructure", models.AreaTI},

	{"layanan teknologi informasi", models.AreaLTI},
	{"layanan ti", models.AreaLTI},
	{"it service", models.AreaLTI},
	{"it services", models.AreaLTI},
}

// MapAreaKey normalizes a free-text area name to one of the six fixed keys.
// Anything unmatched classifies as NON_TIK so the UI lands in a safe state.
func MapAreaKey(areaName string) models.AreaKey {
	a := normalize(areaName)
	if a == "" {
		return models.AreaNonTIK
	}

	if strings.Contains(a, "non tik") || strings.Contains(a, "non-tik") {
		return models.AreaNonTIK
	}

	for _, alias := range aliases {
		if strings.Contains(a, alias.needle) {
			return alias.key
		}
	}

	return models.AreaNonTIK
}
