package mapping

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/diploy/competency-gateway/internal/models"
)

// AreaInfo is the static catalog entry for one competency area: the display
// name and the learning recommendations shown once the area is mapped.
type AreaInfo struct {
	Key             models.AreaKey `yaml:"key"`
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description"`
	Recommendations []string       `yaml:"recommendations"`
}

// Catalog holds the per-area display metadata. It ships with built-in
// defaults and can be overridden per area from a directory of YAML files.
type Catalog struct {
	mu    sync.RWMutex
	areas map[models.AreaKey]*AreaInfo

	// TrainingURL is the external training platform gated behind a passed
	// assessment.
	TrainingURL string
}

// NewCatalog creates a catalog pre-populated with the built-in defaults.
func NewCatalog() *Catalog {
	c := &Catalog{
		areas:       make(map[models.AreaKey]*AreaInfo),
		TrainingURL: "https://digitalent.kominfo.go.id/",
	}
	for _, info := range defaultAreas {
		info := info
		c.areas[info.Key] = &info
	}
	return c
}

// LoadFromDir overrides catalog entries from *.yaml files in dir. Each file
// holds one AreaInfo. Unknown keys are rejected; a bad file is skipped with
// a warning so a typo never takes the dashboard down.
func (c *Catalog) LoadFromDir(dir string) error {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return fmt.Errorf("no area files found in %s", dir)
	}

	loaded := 0
	for _, file := range files {
		if err := c.loadFromFile(file); err != nil {
			slog.Warn("failed to load area file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("area catalog loaded", "dir", dir, "count", loaded)
	return nil
}

func (c *Catalog) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var info AreaInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if info.Key == "" || info.Name == "" {
		return fmt.Errorf("area key and name are required")
	}

	known := false
	for _, k := range models.AreaKeys {
		if info.Key == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown area key %q", info.Key)
	}

	c.mu.Lock()
	c.areas[info.Key] = &info
	c.mu.Unlock()

	return nil
}

// Area returns the catalog entry for a key, or nil for NON_TIK and unknown
// keys.
func (c *Catalog) Area(key models.AreaKey) *AreaInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.areas[key]
}

var defaultAreas = []AreaInfo{
	{
		Key:  models.AreaDSC,
		Name: "Data Science & Cloud",
		Recommendations: []string{
			"Dasar Data Science",
			"Python untuk Analisis Data",
			"Machine Learning Dasar",
			"Machine Learning Lanjutan",
			"Data Visualization",
			"Deployment Model",
		},
	},
	{
		Key:  models.AreaTKTI,
		Name: "IT Governance",
		Recommendations: []string{
			"Dasar IT Governance",
			"COBIT / ITIL Overview",
			"Risk & Compliance",
			"Policy & Audit Dasar",
			"Service Strategy & KPI",
		},
	},
	{
		Key:  models.AreaPPD,
		Name: "Digital Product Development",
		Recommendations: []string{
			"Product Discovery",
			"User Research Dasar",
			"PRD & Requirement",
			"Agile/Scrum",
			"Roadmap & Prioritization",
		},
	},
	{
		Key:  models.AreaCyber,
		Name: "Cybersecurity",
		Recommendations: []string{
			"Fundamental Security",
			"Network Security Dasar",
			"OWASP Top 10",
			"Incident Response",
			"Security Awareness",
		},
	},
	{
		Key:  models.AreaTI,
		Name: "Teknologi & Infrastruktur",
		Recommendations: []string{
			"Dasar Infrastruktur",
			"Linux Fundamental",
			"Networking Dasar",
			"Cloud Fundamental",
			"Monitoring & Logging",
		},
	},
	{
		Key:  models.AreaLTI,
		Name: "Layanan Teknologi Informasi",
		Recommendations: []string{
			"IT Service Management Dasar",
			"Incident vs Request",
			"SLA & Prioritization",
			"Change Management Dasar",
			"Komunikasi dengan User",
		},
	},
}
