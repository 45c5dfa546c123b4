// Package mapping derives the displayable "area, level, status" triple from
// whichever upstream shape is available: the result block embedded in the
// interview transcript, or the dedicated per-area mapping endpoint. The
// rest of the system only ever sees the canonical CompetencyMapping and
// never branches on upstream shape.
package mapping

import (
	"sort"
	"strings"

	"github.com/diploy/competency-gateway/internal/models"
)

// Source is the tagged union of upstream shapes.
type Source interface {
	isSource()
}

// ChatSource reconciles from the interview transcript: the latest AI reply
// is scanned for an embedded result block. Attempted carries the per-area
// "already took the assessment" markers from the session store.
type ChatSource struct {
	History   []models.ChatLog
	Attempted map[models.AreaKey]bool
}

func (ChatSource) isSource() {}

// EndpointSource reconciles from the dedicated mapping endpoint. Records
// must preserve the upstream-provided ordering: it is the tie-break when
// multiple areas qualify.
type EndpointSource struct {
	Records []models.AreaRecord
}

func (EndpointSource) isSource() {}

// Reconciler normalizes either source into a canonical CompetencyMapping.
type Reconciler struct {
	catalog *Catalog
}

// NewReconciler creates a reconciler over an area catalog.
func NewReconciler(catalog *Catalog) *Reconciler {
	return &Reconciler{catalog: catalog}
}

// Reconcile derives the canonical mapping. A malformed or absent upstream
// payload yields the Pending placeholder, never an error: the dashboard
// shows "results not yet available" instead of an error page.
func (r *Reconciler) Reconcile(src Source) models.CompetencyMapping {
	switch s := src.(type) {
	case ChatSource:
		return r.fromChat(s)
	case EndpointSource:
		return r.fromEndpoint(s)
	default:
		return pending()
	}
}

func pending() models.CompetencyMapping {
	return models.CompetencyMapping{
		Key:     models.AreaNonTIK,
		Status:  models.StatusUnassessed,
		Pending: true,
	}
}

func (r *Reconciler) fromChat(src ChatSource) models.CompetencyMapping {
	latest := latestLog(src.History)
	if latest == nil {
		return pending()
	}

	result, err := ExtractResult(latest.AIResponse)
	if err != nil {
		// No block, or a block whose payload would not parse: either way
		// there is nothing to display yet.
		return pending()
	}

	key := MapAreaKey(result.AreaName)
	if key == models.AreaNonTIK || result.AreaName == "" || result.Level <= 0 {
		return models.CompetencyMapping{
			Key:     models.AreaNonTIK,
			RawArea: result.AreaName,
			Status:  models.StatusUnassessed,
		}
	}

	m := models.CompetencyMapping{
		Key:     key,
		Level:   result.Level,
		Status:  models.StatusUnassessed,
		RawArea: result.AreaName,
	}
	// The attempted marker only records that the assessment was taken, not
	// its outcome. Like recordStatus does for the legacy "assessed" value,
	// it folds to StatusPassed: the canonical enum has no separate
	// taken-but-ungraded state.
	if src.Attempted[key] {
		m.Status = models.StatusPassed
	}

	r.decorate(&m)
	return m
}

func (r *Reconciler) fromEndpoint(src EndpointSource) models.CompetencyMapping {
	if len(src.Records) == 0 {
		return pending()
	}

	// First record with level>0, in upstream order.
	for _, rec := range src.Records {
		if rec.Level <= 0 {
			continue
		}

		key := MapAreaKey(rec.Area)
		if key == models.AreaNonTIK {
			continue
		}

		m := models.CompetencyMapping{
			Key:     key,
			Level:   rec.Level,
			Status:  recordStatus(rec.Status),
			RawArea: rec.Area,
		}
		r.decorate(&m)
		return m
	}

	return models.CompetencyMapping{
		Key:    models.AreaNonTIK,
		Status: models.StatusUnassessed,
	}
}

// recordStatus folds the endpoint status vocabulary, including the legacy
// "assessed" value, into the canonical status enum.
func recordStatus(s string) models.AreaStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lulus":
		return models.StatusPassed
	case "gagal":
		return models.StatusFailed
	case "assessed":
		return models.StatusPassed
	default:
		return models.StatusUnassessed
	}
}

func (r *Reconciler) decorate(m *models.CompetencyMapping) {
	info := r.catalog.Area(m.Key)
	if info == nil {
		m.DisplayName = string(m.Key)
		return
	}
	m.DisplayName = info.Name
	m.Recommendations = info.Recommendations
}

func latestLog(history []models.ChatLog) *models.ChatLog {
	if len(history) == 0 {
		return nil
	}
	logs := make([]models.ChatLog, len(history))
	copy(logs, history)
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return &logs[len(logs)-1]
}
