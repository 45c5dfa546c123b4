package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diploy/competency-gateway/internal/models"
)

func TestMapAreaKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.AreaKey
	}{
		{"canonical dsc", "Sains Data, Kecerdasan Artifisial dan Cloud Computing", models.AreaDSC},
		{"hyphen variant", "Sains Data - AI", models.AreaDSC},
		{"en dash variant", "sains data–ai", models.AreaDSC},
		{"whitespace run", "SAINS   DATA  AI", models.AreaDSC},
		{"english alias", "Data Science", models.AreaDSC},
		{"governance", "Tata Kelola dan Manajemen TI", models.AreaTKTI},
		{"product", "Pengembangan Produk Digital", models.AreaPPD},
		{"cyber indonesian", "Keamanan Informasi dan Siber", models.AreaCyber},
		{"cyber english", "Cybersecurity", models.AreaCyber},
		{"infrastructure", "Teknologi dan Infrastruktur TI", models.AreaTI},
		{"it services", "Layanan Teknologi Informasi", models.AreaLTI},
		{"non tik spaced", "non tik", models.AreaNonTIK},
		{"non tik hyphen", "Non-TIK", models.AreaNonTIK},
		{"unknown", "Akuntansi Keuangan", models.AreaNonTIK},
		{"empty", "", models.AreaNonTIK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapAreaKey(tt.in))
		})
	}
}

func TestExtractResult(t *testing.T) {
	t.Run("plain payload", func(t *testing.T) {
		r, err := ExtractResult(`Terima kasih! <RESULT>{"area_fungsi":"Sains Data","level":3}</RESULT>[END OF CHAT]`)
		require.NoError(t, err)
		assert.Equal(t, "Sains Data", r.AreaName)
		assert.Equal(t, 3, r.Level)
	})

	t.Run("escaped payload", func(t *testing.T) {
		r, err := ExtractResult(`<RESULT>{\"area_fungsi\":\"Keamanan Informasi dan Siber\",\"level\":\"2\"}</RESULT>`)
		require.NoError(t, err)
		assert.Equal(t, "Keamanan Informasi dan Siber", r.AreaName)
		assert.Equal(t, 2, r.Level)
	})

	t.Run("string level", func(t *testing.T) {
		r, err := ExtractResult(`<RESULT>{"area_fungsi":"Sains Data","level":" 4 "}</RESULT>`)
		require.NoError(t, err)
		assert.Equal(t, 4, r.Level)
	})

	t.Run("last block wins", func(t *testing.T) {
		text := `<RESULT>{"area_fungsi":"Sains Data","level":1}</RESULT> revisi: <RESULT>{"area_fungsi":"Sains Data","level":2}</RESULT>`
		r, err := ExtractResult(text)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Level)
	})

	t.Run("no block", func(t *testing.T) {
		_, err := ExtractResult("Masih ada pertanyaan lagi?")
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("unparseable payload", func(t *testing.T) {
		_, err := ExtractResult(`<RESULT>bukan json</RESULT>`)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoResult)
	})
}

func TestStripMarkers(t *testing.T) {
	text := `Terima kasih sudah mengikuti wawancara. <RESULT>{"area_fungsi":"Sains Data","level":3}</RESULT>[END OF CHAT]`
	assert.Equal(t, "Terima kasih sudah mengikuti wawancara.", StripMarkers(text))

	assert.Equal(t, "tanpa marker", StripMarkers("tanpa marker"))
}

func TestReconcileFromChat(t *testing.T) {
	r := NewReconciler(NewCatalog())

	t.Run("maps latest result and decorates", func(t *testing.T) {
		m := r.Reconcile(ChatSource{History: []models.ChatLog{
			{ID: 1, AIResponse: "Halo! Ceritakan pengalamanmu."},
			{ID: 2, AIResponse: `<RESULT>{"area_fungsi":"Sains Data","level":3}</RESULT>[END OF CHAT]`},
		}})

		assert.Equal(t, models.AreaDSC, m.Key)
		assert.Equal(t, 3, m.Level)
		assert.Equal(t, models.StatusUnassessed, m.Status)
		assert.False(t, m.Pending)
		assert.NotEmpty(t, m.DisplayName)
		assert.NotEmpty(t, m.Recommendations)
	})

	t.Run("attempted marker flips status", func(t *testing.T) {
		m := r.Reconcile(ChatSource{
			History: []models.ChatLog{
				{ID: 1, AIResponse: `<RESULT>{"area_fungsi":"Sains Data","level":3}</RESULT>`},
			},
			Attempted: map[models.AreaKey]bool{models.AreaDSC: true},
		})

		assert.Equal(t, models.StatusPassed, m.Status)
	})

	t.Run("non tik result is terminal, not pending", func(t *testing.T) {
		m := r.Reconcile(ChatSource{History: []models.ChatLog{
			{ID: 1, AIResponse: `<RESULT>{"area_fungsi":"Non-TIK","level":0}</RESULT>`},
		}})

		assert.Equal(t, models.AreaNonTIK, m.Key)
		assert.False(t, m.Pending)
		assert.Equal(t, "Non-TIK", m.RawArea)
	})

	t.Run("empty history is pending", func(t *testing.T) {
		m := r.Reconcile(ChatSource{})
		assert.True(t, m.Pending)
	})

	t.Run("unparseable block is pending", func(t *testing.T) {
		m := r.Reconcile(ChatSource{History: []models.ChatLog{
			{ID: 1, AIResponse: `<RESULT>rusak</RESULT>`},
		}})
		assert.True(t, m.Pending)
	})
}

func TestReconcileFromEndpoint(t *testing.T) {
	r := NewReconciler(NewCatalog())

	t.Run("first leveled record wins in upstream order", func(t *testing.T) {
		m := r.Reconcile(EndpointSource{Records: []models.AreaRecord{
			{Area: "Tata Kelola dan Manajemen TI", Level: 0, Status: "unassessed"},
			{Area: "Keamanan Informasi dan Siber", Level: 2, Status: "lulus"},
			{Area: "Sains Data", Level: 3, Status: "gagal"},
		}})

		assert.Equal(t, models.AreaCyber, m.Key)
		assert.Equal(t, 2, m.Level)
		assert.Equal(t, models.StatusPassed, m.Status)
	})

	t.Run("status vocabulary", func(t *testing.T) {
		tests := []struct {
			status string
			want   models.AreaStatus
		}{
			{"lulus", models.StatusPassed},
			{"LULUS", models.StatusPassed},
			{"gagal", models.StatusFailed},
			{"assessed", models.StatusPassed},
			{"unassessed", models.StatusUnassessed},
			{"", models.StatusUnassessed},
		}
		for _, tt := range tests {
			m := r.Reconcile(EndpointSource{Records: []models.AreaRecord{
				{Area: "Sains Data", Level: 1, Status: tt.status},
			}})
			assert.Equal(t, tt.want, m.Status, "status %q", tt.status)
		}
	})

	t.Run("no leveled records", func(t *testing.T) {
		m := r.Reconcile(EndpointSource{Records: []models.AreaRecord{
			{Area: "Sains Data", Level: 0},
		}})
		assert.Equal(t, models.AreaNonTIK, m.Key)
		assert.False(t, m.Pending)
	})

	t.Run("empty records are pending", func(t *testing.T) {
		m := r.Reconcile(EndpointSource{})
		assert.True(t, m.Pending)
	})
}

func TestReconcileNilSourceIsPending(t *testing.T) {
	r := NewReconciler(NewCatalog())
	m := r.Reconcile(nil)
	assert.True(t, m.Pending)
	assert.Equal(t, models.StatusUnassessed, m.Status)
}
