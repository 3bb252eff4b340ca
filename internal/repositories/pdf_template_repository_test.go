package repositories

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/pkg/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would otherwise get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunSQLScripts(db, "../../migrations"))
	return db
}

func TestPdfTemplateRepositoryCRUD(t *testing.T) {
	repo := NewPdfTemplateRepository(setupTestDB(t))

	template := &models.PdfTemplate{
		Name:        "Invoices",
		Description: "Supplier invoices",
		TargetFields: []models.TargetField{
			{FieldName: "invoice_number", AIHint: "The invoice number"},
			{FieldName: "total_amount"},
		},
	}
	template.EnsureFieldIDs()

	t.Run("Create and fetch", func(t *testing.T) {
		require.NoError(t, repo.Create(template))

		fetched, err := repo.GetByID(template.ID.String())
		require.NoError(t, err)

		assert.Equal(t, template.ID, fetched.ID)
		assert.Equal(t, "Invoices", fetched.Name)
		assert.Len(t, fetched.TargetFields, 2)
		assert.Equal(t, "invoice_number", fetched.TargetFields[0].FieldName)
		assert.NotEmpty(t, fetched.TargetFields[0].ID)
	})

	t.Run("Fetch by name", func(t *testing.T) {
		fetched, err := repo.GetByName("Invoices")
		require.NoError(t, err)
		assert.Equal(t, template.ID, fetched.ID)
	})

	t.Run("Update", func(t *testing.T) {
		template.Description = "Updated"
		template.TargetFields = append(template.TargetFields, models.TargetField{FieldName: "due_date"})
		template.EnsureFieldIDs()

		require.NoError(t, repo.Update(template))

		fetched, err := repo.GetByID(template.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "Updated", fetched.Description)
		assert.Len(t, fetched.TargetFields, 3)
	})

	t.Run("List is sorted by name", func(t *testing.T) {
		other := &models.PdfTemplate{
			Name:         "Delivery notes",
			TargetFields: []models.TargetField{{FieldName: "order_number"}},
		}
		require.NoError(t, repo.Create(other))

		templates, err := repo.List()
		require.NoError(t, err)
		require.Len(t, templates, 2)
		assert.Equal(t, "Delivery notes", templates[0].Name)
		assert.Equal(t, "Invoices", templates[1].Name)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(template.ID.String()))

		_, err := repo.GetByID(template.ID.String())
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("Missing rows surface as ErrNoRows", func(t *testing.T) {
		_, err := repo.GetByID("00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, sql.ErrNoRows)

		assert.ErrorIs(t, repo.Delete("00000000-0000-0000-0000-000000000000"), sql.ErrNoRows)
	})
}

func TestPdfTemplateNameUniqueness(t *testing.T) {
	repo := NewPdfTemplateRepository(setupTestDB(t))

	first := &models.PdfTemplate{
		Name:         "Receipts",
		TargetFields: []models.TargetField{{FieldName: "merchant"}},
	}
	require.NoError(t, repo.Create(first))

	duplicate := &models.PdfTemplate{
		Name:         "Receipts",
		TargetFields: []models.TargetField{{FieldName: "merchant"}},
	}
	assert.Error(t, repo.Create(duplicate), "the name column carries a unique constraint")
}
