package services

import (
	"testing"
	"time"

	"github.com/enerva/utility-backoffice/internal/identity"
	"github.com/enerva/utility-backoffice/internal/kind"
	"github.com/enerva/utility-backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pool connection would see an empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Application{}, &models.Document{}))
	return db
}

func testActor() *identity.Claims {
	return &identity.Claims{UserID: 7, Email: "clerk@example.com", Role: "user"}
}

func submitBasic(t *testing.T, svc *ApplicationService, k kind.Spec, name string) *models.Application {
	t.Helper()
	app, err := svc.Submit(k, &SubmitInput{ApplicantName: name})
	require.NoError(t, err)
	return app
}

func TestSubmitDefaultsToPending(t *testing.T) {
	svc := NewApplicationService(setupDB(t))

	app, err := svc.Submit(kind.NewInstallation, &SubmitInput{
		ApplicantName: "Ayşe Yılmaz",
		Details:       []byte(`{"property_address":"Örnek Mah. No:5"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "new_installation", app.Kind)
	assert.Nil(t, app.ProcessedAt)
	assert.Nil(t, app.ProcessedBy)
	assert.Nil(t, app.UserID)
	assert.False(t, app.SubmittedAt.IsZero())
	assert.JSONEq(t, `{"property_address":"Örnek Mah. No:5"}`, string(app.Details))
}

func TestSubmitValidation(t *testing.T) {
	svc := NewApplicationService(setupDB(t))

	_, err := svc.Submit(kind.Evacuation, &SubmitInput{})
	assert.ErrorIs(t, err, ErrMissingApplicant)

	_, err = svc.Submit(kind.Evacuation, &SubmitInput{
		ApplicantName: "Mehmet Demir",
		Details:       []byte("not json"),
	})
	assert.ErrorIs(t, err, ErrInvalidDetails)

	// old_bill belongs to new_installation, not evacuation
	_, err = svc.Submit(kind.Evacuation, &SubmitInput{
		ApplicantName: "Mehmet Demir",
		Documents:     map[string][]byte{"old_bill": []byte("pdf")},
	})
	assert.ErrorIs(t, err, ErrInvalidDocumentType)

	_, err = svc.Submit(kind.Evacuation, &SubmitInput{
		ApplicantName: "Mehmet Demir",
		Documents:     map[string][]byte{"nufus_cuzdani": {}},
	})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestUpdateStatusAllValues(t *testing.T) {
	svc := NewApplicationService(setupDB(t))

	for _, k := range kind.All {
		app := submitBasic(t, svc, k, "Ayşe Yılmaz")

		for _, status := range []string{
			models.StatusApproved,
			models.StatusRejected,
			models.StatusInReview,
			models.StatusPending, // re-entering pending is allowed
		} {
			updated, err := svc.UpdateStatus(k, app.ID, status, testActor())
			require.NoError(t, err, "kind %s status %s", k.Name, status)
			assert.Equal(t, status, updated.Status)
			require.NotNil(t, updated.ProcessedAt)
			require.NotNil(t, updated.ProcessedBy)
			assert.Equal(t, uint(7), *updated.ProcessedBy)

			// Repeating the transition yields the same observable state.
			again, err := svc.UpdateStatus(k, app.ID, status, testActor())
			require.NoError(t, err)
			assert.Equal(t, status, again.Status)

			persisted, err := svc.Get(k, app.ID)
			require.NoError(t, err)
			assert.Equal(t, status, persisted.Status)
		}
	}
}

func TestUpdateStatusInvalidValueLeavesRecordUntouched(t *testing.T) {
	svc := NewApplicationService(setupDB(t))
	app := submitBasic(t, svc, kind.NewInstallation, "Ayşe Yılmaz")

	_, err := svc.UpdateStatus(kind.NewInstallation, app.ID, "bogus", testActor())
	assert.ErrorIs(t, err, ErrInvalidStatus)

	persisted, err := svc.Get(kind.NewInstallation, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, persisted.Status)
	assert.Nil(t, persisted.ProcessedAt)
	assert.Nil(t, persisted.ProcessedBy)
}

func TestUpdateStatusUnknownApplication(t *testing.T) {
	svc := NewApplicationService(setupDB(t))

	_, err := svc.UpdateStatus(kind.NewConnection, 999999, models.StatusApproved, testActor())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusIsKindScoped(t *testing.T) {
	svc := NewApplicationService(setupDB(t))
	app := submitBasic(t, svc, kind.Evacuation, "Mehmet Demir")

	// Same numeric id through a different kind must not match.
	_, err := svc.UpdateStatus(kind.NewInstallation, app.ID, models.StatusApproved, testActor())
	assert.ErrorIs(t, err, ErrNotFound)

	persisted, err := svc.Get(kind.Evacuation, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, persisted.Status)
}

func TestGetDocumentRoundTrip(t *testing.T) {
	svc := NewApplicationService(setupDB(t))

	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xFF, 0x10, 0x00, 0x7B}
	app, err := svc.Submit(kind.NewInstallation, &SubmitInput{
		ApplicantName: "Ayşe Yılmaz",
		Documents: map[string][]byte{
			"old_bill": payload,
			"dask":     []byte("dask policy content"),
		},
	})
	require.NoError(t, err)

	got, err := svc.GetDocument(kind.NewInstallation, app.ID, "old_bill")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got, err = svc.GetDocument(kind.NewInstallation, app.ID, "dask")
	require.NoError(t, err)
	assert.Equal(t, []byte("dask policy content"), got)
}

func TestGetDocumentInvalidType(t *testing.T) {
	svc := NewApplicationService(setupDB(t))
	app := submitBasic(t, svc, kind.NewInstallation, "Ayşe Yılmaz")

	// Rejected whether or not the application exists.
	_, err := svc.GetDocument(kind.NewInstallation, app.ID, "unknown_type")
	assert.ErrorIs(t, err, ErrInvalidDocumentType)

	_, err = svc.GetDocument(kind.NewInstallation, 999999, "unknown_type")
	assert.ErrorIs(t, err, ErrInvalidDocumentType)

	// A slot valid for another kind is still invalid for this one.
	_, err = svc.GetDocument(kind.NewInstallation, app.ID, "nufus_cuzdani")
	assert.ErrorIs(t, err, ErrInvalidDocumentType)
}

func TestGetDocumentMissingIsIndistinguishable(t *testing.T) {
	svc := NewApplicationService(setupDB(t))
	app := submitBasic(t, svc, kind.NewConnection, "Mehmet Demir")

	// Existing application, empty slot.
	_, err := svc.GetDocument(kind.NewConnection, app.ID, "deed")
	assert.ErrorIs(t, err, ErrNotFound)

	// No such application at all.
	_, err = svc.GetDocument(kind.NewConnection, 999999, "deed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersBySubmissionDescending(t *testing.T) {
	db := setupDB(t)
	svc := NewApplicationService(db)

	first := submitBasic(t, svc, kind.Evacuation, "First")
	second := submitBasic(t, svc, kind.Evacuation, "Second")
	third := submitBasic(t, svc, kind.Evacuation, "Third")

	// Spread the timestamps so ordering is by submission time, not id.
	base := time.Now().Add(-time.Hour)
	for i, app := range []*models.Application{first, second, third} {
		err := db.Model(&models.Application{}).Where("id = ?", app.ID).
			Update("submitted_at", base.Add(time.Duration(i)*time.Minute)).Error
		require.NoError(t, err)
	}

	// A different kind must not show up in the listing.
	submitBasic(t, svc, kind.NewInstallation, "Other Kind")

	apps, err := svc.List(kind.Evacuation)
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Equal(t, third.ID, apps[0].ID)
	assert.Equal(t, second.ID, apps[1].ID)
	assert.Equal(t, first.ID, apps[2].ID)
}
