package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/timetrack/internal/timesheet/auth"
	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/gartstein/timetrack/internal/timesheet/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// mockService implements WorkflowService with overridable functions so
// each test wires only the calls it expects.
type mockService struct {
	submitEntryFn      func(ctx context.Context, actorID uuid.UUID, input *workflow.EntryInput) (*models.TimeEntry, error)
	submitDraftFn      func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	approveEntryFn     func(ctx context.Context, actorID, entryID uuid.UUID, notes string) (*models.TimeEntry, error)
	rejectEntryFn      func(ctx context.Context, actorID, entryID uuid.UUID, reason string) (*models.TimeEntry, error)
	unsubmitEntryFn    func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	resubmitEntryFn    func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	unapproveEntryFn   func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	deleteEntryFn      func(ctx context.Context, actorID, entryID uuid.UUID) error
	restoreEntryFn     func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	updateEntryFn      func(ctx context.Context, actorID uuid.UUID, update *models.EntryUpdate) (*models.TimeEntry, error)
	batchApproveFn     func(ctx context.Context, actorID uuid.UUID, entryIDs []uuid.UUID) (*workflow.BatchResult, error)
	getEntryFn         func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	listEntriesFn      func(ctx context.Context, actorID, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error)
	pendingApprovalsFn func(ctx context.Context, actorID uuid.UUID) ([]models.TimeEntry, error)
	getStatsFn         func(ctx context.Context, actorID, userID uuid.UUID) (*models.UserStats, error)
	getCompanyFn       func(ctx context.Context, actorID, companyID uuid.UUID) (*models.Company, error)
	updateCompanyFn    func(ctx context.Context, actorID uuid.UUID, update *models.CompanyUpdate) (*models.Company, error)
	processPayrollFn   func(ctx context.Context, actorID, companyID uuid.UUID, from, to time.Time) ([]workflow.PayrollRow, error)
}

func (m *mockService) SubmitEntry(ctx context.Context, actorID uuid.UUID, input *workflow.EntryInput) (*models.TimeEntry, error) {
	return m.submitEntryFn(ctx, actorID, input)
}
func (m *mockService) SubmitDraft(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	return m.submitDraftFn(ctx, actorID, entryID)
}
func (m *mockService) ApproveEntry(ctx context.Context, actorID, entryID uuid.UUID, notes string) (*models.TimeEntry, error) {
	return m.approveEntryFn(ctx, actorID, entryID, notes)
}
func (m *mockService) RejectEntry(ctx context.Context, actorID, entryID uuid.UUID, reason string) (*models.TimeEntry, error) {
	return m.rejectEntryFn(ctx, actorID, entryID, reason)
}
func (m *mockService) UnsubmitEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	return m.unsubmitEntryFn(ctx, actorID, entryID)
}
func (m *mockService) ResubmitEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	return m.resubmitEntryFn(ctx, actorID, entryID)
}
func (m *mockService) UnapproveEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	return m.unapproveEntryFn(ctx, actorID, entryID)
}
func (m *mockService) DeleteEntry(ctx context.Context, actorID, entryID uuid.UUID) error {
	return m.deleteEntryFn(ctx, actorID, entryID)
}
func (m *mockService) RestoreEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	return m.restoreEntryFn(ctx, actorID, entryID)
}
func (m *mockService) UpdateEntry(ctx context.Context, actorID uuid.UUID, update *models.EntryUpdate) (*models.TimeEntry, error) {
	return m.updateEntryFn(ctx, actorID, update)
}
func (m *mockService) BatchApprove(ctx context.Context, actorID uuid.UUID, entryIDs []uuid.UUID) (*workflow.BatchResult, error) {
	return m.batchApproveFn(ctx, actorID, entryIDs)
}
func (m *mockService) GetEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	return m.getEntryFn(ctx, actorID, entryID)
}
func (m *mockService) ListEntries(ctx context.Context, actorID, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
	return m.listEntriesFn(ctx, actorID, userID, from, to)
}
func (m *mockService) PendingApprovals(ctx context.Context, actorID uuid.UUID) ([]models.TimeEntry, error) {
	return m.pendingApprovalsFn(ctx, actorID)
}
func (m *mockService) GetStats(ctx context.Context, actorID, userID uuid.UUID) (*models.UserStats, error) {
	return m.getStatsFn(ctx, actorID, userID)
}
func (m *mockService) GetCompany(ctx context.Context, actorID, companyID uuid.UUID) (*models.Company, error) {
	return m.getCompanyFn(ctx, actorID, companyID)
}
func (m *mockService) UpdateCompany(ctx context.Context, actorID uuid.UUID, update *models.CompanyUpdate) (*models.Company, error) {
	return m.updateCompanyFn(ctx, actorID, update)
}
func (m *mockService) ProcessPayroll(ctx context.Context, actorID, companyID uuid.UUID, from, to time.Time) ([]workflow.PayrollRow, error) {
	return m.processPayrollFn(ctx, actorID, companyID, from, to)
}

type stubUserSource struct {
	user *models.User
}

func (s *stubUserSource) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, e.ErrNotFound
}

func newTestRouter(t *testing.T, svc *mockService, users *stubUserSource) http.Handler {
	t.Helper()
	if users == nil {
		users = &stubUserSource{}
	}
	authSvc := auth.NewService(users, testSecret, time.Hour)
	handler := NewHandler(svc, authSvc, zaptest.NewLogger(t))
	return NewRouter(handler, testSecret)
}

func tokenFor(t *testing.T, role models.Role) (string, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.New(), CompanyID: uuid.New(), Role: role}
	token, err := auth.GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)
	return token, user
}

func doRequest(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleEntry(userID uuid.UUID) *models.TimeEntry {
	return &models.TimeEntry{
		ID:           uuid.New(),
		UserID:       userID,
		CompanyID:    uuid.New(),
		Date:         time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		RegularHours: 8,
		Status:       models.StatusPending,
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	router := newTestRouter(t, &mockService{}, nil)
	rec := doRequest(router, http.MethodGet, "/v1/entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RoleGates(t *testing.T) {
	svc := &mockService{
		pendingApprovalsFn: func(_ context.Context, _ uuid.UUID) ([]models.TimeEntry, error) {
			return nil, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	workerToken, _ := tokenFor(t, models.RoleWorker)
	rec := doRequest(router, http.MethodGet, "/v1/approvals/pending", workerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	managerToken, _ := tokenFor(t, models.RoleManager)
	rec = doRequest(router, http.MethodGet, "/v1/approvals/pending", managerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unapprove is admin-gated; managers are rejected at the router.
	rec = doRequest(router, http.MethodPost, "/v1/entries/"+uuid.NewString()+"/unapprove", managerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitEntry(t *testing.T) {
	token, user := tokenFor(t, models.RoleWorker)
	entry := sampleEntry(user.ID)

	svc := &mockService{
		submitEntryFn: func(_ context.Context, actorID uuid.UUID, input *workflow.EntryInput) (*models.TimeEntry, error) {
			assert.Equal(t, user.ID, actorID)
			assert.Equal(t, 8.0, input.RegularHours)
			assert.Equal(t, 15, input.Date.Day())
			return entry, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doRequest(router, http.MethodPost, "/v1/entries", token, map[string]any{
		"date":          "2025-06-15",
		"regular_hours": 8,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp entryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entry.ID, resp.ID)
	assert.Equal(t, "2025-06-15", resp.Date)
	assert.Equal(t, models.StatusPending, resp.Status)
}

func TestSubmitEntry_BadDate(t *testing.T) {
	token, _ := tokenFor(t, models.RoleWorker)
	router := newTestRouter(t, &mockService{}, nil)

	rec := doRequest(router, http.MethodPost, "/v1/entries", token, map[string]any{
		"date":          "15/06/2025",
		"regular_hours": 8,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitEntry_ValidationError(t *testing.T) {
	token, _ := tokenFor(t, models.RoleWorker)
	svc := &mockService{
		submitEntryFn: func(_ context.Context, _ uuid.UUID, _ *workflow.EntryInput) (*models.TimeEntry, error) {
			return nil, e.Validation([]e.FieldError{{Field: "date", Message: "future dates are not allowed"}})
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doRequest(router, http.MethodPost, "/v1/entries", token, map[string]any{
		"date":          "2030-01-01",
		"regular_hours": 8,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "date", resp.Fields[0].Field)
}

func TestErrorMapping(t *testing.T) {
	token, _ := tokenFor(t, models.RoleManager)
	entryID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"conflict", fmt.Errorf("entry moved: %w", e.ErrConflict), http.StatusConflict},
		{"forbidden", fmt.Errorf("approve: %w", e.ErrForbidden), http.StatusForbidden},
		{"not found", e.ErrNotFound, http.StatusNotFound},
		{"internal", fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				approveEntryFn: func(_ context.Context, _, _ uuid.UUID, _ string) (*models.TimeEntry, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(t, svc, nil)
			rec := doRequest(router, http.MethodPost, "/v1/entries/"+entryID.String()+"/approve", token, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRejectEntry_PassesReason(t *testing.T) {
	token, user := tokenFor(t, models.RoleManager)
	entry := sampleEntry(uuid.New())
	entry.Status = models.StatusRejected

	svc := &mockService{
		rejectEntryFn: func(_ context.Context, actorID, entryID uuid.UUID, reason string) (*models.TimeEntry, error) {
			assert.Equal(t, user.ID, actorID)
			assert.Equal(t, entry.ID, entryID)
			assert.Equal(t, "wrong project code", reason)
			return entry, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doRequest(router, http.MethodPost, "/v1/entries/"+entry.ID.String()+"/reject", token,
		map[string]any{"reason": "wrong project code"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	token, _ := tokenFor(t, models.RoleWorker)
	svc := &mockService{
		deleteEntryFn: func(_ context.Context, _, _ uuid.UUID) error { return nil },
	}
	router := newTestRouter(t, svc, nil)

	rec := doRequest(router, http.MethodDelete, "/v1/entries/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/v1/entries/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEntries_QueryParams(t *testing.T) {
	token, user := tokenFor(t, models.RoleManager)
	target := uuid.New()

	svc := &mockService{
		listEntriesFn: func(_ context.Context, actorID, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
			assert.Equal(t, user.ID, actorID)
			assert.Equal(t, target, userID)
			assert.Equal(t, "2025-06-01", from.Format(dateLayout))
			assert.Equal(t, "2025-06-30", to.Format(dateLayout))
			return []models.TimeEntry{*sampleEntry(target)}, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	path := "/v1/entries?user_id=" + target.String() + "&from=2025-06-01&to=2025-06-30"
	rec := doRequest(router, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []entryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestBatchApprove(t *testing.T) {
	token, _ := tokenFor(t, models.RoleManager)
	ok := sampleEntry(uuid.New())
	ok.Status = models.StatusApproved
	failedID := uuid.New()

	svc := &mockService{
		batchApproveFn: func(_ context.Context, _ uuid.UUID, entryIDs []uuid.UUID) (*workflow.BatchResult, error) {
			assert.Len(t, entryIDs, 2)
			return &workflow.BatchResult{
				Succeeded: []*models.TimeEntry{ok},
				Failed:    []workflow.BatchFailure{{ID: failedID, Reason: "not pending"}},
			}, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doRequest(router, http.MethodPost, "/v1/entries/batch-approve", token,
		map[string]any{"entry_ids": []uuid.UUID{ok.ID, failedID}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp batchApproveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Succeeded, 1)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, failedID, resp.Failed[0].ID)
}

func TestExportPayroll(t *testing.T) {
	token, user := tokenFor(t, models.RoleAdmin)

	svc := &mockService{
		processPayrollFn: func(_ context.Context, actorID, companyID uuid.UUID, from, to time.Time) ([]workflow.PayrollRow, error) {
			assert.Equal(t, user.ID, actorID)
			assert.Equal(t, user.CompanyID, companyID)
			assert.Equal(t, "2025-06-01", from.Format(dateLayout))
			assert.Equal(t, "2025-06-30", to.Format(dateLayout))
			return []workflow.PayrollRow{{
				Date:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
				UserName: "Wes Worker",
				Email:    "worker@acme.test",
				Regular:  8,
			}}, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doRequest(router, http.MethodGet, "/v1/export/payroll?year=2025&month=6", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payroll_2025_06.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Employee")
	assert.Contains(t, lines[1], "Wes Worker")

	rec = doRequest(router, http.MethodGet, "/v1/export/payroll?month=6", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "worker@acme.test",
		PasswordHash: string(hash),
		Role:         models.RoleWorker,
		CompanyID:    uuid.New(),
	}
	router := newTestRouter(t, &mockService{}, &stubUserSource{user: user})

	rec := doRequest(router, http.MethodPost, "/v1/auth/login", "",
		map[string]any{"email": user.Email, "password": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])

	rec = doRequest(router, http.MethodPost, "/v1/auth/login", "",
		map[string]any{"email": user.Email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
