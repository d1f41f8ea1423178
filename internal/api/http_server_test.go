package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/models"
	"github.com/OdenLounge/Oden-Lounge/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	srv, deps := newTestServer(t, config.HTTPConfig{})
	deps.store.On("Ping", mock.Anything).Return(nil).Once()
	deps.store.On("Ping", mock.Anything).Return(errors.New("down")).Once()

	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv.Handler(), http.MethodGet, "/readyz", "").Code)
}

func TestCreateReservation(t *testing.T) {
	body := `{"fName":"Ann","lName":"Lee","email":"ann@example.com","phone":"0123","guest":"4","date":"2025-02-14","time":"19:30"}`

	t.Run("Created", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.reservations.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Reservation) bool {
			return r.FirstName == "Ann" && r.Guests == "4"
		})).Return(&models.Reservation{ID: "r1", FirstName: "Ann", ReferenceNumber: "ABCDEF1234", Status: models.StatusPending}, nil).Once()

		rec := do(t, srv.Handler(), http.MethodPost, "/api/reservations", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "r1", out["_id"])
		assert.Equal(t, "ABCDEF1234", out["referenceNumber"])
		assert.Equal(t, "pending", out["status"])
	})

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"MissingField", fmt.Errorf("%w: Phone", models.ErrMissingField), http.StatusBadRequest},
		{"Throttled", models.ErrThrottled, http.StatusTooManyRequests},
		{"NotificationFailed", fmt.Errorf("%w: relay", service.ErrNotification), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, deps := newTestServer(t, config.HTTPConfig{})
			deps.reservations.On("Create", mock.Anything, mock.Anything).Return(nil, tc.err).Once()
			rec := do(t, srv.Handler(), http.MethodPost, "/api/reservations", body)
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusInternalServerError {
				assert.Equal(t, "Failed to create reservation", errorBody(t, rec))
			}
		})
	}

	t.Run("BadJSON", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		rec := do(t, srv.Handler(), http.MethodPost, "/api/reservations", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		deps.reservations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAdminReservations(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.reservations.On("List", mock.Anything).Return(nil, nil).Once()
		rec := do(t, srv.Handler(), http.MethodGet, "/api/admin/reservations", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("FindByReference", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.reservations.On("FindByReference", mock.Anything, "ABCDEF1234").
			Return(&models.Reservation{ReferenceNumber: "ABCDEF1234"}, nil).Once()
		deps.reservations.On("FindByReference", mock.Anything, "MISSING000").
			Return(nil, models.ErrNotFound).Once()

		assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/api/admin/reservations/ABCDEF1234", "").Code)
		rec := do(t, srv.Handler(), http.MethodGet, "/api/admin/reservations/MISSING000", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Reservation not found", errorBody(t, rec))
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.reservations.On("UpdateStatus", mock.Anything, "r1", "Confirmed").
			Return(&models.Reservation{ID: "r1", Status: models.StatusConfirmed}, nil).Once()
		deps.reservations.On("UpdateStatus", mock.Anything, "r1", "maybe").
			Return(nil, models.ErrInvalidStatus).Once()
		deps.reservations.On("UpdateStatus", mock.Anything, "nope", "cancelled").
			Return(nil, models.ErrNotFound).Once()

		rec := do(t, srv.Handler(), http.MethodPut, "/api/admin/update-reservation/r1", `{"status":"Confirmed"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)

		assert.Equal(t, http.StatusBadRequest, do(t, srv.Handler(), http.MethodPut, "/api/admin/update-reservation/r1", `{"status":"maybe"}`).Code)
		assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodPut, "/api/admin/update-reservation/nope", `{"status":"cancelled"}`).Code)
	})

	t.Run("Export", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.reservations.On("List", mock.Anything).Return([]*models.Reservation{
			{ReferenceNumber: "ABCDEF1234", FirstName: "Ann", Status: models.StatusCancelled},
		}, nil).Once()

		rec := do(t, srv.Handler(), http.MethodGet, "/api/admin/reservations/export", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "reservations_")
		deps.reservations.AssertNotCalled(t, "FindByReference", mock.Anything, mock.Anything)

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		v, err := f.GetCellValue("Reservations", "A2")
		require.NoError(t, err)
		assert.Equal(t, "ABCDEF1234", v)
	})
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.gallery.On("Upload", mock.Anything, []byte("imagebytes")).
			Return(&models.GalleryItem{ID: "g1", Image: "https://cdn.test/oden-lounge/x.png"}, nil).Once()

		body, ct := multipartBody(t, "image", []byte("imagebytes"))
		req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"imageUrl":"https://cdn.test/oden-lounge/x.png"}`, rec.Body.String())
	})

	t.Run("MissingFile", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		body, ct := multipartBody(t, "other", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		deps.gallery.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.gallery.On("Upload", mock.Anything, mock.Anything).Return(nil, models.ErrUnsupportedImage).Once()

		body, ct := multipartBody(t, "image", []byte("text"))
		req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGalleryRoutes(t *testing.T) {
	t.Run("Delete", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.gallery.On("Delete", mock.Anything, "g1").Return(nil).Once()
		deps.gallery.On("Delete", mock.Anything, "g2").Return(fmt.Errorf("%w: cloud down", service.ErrDeletePending)).Once()
		deps.gallery.On("Delete", mock.Anything, "g3").Return(models.ErrNotFound).Once()

		assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodDelete, "/api/admin/images/g1", "").Code)
		assert.Equal(t, http.StatusAccepted, do(t, srv.Handler(), http.MethodDelete, "/api/admin/images/g2", "").Code)
		rec := do(t, srv.Handler(), http.MethodDelete, "/api/admin/images/g3", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Image not found", errorBody(t, rec))
	})

	t.Run("DeleteComment", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.gallery.On("DeleteComment", mock.Anything, "g1", mock.MatchedBy(func(i *int) bool {
			return i != nil && *i == 0
		})).Return(nil).Once()
		deps.gallery.On("DeleteComment", mock.Anything, "g1", mock.MatchedBy(func(i *int) bool {
			return i != nil && *i == 7
		})).Return(models.ErrCommentIndexOutOfRange).Once()

		assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodDelete, "/api/admin/images/g1/comments", `{"commentIndex":0}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, srv.Handler(), http.MethodDelete, "/api/admin/images/g1/comments", `{"commentIndex":7}`).Code)
	})

	t.Run("PublicListLikeComment", func(t *testing.T) {
		srv, deps := newTestServer(t, config.HTTPConfig{})
		deps.gallery.On("List", mock.Anything).Return([]*models.GalleryItem{{ID: "g1", Comments: []string{}}}, nil).Twice()
		deps.gallery.On("Like", mock.Anything, "g1").Return(int64(5), nil).Once()
		deps.gallery.On("AddComment", mock.Anything, "g1", "").Return(nil, models.ErrEmptyComment).Once()

		assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/api/gallery", "").Code)
		assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/api/admin/images", "").Code)

		rec := do(t, srv.Handler(), http.MethodPost, "/api/gallery/g1/like", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"likes":5}`, rec.Body.String())

		assert.Equal(t, http.StatusBadRequest, do(t, srv.Handler(), http.MethodPost, "/api/gallery/g1/comments", `{"comment":""}`).Code)
	})
}

func TestContact(t *testing.T) {
	srv, deps := newTestServer(t, config.HTTPConfig{})
	deps.contact.On("Submit", mock.Anything, mock.MatchedBy(func(m *models.ContactMessage) bool {
		return m.Name == "Bo"
	})).Return(nil).Once()

	rec := do(t, srv.Handler(), http.MethodPost, "/api/contact", `{"name":"Bo","email":"bo@example.com","message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	deps.contact.AssertExpectations(t)
}

func TestNotFoundAndMethod(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})
	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodGet, "/api/nowhere", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodGet, "/api/admin/nowhere", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodGet, "/elsewhere", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv.Handler(), http.MethodDelete, "/api/reservations", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv.Handler(), http.MethodPost, "/api/admin/images/abc", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv.Handler(), http.MethodPut, "/healthz", "").Code)

	rec := do(t, srv.Handler(), http.MethodPatch, "/api/admin/reservations", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{RateLimit: config.RateLimit{RPS: 1, Burst: 1}})

	first := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	second := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{AllowedOrigins: []string{"https://odenlounge.co.uk"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/reservations", http.NoBody)
	req.Header.Set("Origin", "https://odenlounge.co.uk")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://odenlounge.co.uk", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPServer_ShutdownUnstarted(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})
	assert.NoError(t, srv.Shutdown(context.Background()))
}
