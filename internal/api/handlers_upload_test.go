// handlers_upload_test.go - Tests for upload handlers
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sahayak-analytics/backend/internal/config"
	"github.com/sahayak-analytics/backend/internal/models"
	"github.com/sahayak-analytics/backend/internal/testutil"
)

func uploadTestConfig() *config.AppConfig {
	cfg := config.DefaultConfig()
	cfg.Security.AllowFileDeletion = true
	return cfg
}

func TestUploadHandler_HandleUploadFile(t *testing.T) {
	tests := []struct {
		name       string
		request    uploadFileRequest
		wantStatus int
		wantErr    bool
		errCode    string
	}{
		{
			name: "valid roster upload",
			request: uploadFileRequest{
				Name: "roster.json",
				Data: base64.StdEncoding.EncodeToString([]byte(`[{"name":"A"}]`)),
			},
			wantStatus: http.StatusCreated,
			wantErr:    false,
		},
		{
			name: "csv roster upload",
			request: uploadFileRequest{
				Name: "roster.csv",
				Data: base64.StdEncoding.EncodeToString([]byte("name,grade,subject,remark\n")),
			},
			wantStatus: http.StatusCreated,
			wantErr:    false,
		},
		{
			name: "empty name",
			request: uploadFileRequest{
				Name: "",
				Data: base64.StdEncoding.EncodeToString([]byte("content")),
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name: "empty data",
			request: uploadFileRequest{
				Name: "roster.json",
				Data: "",
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name: "invalid base64",
			request: uploadFileRequest{
				Name: "roster.json",
				Data: "not-valid-base64!!!",
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
		{
			name: "disallowed file type",
			request: uploadFileRequest{
				Name: "roster.exe",
				Data: base64.StdEncoding.EncodeToString([]byte("binary")),
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantErr:    true,
			errCode:    "UNSUPPORTED_MEDIA_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage()
			handler := NewUploadHandler(store, uploadTestConfig())

			e := echo.New()
			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPost, "/api/files/upload", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler.HandleUploadFile(c)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
					return
				}
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Errorf("expected APIError, got %T", err)
					return
				}
				if apiErr.Status != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if rec.Code != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
				}

				var response models.FileInfo
				if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
					t.Errorf("failed to unmarshal response: %v", err)
					return
				}
				if response.ID == "" {
					t.Error("expected non-empty ID in response")
				}
				if response.Name != tt.request.Name {
					t.Errorf("expected name %s, got %s", tt.request.Name, response.Name)
				}
			}
		})
	}
}

func TestUploadHandler_HandleUploadForm(t *testing.T) {
	store := testutil.NewMockStorage()
	handler := NewUploadHandler(store, uploadTestConfig())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("student_data", "roster.json")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte(`[{"name":"Arjun","grade":"Class 4","subject":"Maths","remark":"ok"}]`))
	writer.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload/form", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleUploadForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}

	var response models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Name != "roster.json" {
		t.Errorf("expected name roster.json, got %s", response.Name)
	}
}

func TestUploadHandler_HandleUploadFormMissingFile(t *testing.T) {
	store := testutil.NewMockStorage()
	handler := NewUploadHandler(store, uploadTestConfig())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("other", "value")
	writer.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload/form", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleUploadForm(c)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400 APIError, got %v", err)
	}
}

func TestUploadHandler_HandleGetFile(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("file-1", "roster.json", []byte("[]"))
	handler := NewUploadHandler(store, uploadTestConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/file-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("file-1")

	if err := handler.HandleGetFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestUploadHandler_HandleGetFileNotFound(t *testing.T) {
	store := testutil.NewMockStorage()
	handler := NewUploadHandler(store, uploadTestConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := handler.HandleGetFile(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}

func TestUploadHandler_HandleDeleteFile(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("file-1", "roster.json", []byte("[]"))
	handler := NewUploadHandler(store, uploadTestConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/files/file-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("file-1")

	if err := handler.HandleDeleteFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if store.GetFileCount() != 0 {
		t.Error("expected file to be deleted")
	}
}

func TestUploadHandler_HandleDeleteFileDisabled(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("file-1", "roster.json", []byte("[]"))

	cfg := uploadTestConfig()
	cfg.Security.AllowFileDeletion = false
	handler := NewUploadHandler(store, cfg)

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/files/file-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("file-1")

	err := handler.HandleDeleteFile(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusForbidden {
		t.Errorf("expected 403 APIError, got %v", err)
	}
	if store.GetFileCount() != 1 {
		t.Error("file should not have been deleted")
	}
}

func TestUploadHandler_HandleRenameFile(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("file-1", "roster.json", []byte("[]"))
	handler := NewUploadHandler(store, uploadTestConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/files/file-1",
		strings.NewReader(`{"name":"class-4-roster.json"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("file-1")

	if err := handler.HandleRenameFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var response models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Name != "class-4-roster.json" {
		t.Errorf("expected renamed file, got %s", response.Name)
	}
}

func TestUploadHandler_HandleGetRecentFiles(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("file-1", "a.json", []byte("[]"))
	store.AddFile("file-2", "b.csv", []byte("name,grade,subject,remark\n"))
	handler := NewUploadHandler(store, uploadTestConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/recent", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleGetRecentFiles(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var files []*models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %d", len(files))
	}
}
