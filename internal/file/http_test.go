package file

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(env *testEnv, owner uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), env.service, func(*gin.Context) (uuid.UUID, bool) {
		return owner, owner != uuid.Nil
	})
	return router
}

func multipartUpload(t *testing.T, name, content string, parentID *uuid.UUID) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	if parentID != nil {
		require.NoError(t, writer.WriteField("parent_id", parentID.String()))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func do(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestHTTPUploadListDownloadDelete(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)

	rec := do(router, multipartUpload(t, "test.txt", dummyContent, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := decodeResult(t, rec)
	require.True(t, uploaded.Success)
	require.NotNil(t, uploaded.File)
	assert.Equal(t, "test.txt", uploaded.FileName)
	assert.NotContains(t, rec.Body.String(), env.repo.files[0].ContentID, "content ids are not exposed")

	rec = do(router, httptest.NewRequest(http.MethodGet, "/v1/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"test.txt"`)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/v1/files/"+uploaded.File.ID.String()+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dummyContent, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "test.txt")

	rec = do(router, httptest.NewRequest(http.MethodGet, "/v1/download/test.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dummyContent, rec.Body.String())

	rec = do(router, httptest.NewRequest(http.MethodDelete, "/v1/files/"+uploaded.File.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/v1/files/"+uploaded.File.ID.String()+"/download", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file not found", decodeResult(t, rec).Message)
}

func TestHTTPDeleteByName(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)

	rec := do(router, multipartUpload(t, "test.txt", dummyContent, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, httptest.NewRequest(http.MethodDelete, "/v1/delete/test.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "test.txt", decodeResult(t, rec).FileName)
	assert.Zero(t, env.blobCount(t))

	rec = do(router, httptest.NewRequest(http.MethodDelete, "/v1/delete/test.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, uuid.Nil)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/v1/files", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPUploadUnknownParent(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)
	missing := uuid.New()

	rec := do(router, multipartUpload(t, "a.txt", "x", &missing))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "parent folder not found", decodeResult(t, rec).Message)
}

func TestHTTPUploadTooLarge(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)

	rec := do(router, multipartUpload(t, "big.bin", strings.Repeat("x", 4096), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.blobCount(t))
}

func TestHTTPDeleteManyModes(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)
	a := env.upload(t, owner, "a.txt", "a")
	missing := uuid.New()

	body := `{"ids":["` + a.ID.String() + `","` + missing.String() + `"]}`
	req := httptest.NewRequest(http.MethodDelete, "/v1/files", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := do(router, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeResult(t, rec).Message, missing.String())
	assert.Equal(t, 1, env.repo.fileCount(), "atomic by default")

	body = `{"ids":["` + a.ID.String() + `","` + missing.String() + `"],"mode":"fail_fast"}`
	req = httptest.NewRequest(http.MethodDelete, "/v1/files", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = do(router, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []uuid.UUID{a.ID}, decodeResult(t, rec).Deleted)
	assert.Zero(t, env.repo.fileCount())

	req = httptest.NewRequest(http.MethodDelete, "/v1/files", strings.NewReader(`{"ids":["`+a.ID.String()+`"],"mode":"sometimes"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, do(router, req).Code)
}

func TestHTTPFoldersAndPath(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)

	req := httptest.NewRequest(http.MethodPost, "/v1/folders", strings.NewReader(`{"name":"docs"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(router, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	docs := decodeResult(t, rec).Folder
	require.NotNil(t, docs)

	req = httptest.NewRequest(http.MethodPost, "/v1/folders", strings.NewReader(`{"name":"reports","parent_id":"`+docs.ID.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(router, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	reports := decodeResult(t, rec).Folder
	require.NotNil(t, reports)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/v1/folders/"+reports.ID.String()+"/path", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/docs/reports", body.Path)
}

func TestHTTPDeleteAccount(t *testing.T) {
	owner := uuid.New()
	env := newTestEnv(t, owner)
	router := newTestRouter(env, owner)
	env.upload(t, owner, "a.txt", "a")

	rec := do(router, httptest.NewRequest(http.MethodDelete, "/v1/user", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, env.blobCount(t))

	rec = do(router, httptest.NewRequest(http.MethodDelete, "/v1/user", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "account deletion failed", decodeResult(t, rec).Message)
}
