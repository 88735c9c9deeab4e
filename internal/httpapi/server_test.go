package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/redisrec"
)

var usersSchema = redisrec.NewSchema("id").
	Attr("email", redisrec.String).
	Attr("age", redisrec.Integer).
	Attr("prefs", redisrec.Structured)

func schemas(table string) (redisrec.Classifier, error) {
	if table != "users" {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return usersSchema, nil
}

type fixture struct {
	mr  *miniredis.Miniredis
	drv *redisrec.Driver
	ts  *httptest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	drv := redisrec.NewRedis(rdb, redisrec.Options{Logf: t.Logf, Verbose: true})

	ts := httptest.NewServer(NewServer(drv, schemas, "").Handler())
	t.Cleanup(ts.Close)
	return &fixture{mr: mr, drv: drv, ts: ts}
}

type decoded struct {
	Status Status          `json:"status"`
	Value  json.RawMessage `json:"value"`
	Error  string          `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, decoded) {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, contentTypeJSON, resp.Header.Get("Content-Type"))
	var d decoded
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&d))
	return resp.StatusCode, d
}

func TestHealth(t *testing.T) {
	f := setup(t)
	code, d := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusOK, d.Status)
}

func TestRecordLifecycle(t *testing.T) {
	f := setup(t)

	code, d := f.do(t, http.MethodPost, "/tables/users/records", `{"email":"foo@example.com","age":30,"prefs":{"theme":"dark"}}`)
	require.Equal(t, http.StatusCreated, code, d.Error)
	assert.JSONEq(t, `{"id":1,"email":"foo@example.com","age":30,"prefs":{"theme":"dark"}}`, string(d.Value))
	assert.Equal(t, "30", f.mr.HGet("users:1", "age"))
	assert.Equal(t, `{"theme":"dark"}`, f.mr.HGet("users:1", "prefs"))

	code, d = f.do(t, http.MethodGet, "/tables/users/records/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":1,"email":"foo@example.com","age":30,"prefs":{"theme":"dark"}}`, string(d.Value))

	code, d = f.do(t, http.MethodPatch, "/tables/users/records/1", `{"age":31}`)
	require.Equal(t, http.StatusOK, code, d.Error)
	assert.JSONEq(t, `{"id":1,"email":"foo@example.com","age":31,"prefs":{"theme":"dark"}}`, string(d.Value))

	code, d = f.do(t, http.MethodGet, "/tables/users/count", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `1`, string(d.Value))

	code, _ = f.do(t, http.MethodDelete, "/tables/users/records/1", "")
	require.Equal(t, http.StatusOK, code)

	code, d = f.do(t, http.MethodGet, "/tables/users/records/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, StatusError, d.Status)

	code, _ = f.do(t, http.MethodDelete, "/tables/users/records/1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInsertErrors(t *testing.T) {
	f := setup(t)

	code, _ := f.do(t, http.MethodPost, "/tables/users/records", `{"id":7}`)
	require.Equal(t, http.StatusCreated, code)

	code, d := f.do(t, http.MethodPost, "/tables/users/records", `{"id":7}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, d.Error, "already exists")

	code, _ = f.do(t, http.MethodPost, "/tables/users/records", `{"age":"old"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/tables/users/records", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/tables/users/records", `null`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/tables/ghosts/records", `{}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateRejectsRenamedPrimaryKey(t *testing.T) {
	f := setup(t)
	for range 2 {
		code, _ := f.do(t, http.MethodPost, "/tables/users/records", `{"email":"a@example.com"}`)
		require.Equal(t, http.StatusCreated, code)
	}

	code, d := f.do(t, http.MethodPatch, "/tables/users/records/1", `{"ID":2,"email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, d.Error, "invalid attribute value")
	assert.Equal(t, "a@example.com", f.mr.HGet("users:1", "email"))
	assert.Equal(t, "a@example.com", f.mr.HGet("users:2", "email"))
}

func TestUpdateMissing(t *testing.T) {
	f := setup(t)
	code, _ := f.do(t, http.MethodPatch, "/tables/users/records/5", `{"age":1}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodGet, "/tables/users/records/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListAndDeleteAll(t *testing.T) {
	f := setup(t)

	code, d := f.do(t, http.MethodGet, "/tables/users/records", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(d.Value))

	for i := range 3 {
		code, _ := f.do(t, http.MethodPost, "/tables/users/records", fmt.Sprintf(`{"age":%d}`, i))
		require.Equal(t, http.StatusCreated, code)
	}

	code, d = f.do(t, http.MethodGet, "/tables/users/records", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"id":1,"age":0},{"id":2,"age":1},{"id":3,"age":2}]`, string(d.Value))

	code, d = f.do(t, http.MethodDelete, "/tables/users/records", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `3`, string(d.Value))
	assert.False(t, f.mr.Exists("users$all"))
}

func TestOrphans(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.drv.Storage().HSet(ctx, "users:12", map[string]string{"id": "12"}))

	code, d := f.do(t, http.MethodGet, "/tables/users/orphans", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[12]`, string(d.Value))

	code, d = f.do(t, http.MethodPost, "/tables/users/orphans/sweep", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[12]`, string(d.Value))
	assert.False(t, f.mr.Exists("users:12"))

	code, d = f.do(t, http.MethodGet, "/tables/users/orphans", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(d.Value))
}

func TestCorruptedRecordIsServerError(t *testing.T) {
	f := setup(t)
	code, _ := f.do(t, http.MethodPost, "/tables/users/records", `{"age":1}`)
	require.Equal(t, http.StatusCreated, code)
	f.mr.HSet("users:1", "age", "one")

	code, d := f.do(t, http.MethodGet, "/tables/users/records/1", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, d.Error, "cannot decode integer attribute")
}
