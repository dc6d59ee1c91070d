package logger

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iurnickita/campaignadmin/internal/logger/config"
)

func TestNewZapLog(t *testing.T) {
	zl, err := NewZapLog(config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	require.NotNil(t, zl)

	_, err = NewZapLog(config.Config{LogLevel: "loud"})
	require.Error(t, err)
}

func TestRequestLogMdlw(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {
		// тело запроса доступно хендлеру после логирования
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}, zap.New(core))

	r := httptest.NewRequest(http.MethodPost, "/api/programs", strings.NewReader(`{"name":"p"}`))
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, `{"name":"p"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, `{"name":"p"}`, entries[0].ContextMap()["body"])
	require.Equal(t, "201", entries[1].ContextMap()["code"])
	require.Equal(t, entries[0].ContextMap()["request_id"], entries[1].ContextMap()["request_id"])
}

func TestRequestLogMdlwSkipsMultipart(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var got string
	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
	}, zap.New(core))

	r := httptest.NewRequest(http.MethodPost, "/api/campaigns/publish", strings.NewReader("--x--"))
	r.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	r.Header.Set(HeaderRequestID, "req-1")
	h(httptest.NewRecorder(), r)

	require.Equal(t, "--x--", got)
	require.Equal(t, "<multipart>", logs.All()[0].ContextMap()["body"])
	require.Equal(t, "req-1", logs.All()[0].ContextMap()["request_id"])
}
