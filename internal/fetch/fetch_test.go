package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_Downloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	body, err := New(1024).Image(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), body)
}

func TestImage_RejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	_, err := New(10).Image(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestImage_RejectsAdvertisedOversize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write([]byte(strings.Repeat("x", 1000000)))
	}))
	defer srv.Close()

	_, err := New(10).Image(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestImage_RejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(1024).Image(context.Background(), srv.URL)
	assert.Error(t, err)
}
