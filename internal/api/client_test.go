package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energia/energia-dashboard/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", time.Second)
}

func TestListGeneratorsSendsTokenAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/matrizes/with-filiais", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":1,"nome":"Usina","geracaoKw":1000.5,"porcentagemMatriz":"20",
			"filiais":[{"id":2,"nome":"Loja","porcentagemEnergia":30}]}]`)
	})

	out, err := c.ListGenerators(WithToken(context.Background(), "tok-1"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1000.5, out[0].GeneratedKw.Float())
	assert.Equal(t, 20.0, out[0].OwnUsePercent.Float())
	require.Len(t, out[0].Dependents, 1)
	assert.Equal(t, 30.0, out[0].Dependents[0].ReceivePercent.Float())
}

func TestStatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/filiais/9/with-matriz":
			w.WriteHeader(http.StatusNotFound)
		case "/api/filiais":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "Porcentagem excede o limite. Disponível: 10%")
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"status":500,"error":"Internal Server Error","message":"boom"}`)
		}
	})
	ctx := context.Background()

	_, err := c.GetDependent(ctx, 9)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.CreateDependent(ctx, domain.DependentUnit{Name: "x", GeneratorID: 1})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "Disponível: 10%")
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = c.ListUsers(ctx)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "boom", se.Message)
}

func TestCreateDependentNestsGenerator(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "matrizId")
		nested, ok := body["matriz"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(5), nested["id"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":11,"nome":"Loja","matriz":{"id":5}}`)
	})

	out, err := c.CreateDependent(context.Background(), domain.DependentUnit{Name: "Loja", GeneratorID: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(11), out.ID)
	assert.Equal(t, int64(5), out.GeneratorRef())
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/users/3", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.DeleteUser(context.Background(), 3))
}

func TestSearchEncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "são paulo", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `[]`)
	})
	out, err := c.SearchGenerators(context.Background(), "são paulo")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestUploadFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/4/upload", r.URL.Path)
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "conta.pdf", fh.Filename)
		assert.Equal(t, "application/pdf", fh.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 body", string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":8,"originalFilename":"conta.pdf","contentType":"application/pdf","sizeBytes":13}`)
	})

	out, err := c.UploadFile(context.Background(), 4, "conta.pdf", "application/pdf", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), out.ID)
	assert.True(t, out.IsPDF())
}

func TestOpenFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/2/view", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="a.pdf"`)
		_, _ = io.WriteString(w, "%PDF")
	})

	dl, err := c.OpenFile(context.Background(), 2, true)
	require.NoError(t, err)
	defer dl.Body.Close()
	b, _ := io.ReadAll(dl.Body)
	assert.Equal(t, "%PDF", string(b))
	assert.Equal(t, "application/pdf", dl.ContentType)
	assert.Equal(t, `inline; filename="a.pdf"`, dl.ContentDisposition)
}

func TestOpenFileBodyOutlivesRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4\n")
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond)
		_, _ = io.WriteString(w, "%%EOF")
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/api", 100*time.Millisecond)

	dl, err := c.OpenFile(context.Background(), 2, false)
	require.NoError(t, err)
	defer dl.Body.Close()
	b, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%%EOF", string(b))
}

func TestOpenFileHeaderWaitIsBounded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	c := New(srv.URL+"/api", 50*time.Millisecond)

	_, err := c.OpenFile(context.Background(), 2, false)
	require.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"role":"administrator","token":"abc","expiresAt":"2030-01-01T00:00:00Z"}`)
	})

	id, err := c.Authenticate(context.Background(), domain.Credentials{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Username)
	assert.Equal(t, "abc", id.Token)
	assert.Equal(t, 2030, id.ExpiresAt.Year())

	_, err = c.Authenticate(context.Background(), domain.Credentials{Username: "admin", Password: "nope"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}
