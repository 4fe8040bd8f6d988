package manifest

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formplay/cli/internal/formplayer"
)

const manifestBody = `{"version":2,"actions":{"answer":"answer-v2","SUBMIT":"submit-v2"},"telemetry":{"collector_origin":"grpc://collector:7000"}}`

func TestResolveDefaultsOnly(t *testing.T) {
	tokens, m, err := Resolve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "next_index", tokens.Token(formplayer.ActionNextQuestion))
	assert.Equal(t, "set-lang", tokens.Token(formplayer.ActionChangeLanguage))
}

func TestResolveLayers(t *testing.T) {
	ClearCache()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, Path, r.URL.Path)
		_, _ = io.WriteString(w, manifestBody)
	}))
	defer srv.Close()

	opts := Options{
		BaseURL:   srv.URL,
		Fetch:     true,
		Overrides: map[string]string{"submit": "submit-local"},
		Log:       zerolog.Nop(),
	}
	tokens, m, err := Resolve(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, "answer-v2", tokens.Token(formplayer.ActionAnswer))
	assert.Equal(t, "submit-local", tokens.Token(formplayer.ActionSubmit))
	assert.Equal(t, "current", tokens.Token(formplayer.ActionCurrent))

	addr, secure := m.CollectorAddress()
	assert.Equal(t, "collector:7000", addr)
	assert.False(t, secure)

	_, _, err = Resolve(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second resolve should hit the cache")
}

func TestResolveFetchFailureFallsBack(t *testing.T) {
	ClearCache()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tokens, m, err := Resolve(context.Background(), Options{BaseURL: srv.URL, Fetch: true, Log: zerolog.Nop()})
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "answer", tokens.Token(formplayer.ActionAnswer))
}

func TestFetchSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	hash := sha256.Sum256([]byte(manifestBody))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	require.NoError(t, err)

	signed := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if signed {
			w.Header().Set(SignatureHeader, base64.StdEncoding.EncodeToString(sig))
		}
		_, _ = io.WriteString(w, manifestBody)
	}))
	defer srv.Close()

	f := Fetcher{PublicKeyPEM: pubPEM}
	m, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Version)

	signed = false
	_, err = f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	got := Merge(map[string]string{"answer": "a"}, map[string]string{"ANSWER": " ", "current": "c"})
	assert.Equal(t, map[string]string{"ANSWER": "a", "CURRENT": "c"}, got)
}
