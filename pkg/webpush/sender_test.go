package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testEndpoint(t *testing.T, url string) Endpoint {
	t.Helper()
	// a real P-256 keypair; the library encrypts against it
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return Endpoint{
		URL:    url,
		P256dh: base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

func testIdentity(t *testing.T) VAPIDIdentity {
	t.Helper()
	publicKey, privateKey, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	return VAPIDIdentity{
		Subscriber: "mailto:ops@example.com",
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}
}

func TestSendSucceedsOnCreated(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewHTTPSender()
	err := sender.Send(context.Background(), testIdentity(t), testEndpoint(t, srv.URL), Payload{
		Title: "hi",
		Body:  "there",
		ID:    "n-1",
	})
	require.NoError(t, err)
	require.Contains(t, gotAuth, "vapid")
}

func TestSendReportsGoneEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	sender := NewHTTPSender()
	err := sender.Send(context.Background(), testIdentity(t), testEndpoint(t, srv.URL), Payload{Title: "hi", Body: "x", ID: "n-1"})

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	require.True(t, sendErr.Gone())
}

func TestNewHTTPSenderCapsRoundTrip(t *testing.T) {
	require.Equal(t, sendTimeout, NewHTTPSender().client.Timeout)
}

func TestSendGivesUpOnHungService(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	sender := &HTTPSender{ttl: 60, client: &http.Client{Timeout: 50 * time.Millisecond}}
	err := sender.Send(context.Background(), testIdentity(t), testEndpoint(t, srv.URL), Payload{Title: "hi", Body: "x", ID: "n-1"})
	require.Error(t, err)
}

func TestSendOtherErrorsAreNotGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewHTTPSender()
	err := sender.Send(context.Background(), testIdentity(t), testEndpoint(t, srv.URL), Payload{Title: "hi", Body: "x", ID: "n-1"})

	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	require.False(t, sendErr.Gone())
	require.Equal(t, http.StatusTooManyRequests, sendErr.StatusCode)
}
