package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveURLSignsReference(t *testing.T) {
	signer := NewHMACSigner("https://cdn.example.com/", "secret")
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return fixed }

	url := signer.ResolveURL("uploads/photo.jpg", 15*time.Minute)

	expires := fixed.Add(15 * time.Minute).Unix()
	mac := hmac.New(sha256.New, []byte("secret"))
	fmt.Fprintf(mac, "uploads/photo.jpg:%d", expires)
	expected := fmt.Sprintf("https://cdn.example.com/uploads/photo.jpg?expires=%d&sig=%s", expires, hex.EncodeToString(mac.Sum(nil)))

	assert.Equal(t, expected, url)
}

func TestResolveURLPassesThroughAbsoluteURLs(t *testing.T) {
	signer := NewHMACSigner("https://cdn.example.com", "secret")

	assert.Equal(t, "https://elsewhere.example.com/a.png", signer.ResolveURL("https://elsewhere.example.com/a.png", time.Minute))
	assert.Equal(t, "http://elsewhere.example.com/a.png", signer.ResolveURL("http://elsewhere.example.com/a.png", time.Minute))
}

func TestResolveURLEmptyRef(t *testing.T) {
	signer := NewHMACSigner("https://cdn.example.com", "secret")
	assert.Empty(t, signer.ResolveURL("", time.Minute))
}

func TestResolveURLTrimsLeadingSlash(t *testing.T) {
	signer := NewHMACSigner("https://cdn.example.com", "secret")
	url := signer.ResolveURL("/uploads/photo.jpg", time.Minute)
	assert.Contains(t, url, "https://cdn.example.com/uploads/photo.jpg?expires=")
}
