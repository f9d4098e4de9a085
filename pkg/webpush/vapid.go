package webpush

import (
	webpush "github.com/SherClockHolmes/webpush-go"
)

// GenerateVAPIDKeys creates a fresh keypair for a new project. Keys
// are base64 URL-encoded, ready to hand to pushManager.subscribe on
// the client side.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}
