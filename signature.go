package rtms

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
)

var (
	ErrMissingClientID     = errors.New("ZM_RTMS_CLIENT cannot be empty")
	ErrMissingClientSecret = errors.New("ZM_RTMS_SECRET cannot be empty")
)

// SignatureParams are the inputs of GenerateSignature.
type SignatureParams struct {
	ClientID     string
	ClientSecret string
	MeetingUUID  string
	StreamID     string
}

// GenerateSignature returns the hex HMAC-SHA256, keyed with the client
// secret, of "client,uuid,streamId". ZM_RTMS_CLIENT and ZM_RTMS_SECRET take
// precedence over the values in p.
func GenerateSignature(p SignatureParams) (string, error) {
	client := p.ClientID
	if env := os.Getenv("ZM_RTMS_CLIENT"); env != "" {
		client = env
	}
	secret := p.ClientSecret
	if env := os.Getenv("ZM_RTMS_SECRET"); env != "" {
		secret = env
	}
	if client == "" {
		return "", ErrMissingClientID
	}
	if secret == "" {
		return "", ErrMissingClientSecret
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(client + "," + p.MeetingUUID + "," + p.StreamID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
