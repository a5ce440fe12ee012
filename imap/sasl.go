package imap

import (
	"fmt"
	"strings"

	"encoding/base64"
)

// Functions

// DecodePlain takes in the base64-encoded SASL PLAIN
// credentials line a client sends after the continuation
// prompt and splits it into its three NUL-separated parts.
// The authorization identity may be empty and is ignored
// by the caller in practice.
func DecodePlain(blob string) (string, string, string, error) {

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to decode base64 credentials: %v", err)
	}

	parts := strings.Split(string(raw), "\x00")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("credentials did not consist of authzid, user name, and password")
	}

	if parts[1] == "" {
		return "", "", "", fmt.Errorf("credentials were sent with an empty user name")
	}

	return parts[0], parts[1], parts[2], nil
}
