package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const machineTokenPrefix = "aio_"

// GenerateMachineToken creates a token of the form aio_<uuid>_<secret> and
// the hash to put into the config file.
func GenerateMachineToken() (token, hash string, err error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	token = machineTokenPrefix + uuid.NewString() + "_" + hex.EncodeToString(secret)
	return token, HashMachineToken(token), nil
}

func HashMachineToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// validMachineTokenFormat checks prefix and length before hashing.
func validMachineTokenFormat(token string) bool {
	return strings.HasPrefix(token, machineTokenPrefix) &&
		len(token) == len(machineTokenPrefix)+36+1+64
}
