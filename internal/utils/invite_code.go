package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	inviteCodeGroups   = 3
	inviteCodeGroupLen = 4
)

// GenerateInviteCode returns a random team invite code like 3f9a-01bc-77de
func GenerateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeGroups*inviteCodeGroupLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := hex.EncodeToString(buf)
	groups := make([]string, inviteCodeGroups)
	for i := range groups {
		groups[i] = encoded[i*inviteCodeGroupLen : (i+1)*inviteCodeGroupLen]
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeInviteCode undoes the usual copy/paste damage: surrounding space and upper case.
func NormalizeInviteCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
