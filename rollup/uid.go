package rollup

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// ReviewUID derives a stable identifier for a review row from its immutable
// fields. The source table carries no review id, so dedup and resume both key
// on this digest. Missing fields contribute an empty string. Two rows with
// identical trimmed fields collide; that is an accepted approximation.
func ReviewUID(projectID, userID, createdOn, description string) string {
	raw := strings.Join([]string{
		strings.TrimSpace(projectID),
		strings.TrimSpace(userID),
		strings.TrimSpace(createdOn),
		strings.TrimSpace(description),
	}, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
