package matchcore

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// publicIDLen is the length of the client-facing pairing handle.
const publicIDLen = 10

var publicIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewPublicID returns a short opaque pairing handle. The token is
// derived from fresh UUID entropy, assigned once at ledger creation and
// never reused; uniqueness is ultimately enforced by the ledger's
// UNIQUE constraint.
func NewPublicID() string {
	id := uuid.New()
	enc := publicIDEncoding.EncodeToString(id[:])
	return strings.ToLower(enc[:publicIDLen])
}
