package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseID parses a client supplied entry identifier. Anything other than a
// canonical UUID is rejected with ErrInvalidIdentifier. The nil UUID is well
// formed and is left to the repository, which reports it as not found.
func ParseID(raw string) (uuid.UUID, error) {
	s := strings.TrimSpace(raw)
	// uuid.Parse also accepts urn and braced forms; entries only use the canonical one
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return id, nil
}
