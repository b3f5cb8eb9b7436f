// Package directory resolves the real phone numbers behind the masked
// conversation. The rest of the system only ever sees masked numbers; this
// is the one boundary where real numbers appear.
package directory

import (
	"context"

	"github.com/google/uuid"
)

// ClientDirectory maps participants to their real phone numbers.
type ClientDirectory interface {
	ClientPhone(ctx context.Context, clientID uuid.UUID) (string, error)
	SitterPhone(ctx context.Context, sitterID uuid.UUID) (string, error)
	// FrontDeskPhone is the org's staffed inbox number, the owner_inbox
	// fallback target.
	FrontDeskPhone(ctx context.Context, orgID uuid.UUID) (string, error)
}
