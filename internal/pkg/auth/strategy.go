package auth

import (
	"time"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// Strategy verifies principal tokens minted by the identity provider.
type Strategy interface {
	IssueToken(principal model.Principal) (string, error)
	ParseToken(token string) (model.Principal, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
