// Package registration creates principals on first contact and applies
// referral bonuses.
package registration

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

const (
	BaseBalance    int64 = 10
	ReferredBonus  int64 = 15
	ReferrerCredit int64 = 5

	codePrefix = "REF"
)

// Registrar establishes identities. Known principals only get their profile
// fields and last-active time refreshed.
type Registrar struct {
	principals store.Principals
	log        zerolog.Logger
}

func NewRegistrar(s store.Store, log zerolog.Logger) *Registrar {
	return &Registrar{principals: s.Principals(), log: log.With().Str("component", "registration").Logger()}
}

// ValidCode reports whether code has the shape of a referral code.
func ValidCode(code string) bool {
	rest, ok := strings.CutPrefix(code, codePrefix)
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Register records contact from prof. referralCode is honoured only on
// creation, only when well formed, and never for the principal's own code.
func (r *Registrar) Register(ctx context.Context, prof model.Profile, referralCode string) (*store.RegisterResult, error) {
	code := strings.TrimSpace(referralCode)
	if code != "" && (!ValidCode(code) || code == codePrefix+prof.ExternalID) {
		r.log.Debug().Str("principal", prof.ExternalID).Str("code", code).Msg("ignoring referral code")
		code = ""
	}

	res, err := r.principals.Register(ctx, store.RegisterParams{
		Profile:        prof,
		ReferralCode:   code,
		BaseBalance:    BaseBalance,
		ReferredBonus:  ReferredBonus,
		ReferrerCredit: ReferrerCredit,
	})
	if err != nil {
		return nil, err
	}

	if res.Created {
		ev := r.log.Info().Str("principal", prof.ExternalID).Int64("balance", res.Principal.Balance)
		if res.Referrer != nil {
			ev = ev.Str("referrer", res.Referrer.ExternalID)
		}
		ev.Msg("principal registered")
	}
	return res, nil
}
