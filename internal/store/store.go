package store

import (
	"context"

	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ and share internal/store/sqlstore.
type Store interface {
	Principals() Principals
	Ledger() Ledger
	Searches() Searches
	Referrals() Referrals

	HealthPing(ctx context.Context) error
	Close() error
}

// RegisterParams describes a first-contact registration.
type RegisterParams struct {
	Profile        model.Profile
	ReferralCode   string
	BaseBalance    int64
	ReferredBonus  int64
	ReferrerCredit int64
}

// RegisterResult reports what Register did.
type RegisterResult struct {
	Principal *model.Principal
	Created   bool
	// Referrer is set when a referral code was honoured.
	Referrer *model.Principal
}

type Principals interface {
	Get(ctx context.Context, externalID string) (*model.Principal, error)
	GetByReferralCode(ctx context.Context, code string) (*model.Principal, error)
	// Register creates the principal on first contact, or refreshes profile
	// fields and last-active for a known one. Balance and referral linkage are
	// only written on creation.
	Register(ctx context.Context, p RegisterParams) (*RegisterResult, error)
	Touch(ctx context.Context, externalID string) error
	SetBan(ctx context.Context, externalID string, reason *string) error
	Unban(ctx context.Context, externalID string) error
	Delete(ctx context.Context, externalID string) error
	List(ctx context.Context, limit, offset int) ([]*model.Principal, error)
	Search(ctx context.Context, query string, limit int) ([]*model.Principal, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

type Ledger interface {
	// TryDebit decrements the balance when it covers amount. ok is false, and
	// nothing changes, when it does not.
	TryDebit(ctx context.Context, externalID string, amount int64) (newBalance int64, ok bool, err error)
	Credit(ctx context.Context, externalID string, amount int64) (int64, error)
	SetBalance(ctx context.Context, externalID string, amount int64) error
	Balance(ctx context.Context, externalID string) (int64, error)
}

// SearchFilter narrows a history listing. Empty PrincipalID lists everyone.
type SearchFilter struct {
	PrincipalID string
	Limit       int
	Offset      int
}

type Searches interface {
	// AppendIfNew stores one record holding the results whose identifier has
	// not been seen for this principal. Unidentified results are always new.
	AppendIfNew(ctx context.Context, principalID, input string, results []model.Result) (int, error)
	List(ctx context.Context, f SearchFilter) ([]*model.SearchRecord, error)
	Count(ctx context.Context, principalID string) (int64, error)
	// Clear deletes stored records and the seen-identifier index. Empty
	// principalID clears everything.
	Clear(ctx context.Context, principalID string) (int64, error)
	// RebuildSeenIndex re-derives the seen-identifier index from stored records.
	RebuildSeenIndex(ctx context.Context) (int64, error)
}

type Referrals interface {
	EarnedBy(ctx context.Context, referrerID string) (int64, error)
	ListBy(ctx context.Context, referrerID string) ([]*model.ReferralGrant, error)
}
