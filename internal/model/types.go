package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Principal is a registered remote identity. ExternalID is the chat platform's
// stable numeric user id rendered as a string.
type Principal struct {
	ID             int64      `json:"id"`
	ExternalID     string     `json:"externalId"`
	Username       *string    `json:"username,omitempty"`
	FirstName      *string    `json:"firstName,omitempty"`
	LastName       *string    `json:"lastName,omitempty"`
	Balance        int64      `json:"balance"`
	ReferralCode   string     `json:"referralCode"`
	ReferredBy     *string    `json:"referredBy,omitempty"`
	TotalReferrals int64      `json:"totalReferrals"`
	IsBanned       bool       `json:"isBanned"`
	BannedAt       *time.Time `json:"bannedAt,omitempty"`
	BannedReason   *string    `json:"bannedReason,omitempty"`
	RegisteredAt   time.Time  `json:"registeredAt"`
	LastActive     time.Time  `json:"lastActive"`
}

// DisplayName returns the first name, falling back to the username.
func (p *Principal) DisplayName() string {
	if p.FirstName != nil && *p.FirstName != "" {
		return *p.FirstName
	}
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	return ""
}

// Profile carries the mutable display fields delivered with every inbound event.
type Profile struct {
	ExternalID string
	Username   string
	FirstName  string
	LastName   string
}

// SearchRecord is one stored batch of new results for one search invocation.
type SearchRecord struct {
	ID          int64     `json:"id"`
	PrincipalID string    `json:"principalId"`
	SearchInput string    `json:"searchInput"`
	ResultsJSON string    `json:"resultsJson"`
	SearchedAt  time.Time `json:"searchedAt"`
}

// ReferralGrant records the credit granted to a referrer for one referred principal.
type ReferralGrant struct {
	ID            int64     `json:"id"`
	ReferrerID    string    `json:"referrerId"`
	ReferredID    string    `json:"referredId"`
	CreditsEarned int64     `json:"creditsEarned"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Result is one record returned by the lookup service. None of the fields are
// guaranteed to be present, and the service is loose about their JSON types.
type Result struct {
	ID         ResultID `json:"id,omitempty"`
	Mobile     Text     `json:"mobile,omitempty"`
	Name       Text     `json:"name,omitempty"`
	FatherName Text     `json:"father_name,omitempty"`
	Address    Text     `json:"address,omitempty"`
	AltMobile  Text     `json:"alt_mobile,omitempty"`
	Circle     Text     `json:"circle,omitempty"`
	IDNumber   Text     `json:"id_number,omitempty"`
	Email      Text     `json:"email,omitempty"`
}

// HasID reports whether the result carries an external identifier.
func (r Result) HasID() bool { return r.ID != "" }

// Text is a free-form descriptive field. It decodes from a JSON string,
// number or bool; null decodes as empty. Objects and arrays keep their
// compact JSON text. It always encodes as a string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '{' || data[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*t = Text(buf.String())
	default:
		// Numbers and booleans keep their literal spelling.
		*t = Text(data)
	}
	return nil
}

// ResultID is the lookup service's external identifier, normalised so that
// one record always yields the same id: integer values (7, 7.0, "07") become
// their decimal form, and 0 or an empty value means no identifier. Other
// strings are kept verbatim. Numeric ids encode back as numbers.
type ResultID string

func (id *ResultID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CanonicalResultID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("result id: %w", err)
	}
	*id = CanonicalResultID(n.String())
	return nil
}

func (id ResultID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// maxExactFloat is the largest integer a float64 holds exactly.
const maxExactFloat = 1 << 53

// CanonicalResultID normalises a raw identifier.
func CanonicalResultID(raw string) ResultID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n == 0 {
			return ""
		}
		return ResultID(strconv.FormatInt(n, 10))
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) <= maxExactFloat {
		if f == 0 {
			return ""
		}
		return ResultID(strconv.FormatInt(int64(f), 10))
	}
	return ResultID(s)
}

// HistoryRow is the flat per-result view of stored search history.
type HistoryRow struct {
	RecordID    int64     `json:"recordId"`
	PrincipalID string    `json:"principalId"`
	SearchInput string    `json:"searchInput"`
	SearchedAt  time.Time `json:"searchedAt"`
	Result      Result    `json:"result"`
}

// Stats summarises the principals table for the administrative collaborator.
type Stats struct {
	TotalPrincipals  int64 `json:"totalPrincipals"`
	RegisteredToday  int64 `json:"registeredToday"`
	TotalCredits     int64 `json:"totalCredits"`
	LowBalance       int64 `json:"lowBalance"`
	BannedPrincipals int64 `json:"bannedPrincipals"`
	TotalSearches    int64 `json:"totalSearches"`
}

// DecodeResults parses a stored results_json value.
func DecodeResults(raw string) ([]Result, error) {
	var out []Result
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return out, nil
}

// EncodeResults renders results for storage, preserving order.
func EncodeResults(results []Result) (string, error) {
	if results == nil {
		results = []Result{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(b), nil
}
