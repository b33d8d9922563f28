// Package conversation implements the per-principal conversation state
// machine. It validates input and sequences the ledger, the lookup gateway and
// the result store for every search.
//
// Handle and HandleCallback are not safe for concurrent calls with the same
// principal; callers serialise per principal (see internal/dispatch).
package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/ledger"
	"github.com/gurujiofficial51-wq/info1/internal/lookup"
	"github.com/gurujiofficial51-wq/info1/internal/metrics"
	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/registration"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

// SearchCost is the credit price of one lookup.
const SearchCost int64 = 1

var numberPattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidNumber reports whether text is exactly ten ASCII digits.
func ValidNumber(text string) bool { return numberPattern.MatchString(text) }

// Deps wires a Machine.
type Deps struct {
	Store     store.Store
	Ledger    *ledger.Service
	Registrar *registration.Registrar
	Gateway   lookup.Gateway
	Replier   Replier
	Sessions  *Sessions
	// ReferralLink renders the deep link for a referral code.
	ReferralLink func(code string) string
	Logger       zerolog.Logger
}

// Machine handles inbound events.
type Machine struct {
	st       store.Store
	ledger   *ledger.Service
	reg      *registration.Registrar
	gateway  lookup.Gateway
	out      Replier
	sessions *Sessions
	link     func(string) string
	log      zerolog.Logger
}

func NewMachine(d Deps) *Machine {
	link := d.ReferralLink
	if link == nil {
		link = func(code string) string { return code }
	}
	return &Machine{
		st:       d.Store,
		ledger:   d.Ledger,
		reg:      d.Registrar,
		gateway:  d.Gateway,
		out:      d.Replier,
		sessions: d.Sessions,
		link:     link,
		log:      d.Logger.With().Str("component", "conversation").Logger(),
	}
}

// Handle processes one inbound message. Returned errors are storage failures
// that left the principal without a reply; the ledger is consistent either way.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	log := m.log.With().Str("event_id", ev.EventID).Str("principal", ev.PrincipalID).Logger()
	ctx = log.WithContext(ctx)

	p, err := m.principal(ctx, ev.PrincipalID)
	if err != nil {
		m.reply(ctx, ev.ChatID, msgInternal, false, KeyboardMain)
		return err
	}

	// Bans take precedence over every command, button and state.
	if p != nil && p.IsBanned {
		log.Info().Msg("banned principal intercepted")
		m.reply(ctx, ev.ChatID, banText(p.BannedReason), true, KeyboardRemove)
		return nil
	}

	if ev.Command != "" {
		return m.command(ctx, ev, p)
	}

	if p != nil {
		if err := m.st.Principals().Touch(ctx, ev.PrincipalID); err != nil {
			log.Warn().Err(err).Msg("touch last active")
		}
	}

	text := ev.Text
	if strings.Contains(text, "Refer") || strings.Contains(text, "Earn") || strings.Contains(text, "🎁") {
		return m.referralSummary(ctx, ev, p)
	}

	switch text {
	case ButtonEnterNumber:
		m.sessions.Set(ev.PrincipalID, AwaitingInput)
		m.reply(ctx, ev.ChatID, msgPrompt, false, KeyboardCancel)
		return nil
	case ButtonHelp:
		m.reply(ctx, ev.ChatID, msgHelpHint, false, KeyboardMain)
		return nil
	case ButtonAbout:
		m.reply(ctx, ev.ChatID, msgAboutHint, false, KeyboardMain)
		return nil
	case ButtonWallet:
		return m.wallet(ctx, ev, p)
	case ButtonCancel:
		m.sessions.Reset(ev.PrincipalID)
		m.reply(ctx, ev.ChatID, msgCancelled, false, KeyboardMain)
		return nil
	}

	if m.sessions.Get(ev.PrincipalID) != AwaitingInput {
		log.Debug().Msg("unrecognised text while idle")
		return nil
	}

	if !ValidNumber(text) {
		// Stays in AwaitingInput; refresh the idle timer.
		m.sessions.Set(ev.PrincipalID, AwaitingInput)
		m.reply(ctx, ev.ChatID, invalidInputText(text), true, KeyboardCancel)
		return nil
	}

	m.sessions.Reset(ev.PrincipalID)
	m.search(ctx, ev, text)
	return nil
}

// HandleCallback answers an inline keyboard press.
func (m *Machine) HandleCallback(ctx context.Context, cb Callback) error {
	log := m.log.With().Str("event_id", cb.EventID).Str("principal", cb.PrincipalID).Logger()
	ctx = log.WithContext(ctx)

	if err := m.out.AnswerCallback(ctx, cb.ID); err != nil {
		log.Warn().Err(err).Msg("answer callback")
	}

	p, err := m.principal(ctx, cb.PrincipalID)
	if err != nil {
		return err
	}
	if p != nil && p.IsBanned {
		m.reply(ctx, cb.ChatID, banText(p.BannedReason), true, KeyboardRemove)
		return nil
	}

	switch cb.Data {
	case CallbackOption1:
		m.reply(ctx, cb.ChatID, optionText(1), false, KeyboardNone)
	case CallbackOption2:
		m.reply(ctx, cb.ChatID, optionText(2), false, KeyboardNone)
	default:
		log.Debug().Str("data", cb.Data).Msg("unknown callback data")
	}
	return nil
}

func (m *Machine) command(ctx context.Context, ev Event, p *model.Principal) error {
	switch ev.Command {
	case "start":
		return m.start(ctx, ev)
	case "help":
		m.reply(ctx, ev.ChatID, helpText, true, KeyboardMain)
	case "about":
		m.reply(ctx, ev.ChatID, aboutText, true, KeyboardMain)
	case "refer":
		return m.referralSummary(ctx, ev, p)
	case "menu":
		m.reply(ctx, ev.ChatID, msgMenu, false, KeyboardMenu)
	default:
		zerolog.Ctx(ctx).Debug().Str("command", ev.Command).Msg("unknown command")
	}
	return nil
}

func (m *Machine) start(ctx context.Context, ev Event) error {
	res, err := m.reg.Register(ctx, ev.Profile, ev.Args)
	if err != nil {
		m.reply(ctx, ev.ChatID, msgInternal, false, KeyboardMain)
		return fmt.Errorf("register %s: %w", ev.PrincipalID, err)
	}
	m.sessions.Reset(ev.PrincipalID)

	var bonus int64
	if res.Created && res.Referrer != nil {
		bonus = res.Principal.Balance - registration.BaseBalance
	}
	m.reply(ctx, ev.ChatID, welcomeText(greetingName(ev.Profile), res.Created, registration.BaseBalance, bonus), false, KeyboardMain)
	return nil
}

func (m *Machine) wallet(ctx context.Context, ev Event, p *model.Principal) error {
	if p == nil {
		m.reply(ctx, ev.ChatID, msgStartFirst, false, KeyboardNone)
		return nil
	}
	earned, err := m.st.Referrals().EarnedBy(ctx, p.ExternalID)
	if err != nil {
		m.reply(ctx, ev.ChatID, msgInternal, false, KeyboardMain)
		return fmt.Errorf("referral earnings: %w", err)
	}
	m.reply(ctx, ev.ChatID, walletText(p.Balance, p.TotalReferrals, earned), true, KeyboardMain)
	return nil
}

func (m *Machine) referralSummary(ctx context.Context, ev Event, p *model.Principal) error {
	if p == nil {
		m.reply(ctx, ev.ChatID, msgStartFirst, false, KeyboardNone)
		return nil
	}
	earned, err := m.st.Referrals().EarnedBy(ctx, p.ExternalID)
	if err != nil {
		m.reply(ctx, ev.ChatID, msgInternal, false, KeyboardMain)
		return fmt.Errorf("referral earnings: %w", err)
	}
	text := referralText(p.ReferralCode, m.link(p.ReferralCode), p.TotalReferrals, earned, p.Balance)
	m.reply(ctx, ev.ChatID, text, false, KeyboardMain)
	return nil
}

// search runs the spend-search-store sequence for a validated number. Once
// the debit succeeds it always completes with results, an empty notice, or a
// refund.
func (m *Machine) search(ctx context.Context, ev Event, number string) {
	log := zerolog.Ctx(ctx)
	id := ev.PrincipalID

	debit, err := m.ledger.TryDebit(ctx, id, SearchCost)
	switch {
	case errors.Is(err, model.ErrNotFound):
		debit = ledger.Debit{}
	case err != nil:
		log.Error().Err(err).Msg("debit failed")
		m.reply(ctx, ev.ChatID, msgInternal, false, KeyboardMain)
		return
	}
	if !debit.OK {
		log.Info().Int64("balance", debit.Balance).Msg("insufficient balance")
		m.reply(ctx, ev.ChatID, insufficientText(debit.Balance), true, KeyboardMain)
		return
	}

	m.reply(ctx, ev.ChatID, msgSearching, false, KeyboardMain)

	out := m.gateway.Search(ctx, number)
	switch out.Kind {
	case lookup.KindFound:
		m.deliver(ctx, ev, number, out.Results, debit.Balance)
		m.persist(ctx, id, number, out.Results)

	case lookup.KindEmpty:
		m.reply(ctx, ev.ChatID, notFoundText(number), true, KeyboardMain)

	default:
		log.Warn().Err(out.Err).Msg("lookup unavailable, refunding")
		if _, err := m.ledger.Refund(ctx, id, SearchCost); err != nil {
			log.Error().Err(err).Msg("refund failed")
			m.reply(ctx, ev.ChatID, msgUnavailableRaw, false, KeyboardMain)
			return
		}
		m.reply(ctx, ev.ChatID, msgUnavailable, false, KeyboardMain)
	}
}

func (m *Machine) deliver(ctx context.Context, ev Event, number string, results []model.Result, debited int64) {
	total := len(results)
	m.reply(ctx, ev.ChatID, foundSummaryText(number, total), true, KeyboardNone)
	for i, r := range results[:min(total, previewResults)] {
		m.reply(ctx, ev.ChatID, resultText(i+1, r), true, KeyboardNone)
	}
	if total > previewResults {
		m.reply(ctx, ev.ChatID, moreResultsText(total), false, KeyboardMain)
	} else {
		m.reply(ctx, ev.ChatID, msgAllShown, false, KeyboardMain)
	}

	balance, err := m.ledger.Balance(ctx, ev.PrincipalID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("read balance after search")
		balance = debited
	}
	m.reply(ctx, ev.ChatID, remainingBalanceText(balance), false, KeyboardNone)
}

// persist stores the never-seen subset. Failures are logged only; the
// principal already has the results.
func (m *Machine) persist(ctx context.Context, principalID, number string, results []model.Result) {
	log := zerolog.Ctx(ctx)
	stored, err := m.st.Searches().AppendIfNew(ctx, principalID, number, results)
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: %v", model.ErrPersistence, err)).Msg("store search results")
		return
	}
	metrics.ResultsStoredTotal.Add(float64(stored))
	metrics.ResultsDuplicateTotal.Add(float64(duplicates(results, stored)))
	log.Info().Str("number", number).Int("returned", len(results)).Int("stored", stored).Msg("search recorded")
}

// duplicates counts identified results that were not stored.
func duplicates(results []model.Result, stored int) int {
	if d := len(results) - stored; d > 0 {
		return d
	}
	return 0
}

func (m *Machine) principal(ctx context.Context, id string) (*model.Principal, error) {
	p, err := m.st.Principals().Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load principal %s: %w", id, err)
	}
	return p, nil
}

// reply sends one message. Delivery failures are logged; they never abort the
// sequence that produced them.
func (m *Machine) reply(ctx context.Context, chatID int64, text string, markdown bool, kb Keyboard) {
	err := m.out.Send(ctx, Reply{ChatID: chatID, Text: text, Markdown: markdown, Keyboard: kb})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("send reply")
	}
}
