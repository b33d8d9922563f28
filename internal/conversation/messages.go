package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// Button labels of the main and cancel keyboards.
const (
	ButtonEnterNumber = "📱 Enter 10 Digit Number"
	ButtonWallet      = "💰 Wallet"
	ButtonRefer       = "Refer"
	ButtonHelp        = "❓ Help"
	ButtonAbout       = "ℹ️ About"
	ButtonCancel      = "❌ Cancel"
)

// Inline menu callback payloads.
const (
	CallbackOption1 = "option_1"
	CallbackOption2 = "option_2"
)

const (
	placeholder    = "N/A"
	previewResults = 5
	addressPreview = 100
)

const (
	msgPrompt         = "📱 Please enter a 10-digit number:"
	msgCancelled      = "❌ Cancelled. What would you like to do next?"
	msgHelpHint       = "📚 Use /help to see all available commands and features."
	msgAboutHint      = "ℹ️ Use /about to learn more about this bot."
	msgStartFirst     = "Please use /start first to register!"
	msgSearching      = "🔍 Searching for information...\n💰 1 credit deducted"
	msgAllShown       = "✅ All results displayed!"
	msgUnavailable    = "⚠️ Service temporarily unavailable. Please try again later.\n\n💰 Your credit has been refunded."
	msgUnavailableRaw = "⚠️ Service temporarily unavailable. Please try again later.\n\nYour credit could not be refunded automatically. Please contact the administrator."
	msgMenu           = "Choose an option:"
	msgInternal       = "⚠️ Something went wrong. Please try again later."
)

const helpText = `📚 *Available Commands:*

/start - Start the bot and show main menu
/help - Show this help message
/about - Learn more about this bot
/refer - Get your referral link and earn credits
/menu - Show the options menu

🔘 *Buttons:*

📱 Enter 10 Digit Number - Submit a 10-digit number
💰 Wallet - Check your balance and referral stats
❓ Help - Get help
ℹ️ About - Bot information

Just click the buttons or type commands to interact with me! 😊`

const aboutText = `ℹ️ *About This Bot*

Search for information linked to a 10-digit mobile number.

✅ Each search costs 1 credit
✅ Failed searches are refunded
✅ Invite friends to earn more credits

Version: 1.0.0`

var escaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// esc escapes text for legacy Markdown.
func esc(s string) string { return escaper.Replace(s) }

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// truncate cuts s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func greetingName(p model.Profile) string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return "there"
}

func welcomeText(name string, created bool, base, bonus int64) string {
	var b strings.Builder
	switch {
	case created && bonus > 0:
		fmt.Fprintf(&b, "👋 Welcome %s!\n\n", name)
		b.WriteString("✅ You have been registered successfully!\n")
		fmt.Fprintf(&b, "🎁 Referral Bonus: +%d credits!\n\n", bonus)
		fmt.Fprintf(&b, "You received %d credits total (%d base + %d referral bonus)!\n\n", base+bonus, base, bonus)
	case created:
		fmt.Fprintf(&b, "👋 Welcome %s!\n\n", name)
		b.WriteString("✅ You have been registered successfully!\n\n")
		fmt.Fprintf(&b, "You received %d free credits to get started!\n\n", base)
	default:
		fmt.Fprintf(&b, "👋 Welcome back, %s!\n\n", name)
		b.WriteString("🔄 Your information has been updated.\n\n")
		b.WriteString("Great to see you again! Ready to search for more information?\n\n")
	}
	b.WriteString("📱 Click \"Enter 10 Digit Number\" to search information\n")
	b.WriteString("💰 Check your wallet with \"Wallet\" button\n")
	b.WriteString("🎁 Invite friends with /refer and earn credits!\n")
	b.WriteString("❓ Get help with /help command\n\n")
	if created {
		b.WriteString("Let's get started! 🚀")
	} else {
		b.WriteString("Let's continue! 🚀")
	}
	return b.String()
}

func banText(reason *string) string {
	if reason != nil && strings.TrimSpace(*reason) != "" {
		return fmt.Sprintf("🚫 *You have been banned from using this bot.*\n\n📝 Reason: %s\n\nPlease contact the administrator if you believe this is a mistake.", esc(*reason))
	}
	return "🚫 *You have been banned from using this bot.*\n\nPlease contact the administrator if you believe this is a mistake."
}

func invalidInputText(text string) string {
	return fmt.Sprintf(`❌ *Invalid Input!*

Please enter exactly *10 digits*.

Examples of valid numbers:
• 9876543210
• 1234567890

Your input: "%s"
Length: %d characters

Please try again or click ❌ Cancel to go back.`, esc(text), utf8.RuneCountInString(text))
}

func insufficientText(balance int64) string {
	return fmt.Sprintf("❌ *Insufficient Balance!*\n\n💰 Your current balance: %d credits\n💵 Required: %d credit per search\n\nPlease contact the administrator to add more credits to your wallet.", balance, SearchCost)
}

func foundSummaryText(number string, total int) string {
	shown := min(total, previewResults)
	return fmt.Sprintf("✅ Found %d result(s) for number: `%s`\n\nShowing first %d results:", total, number, shown)
}

func resultText(index int, r model.Result) string {
	address := placeholder
	if strings.TrimSpace(string(r.Address)) != "" {
		address = truncate(string(r.Address), addressPreview)
	}
	return fmt.Sprintf(`📱 *Result %d*

👤 *Name:* %s
👨‍👦 *Father:* %s
📞 *Mobile:* `+"`%s`"+`
📞 *Alt Mobile:* `+"`%s`"+`
📍 *Address:* %s
🌐 *Circle:* %s
🆔 *ID:* `+"`%s`",
		index,
		esc(orPlaceholder(string(r.Name))),
		esc(orPlaceholder(string(r.FatherName))),
		orPlaceholder(string(r.Mobile)),
		orPlaceholder(string(r.AltMobile)),
		esc(address),
		esc(orPlaceholder(string(r.Circle))),
		orPlaceholder(string(r.IDNumber)))
}

func moreResultsText(total int) string {
	return fmt.Sprintf("ℹ️ Showing %d of %d results. There are %d more results available.", previewResults, total, total-previewResults)
}

func remainingBalanceText(balance int64) string {
	return fmt.Sprintf("💰 Remaining balance: %d credits", balance)
}

func notFoundText(number string) string {
	return fmt.Sprintf("❌ No information found for number: `%s`", number)
}

func walletText(balance, referrals, earned int64) string {
	status := "⚠️ Low Balance"
	if balance > 0 {
		status = "✅ Active"
	}
	return fmt.Sprintf(`💰 *Your Wallet*

💵 *Current Balance:* %d credits

🎁 *Referral Earnings:*
👥 Total Referrals: %d
💰 Credits from Referrals: %d

ℹ️ *How to use credits:*
• Each search costs 1 credit
• New users get 10 free credits
• Invite friends with /refer to earn more!

📊 *Your Stats:*
• Available Credits: %d
• Status: %s

💡 *Earn More Credits:*
Use /refer to get your referral link and earn 5 credits per friend!`, balance, referrals, earned, balance, status)
}

func referralText(code, link string, referrals, earned, balance int64) string {
	return fmt.Sprintf(`🎁 Your Referral Program

📋 Your Referral Code: %s

🔗 Your Referral Link:
%s

📊 Your Stats:
👥 Total Referrals: %d
💰 Credits Earned: %d
💳 Current Balance: %d

🎯 How it works:
1. Share your referral link with friends
2. When they join using your link, they get 15 credits (instead of 10)
3. You get +5 credits for each successful referral!

Share your link now and start earning! 🚀`, code, link, referrals, earned, balance)
}

func optionText(n int) string { return fmt.Sprintf("✅ You selected Option %d!", n) }
