package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"referral-coupon-bot/internal/inventory"
	"referral-coupon-bot/internal/ledger"
	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/notify"
	"referral-coupon-bot/internal/redemption"
)

const (
	menuMyLink   = "🔗 My Link"
	menuBalance  = "💎 Balance"
	menuStock    = "🎟 Coupon Stock"
	menuWithdraw = "💸 Withdraw"
)

const (
	textNotJoinedAlert = "❌ You haven't joined all channels yet!"
	textStartFirst     = "Please send /start first."
	textCancelled      = "Action cancelled."
	textBannedAlert    = "🚫 Your account is restricted."
	textTryAgain       = "⚠️ Something went wrong, please try again."
)

func joinText(groups int) string {
	var b strings.Builder
	b.WriteString("⚠️ Please join our channels to use the bot!\n\n")
	for i := 1; i <= groups; i++ {
		fmt.Fprintf(&b, "• Channel %d\n", i)
	}
	b.WriteString("\nAfter joining, click the button below:")
	return b.String()
}

func welcomeText(firstName string) string {
	return fmt.Sprintf("👋 Welcome %s!\n\nEarn free SHEIN coupons by inviting friends.\nChoose an option below:", firstName)
}

func referralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, userID)
}

func myLinkText(link string) string {
	return fmt.Sprintf("🔗 <b>Your Referral Link</b>\n\n%s\n\n🎉 <b>Invite friends &amp; earn rewards</b>\nGet %d 💎 for every verified join\n\n<i>Share this link to start earning!</i>",
		html.EscapeString(link), models.ReferralReward)
}

func balanceText(balance decimal.Decimal, h redemption.History) string {
	history := "\nNo redemptions yet."
	if h.Last != nil {
		history = fmt.Sprintf("\n• %s (%s)", html.EscapeString(h.Last.Code), h.Last.RedeemedAt.Format("2006-01-02"))
	}
	return fmt.Sprintf("💎 <b>Balance</b>\n\n<b>Total:</b> %s 💎\n<b>Redeem:</b> %d\n\n<i>Redeem History:</i>%s",
		balance.String(), h.Count, history)
}

func stockLines(stock map[models.Denomination]int64, unit string) string {
	lines := make([]string, 0, len(stock))
	for _, d := range models.Denominations() {
		lines = append(lines, fmt.Sprintf("• %d %s: %d", d, unit, stock[d]))
	}
	return strings.Join(lines, "\n")
}

func stockText(stock map[models.Denomination]int64) string {
	return "🎟 <b>Coupon Stock</b>\n\n" + stockLines(stock, "Coupons")
}

func emptyBalanceText(balance decimal.Decimal) string {
	return fmt.Sprintf("❌ Insufficient Balance!\n\nYour balance is %s 💎\nInvite friends to earn more coins.", balance.String())
}

func withdrawText(balance decimal.Decimal) string {
	return fmt.Sprintf("💸 <b>Withdraw</b>\n\n<b>Total Balance:</b> %s 💎\n<b>Select amount to withdraw:</b>", balance.String())
}

func redeemedText(r redemption.Result) string {
	return fmt.Sprintf("✅ Coupon Redeemed Successfully!\n\n🎟 Code: <code>%s</code>\n💰 Amount: %d ₪\n💸 Deducted: %d 💎\n💎 Remaining Balance: %s 💎\n\nUse this code on SHEIN app/website",
		html.EscapeString(r.Code), r.Denomination, r.Cost, r.Balance.String())
}

func insufficientText(r redemption.Result) string {
	return fmt.Sprintf("❌ Insufficient Balance!\n\nRequired: %d 💎\nYour balance: %s 💎\n\nInvite friends to earn more coins.", r.Cost, r.Balance.String())
}

func outOfStockAlert(d models.Denomination) string {
	return fmt.Sprintf("❌ %d ₪ coupons are out of stock!", d)
}

func adminPanelText(users ledger.Stats, coupons inventory.Stats) string {
	return fmt.Sprintf("👑 Admin Panel\n\n%s\n\nSelect an option:", statsLines(users, coupons))
}

func adminStatsText(users ledger.Stats, coupons inventory.Stats, stock map[models.Denomination]int64, now time.Time) string {
	return fmt.Sprintf("📊 Bot Statistics\n\n%s\n\nCoupon Stock:\n%s\n\nLast updated: %s",
		statsLines(users, coupons), stockLines(stock, "₪"), now.Format(notify.TimeLayout))
}

func statsLines(users ledger.Stats, coupons inventory.Stats) string {
	return fmt.Sprintf("👥 Total Users: %d\n🟢 Active Today: %d\n🎟 Total Coupons: %d\n✅ Used Coupons: %d\n🔄 Available: %d",
		users.TotalUsers, users.ActiveToday, coupons.Total, coupons.Used, coupons.Available)
}

func awaitingCodesText(d models.Denomination) string {
	return fmt.Sprintf("Please send coupon codes for %d ₪ (one per line):\nSend /cancel to abort.", d)
}

func loadedText(d models.Denomination, res inventory.LoadResult, stock map[models.Denomination]int64) string {
	return fmt.Sprintf("✅ Successfully added %d coupon(s)!\n\n💰 Amount: %d ₪\n🎟 Added: %d codes\n📊 Failed: %d (duplicates)\n\nUpdated stock:\n%s",
		res.Added, d, res.Added, res.Duplicates, stockLines(stock, "Coupons"))
}
