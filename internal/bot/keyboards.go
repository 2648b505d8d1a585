package bot

import (
	"fmt"
	"net/url"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"referral-coupon-bot/internal/models"
)

func mainMenuKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(menuMyLink), tu.KeyboardButton(menuBalance)),
		tu.KeyboardRow(tu.KeyboardButton(menuStock), tu.KeyboardButton(menuWithdraw)),
	).WithResizeKeyboard()
}

func joinKeyboard(links []string) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(links)+1)
	for i, link := range links {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("📢 Join Channel %d", i+1)).WithURL(link),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("✅ I've Joined").WithCallbackData(dataCheckJoin),
	))
	return tu.InlineKeyboard(rows...)
}

func shareKeyboard(link string) *telego.InlineKeyboardMarkup {
	share := "https://t.me/share/url?url=" + url.QueryEscape(link) + "&text=" + url.QueryEscape("Get Free Shein Coupons!")
	return tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("📤 Share Link").WithURL(share),
	))
}

func withdrawKeyboard() *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton
	var row []telego.InlineKeyboardButton
	for _, d := range models.Denominations() {
		cost, _ := models.CostOf(d)
		row = append(row, tu.InlineKeyboardButton(fmt.Sprintf("%d ₪ (%d 💎)", d, cost)).WithCallbackData(redeemData(d)))
		if len(row) == 2 {
			rows = append(rows, tu.InlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tu.InlineKeyboardRow(row...))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("❌ Close").WithCallbackData(dataCloseWithdraw),
	))
	return tu.InlineKeyboard(rows...)
}

func adminKeyboard() *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton
	var row []telego.InlineKeyboardButton
	for _, d := range models.Denominations() {
		row = append(row, tu.InlineKeyboardButton(fmt.Sprintf("➕ Add %d Coupons", d)).WithCallbackData(addCouponsData(d)))
		if len(row) == 2 {
			rows = append(rows, tu.InlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tu.InlineKeyboardRow(row...))
	}
	rows = append(rows,
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📊 Statistics").WithCallbackData(dataAdminStats),
			tu.InlineKeyboardButton("🔄 Reload Data").WithCallbackData(dataAdminReload),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 Back to Main").WithCallbackData(dataAdminClose),
		),
	)
	return tu.InlineKeyboard(rows...)
}

func adminBackKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("🔙 Back to Admin Panel").WithCallbackData(dataAdminReload),
	))
}
