package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"referral-coupon-bot/internal/config"
	"referral-coupon-bot/internal/inventory"
	"referral-coupon-bot/internal/ledger"
	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/redemption"
	"referral-coupon-bot/internal/referral"
	"referral-coupon-bot/internal/session"
)

// InviteLinker resolves join links for the gating groups.
type InviteLinker interface {
	InviteLinks(ctx context.Context, groups []int64) []string
}

type Bot struct {
	Instance    *telego.Bot
	Config      *config.Config
	Ledger      *ledger.Ledger
	Coupons     *inventory.Store
	Loader      *inventory.Loader
	Redemptions *redemption.Service
	Gate        *referral.Gate
	Invites     InviteLinker
	Sessions    *session.Store

	username string
}

func NewBot(instance *telego.Bot, cfg *config.Config, l *ledger.Ledger, coupons *inventory.Store, loader *inventory.Loader,
	redemptions *redemption.Service, gate *referral.Gate, invites InviteLinker, sessions *session.Store) *Bot {
	return &Bot{
		Instance:    instance,
		Config:      cfg,
		Ledger:      l,
		Coupons:     coupons,
		Loader:      loader,
		Redemptions: redemptions,
		Gate:        gate,
		Invites:     invites,
		Sessions:    sessions,
	}
}

// Start long-polls for updates and blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	b.username = me.Username

	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}
	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create update handler: %w", err)
	}

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleAdmin, th.CommandEqual("admin"))
	handler.Handle(b.handleCancel, th.CommandEqual("cancel"))
	handler.Handle(b.handleBan(true), th.CommandEqual("ban"))
	handler.Handle(b.handleBan(false), th.CommandEqual("unban"))

	handler.Handle(b.handleMyLink, th.TextEqual(menuMyLink))
	handler.Handle(b.handleBalance, th.TextEqual(menuBalance))
	handler.Handle(b.handleStock, th.TextEqual(menuStock))
	handler.Handle(b.handleWithdraw, th.TextEqual(menuWithdraw))

	handler.Handle(b.handleCallback, th.AnyCallbackQuery())

	// Free text only matters to an admin who is sending coupon codes.
	handler.Handle(b.handleText, th.AnyMessageWithText())

	go func() {
		<-ctx.Done()
		handler.Stop()
	}()

	log.Infof("Bot @%s is polling", b.username)
	return handler.Start()
}

func identityOf(u *telego.User) models.Identity {
	return models.Identity{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup telego.ReplyMarkup, html bool) {
	msg := tu.Message(tu.ID(chatID), text)
	if markup != nil {
		msg = msg.WithReplyMarkup(markup)
	}
	if html {
		msg = msg.WithParseMode(telego.ModeHTML)
	}
	if _, err := b.Instance.SendMessage(ctx, msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Failed to send message")
	}
}

func (b *Bot) answer(ctx context.Context, query *telego.CallbackQuery, alert string) {
	params := tu.CallbackQuery(query.ID)
	if alert != "" {
		params = params.WithText(alert).WithShowAlert()
	}
	if err := b.Instance.AnswerCallbackQuery(ctx, params); err != nil {
		log.WithError(err).Debug("Failed to answer callback query")
	}
}

func (b *Bot) edit(ctx context.Context, query *telego.CallbackQuery, text string, markup *telego.InlineKeyboardMarkup, html bool) {
	if query.Message == nil {
		return
	}
	params := &telego.EditMessageTextParams{
		ChatID:      tu.ID(query.Message.GetChat().ID),
		MessageID:   query.Message.GetMessageID(),
		Text:        text,
		ReplyMarkup: markup,
	}
	if html {
		params.ParseMode = telego.ModeHTML
	}
	if _, err := b.Instance.EditMessageText(ctx, params); err != nil {
		log.WithError(err).Warn("Failed to edit message")
	}
}

func (b *Bot) deleteMessage(ctx context.Context, query *telego.CallbackQuery) {
	if query.Message == nil {
		return
	}
	err := b.Instance.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(query.Message.GetChat().ID),
		MessageID: query.Message.GetMessageID(),
	})
	if err != nil {
		log.WithError(err).Debug("Failed to delete message")
	}
}

func (b *Bot) showJoin(ctx context.Context, chatID int64) {
	groups := b.Gate.Groups()
	links := b.Invites.InviteLinks(ctx, groups)
	b.reply(ctx, chatID, joinText(len(groups)), joinKeyboard(links), false)
}

func (b *Bot) showMenu(ctx context.Context, chatID int64, firstName string) {
	b.reply(ctx, chatID, welcomeText(firstName), mainMenuKeyboard(), false)
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil {
		return nil
	}
	who := identityOf(message.From)

	adm, err := b.Gate.Start(ctx.Context(), who, commandArg(message.Text))
	if err != nil {
		log.WithError(err).WithField("user_id", who.UserID).Error("Start failed")
		b.reply(ctx.Context(), message.Chat.ID, textTryAgain, nil, false)
		return nil
	}
	if !adm.Joined {
		b.showJoin(ctx.Context(), message.Chat.ID)
		return nil
	}
	b.showMenu(ctx.Context(), message.Chat.ID, who.FirstName)
	return nil
}

func (b *Bot) handleCheckJoin(ctx context.Context, query *telego.CallbackQuery) {
	who := identityOf(&query.From)
	adm, err := b.Gate.Confirm(ctx, who)
	if err != nil {
		log.WithError(err).WithField("user_id", who.UserID).Error("Join confirmation failed")
		b.answer(ctx, query, textTryAgain)
		return
	}
	if !adm.Joined {
		b.answer(ctx, query, textNotJoinedAlert)
		return
	}
	b.answer(ctx, query, "")
	b.deleteMessage(ctx, query)
	b.showMenu(ctx, query.From.ID, who.FirstName)
}

// account loads the caller's account and records the interaction.
func (b *Bot) account(ctx context.Context, chatID, userID int64) (*models.User, bool) {
	user, err := b.Ledger.Get(ctx, userID)
	if errors.Is(err, ledger.ErrUserNotFound) {
		b.reply(ctx, chatID, textStartFirst, nil, false)
		return nil, false
	}
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to load user")
		b.reply(ctx, chatID, textTryAgain, nil, false)
		return nil, false
	}
	if err := b.Ledger.Touch(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to update last_active")
	}
	return user, true
}

func (b *Bot) handleMyLink(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil {
		return nil
	}
	if _, ok := b.account(ctx.Context(), message.Chat.ID, message.From.ID); !ok {
		return nil
	}
	link := referralLink(b.username, message.From.ID)
	b.reply(ctx.Context(), message.Chat.ID, myLinkText(link), shareKeyboard(link), true)
	return nil
}

func (b *Bot) handleBalance(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil {
		return nil
	}
	user, ok := b.account(ctx.Context(), message.Chat.ID, message.From.ID)
	if !ok {
		return nil
	}
	history, err := b.Redemptions.History(ctx.Context(), user.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", user.UserID).Warn("Failed to load redemption history")
	}
	b.reply(ctx.Context(), message.Chat.ID, balanceText(user.Balance, history), nil, true)
	return nil
}

func (b *Bot) handleStock(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From != nil {
		if err := b.Ledger.Touch(ctx.Context(), message.From.ID); err != nil {
			log.WithError(err).Warn("Failed to update last_active")
		}
	}
	stock, err := b.Coupons.Stock(ctx.Context())
	if err != nil {
		log.WithError(err).Error("Failed to count stock")
		b.reply(ctx.Context(), message.Chat.ID, textTryAgain, nil, false)
		return nil
	}
	b.reply(ctx.Context(), message.Chat.ID, stockText(stock), nil, true)
	return nil
}

func (b *Bot) handleWithdraw(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil {
		return nil
	}
	user, ok := b.account(ctx.Context(), message.Chat.ID, message.From.ID)
	if !ok {
		return nil
	}
	if !user.Balance.IsPositive() {
		b.reply(ctx.Context(), message.Chat.ID, emptyBalanceText(user.Balance), nil, false)
		return nil
	}
	b.reply(ctx.Context(), message.Chat.ID, withdrawText(user.Balance), withdrawKeyboard(), true)
	return nil
}

func (b *Bot) handleCallback(ctx *th.Context, update telego.Update) error {
	query := update.CallbackQuery
	payload, err := ParsePayload(query.Data)
	if err != nil {
		log.WithError(err).WithField("user_id", query.From.ID).Debug("Ignoring callback")
		b.answer(ctx.Context(), query, "")
		return nil
	}

	switch payload.Action {
	case ActionCheckJoin:
		b.handleCheckJoin(ctx.Context(), query)
	case ActionRedeem:
		b.handleRedeem(ctx.Context(), query, payload.Denomination)
	case ActionCloseWithdraw:
		b.answer(ctx.Context(), query, "")
		b.deleteMessage(ctx.Context(), query)
	default:
		if !b.Config.IsAdmin(query.From.ID) {
			b.answer(ctx.Context(), query, "")
			return nil
		}
		b.handleAdminCallback(ctx.Context(), query, payload)
	}
	return nil
}

func (b *Bot) handleRedeem(ctx context.Context, query *telego.CallbackQuery, d models.Denomination) {
	who := identityOf(&query.From)
	if err := b.Ledger.Touch(ctx, who.UserID); err != nil {
		log.WithError(err).Warn("Failed to update last_active")
	}

	result, err := b.Redemptions.Redeem(ctx, who, d)
	if err != nil {
		b.answer(ctx, query, textTryAgain)
		return
	}

	switch result.Outcome {
	case redemption.Success:
		b.answer(ctx, query, "")
		b.edit(ctx, query, redeemedText(result), nil, true)
	case redemption.OutOfStock:
		b.answer(ctx, query, outOfStockAlert(d))
	case redemption.Banned:
		b.answer(ctx, query, textBannedAlert)
	default:
		b.answer(ctx, query, "")
		b.edit(ctx, query, insufficientText(result), nil, false)
	}
}

func (b *Bot) handleAdmin(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil || !b.Config.IsAdmin(message.From.ID) {
		return nil
	}
	text, err := b.adminPanel(ctx.Context())
	if err != nil {
		log.WithError(err).Error("Failed to build admin panel")
		b.reply(ctx.Context(), message.Chat.ID, textTryAgain, nil, false)
		return nil
	}
	b.reply(ctx.Context(), message.Chat.ID, text, adminKeyboard(), false)
	return nil
}

func (b *Bot) adminPanel(ctx context.Context) (string, error) {
	users, err := b.Ledger.Stats(ctx, time.Now())
	if err != nil {
		return "", err
	}
	coupons, err := b.Coupons.Stats(ctx)
	if err != nil {
		return "", err
	}
	return adminPanelText(users, coupons), nil
}

func (b *Bot) handleAdminCallback(ctx context.Context, query *telego.CallbackQuery, payload Payload) {
	adminID := query.From.ID
	switch payload.Action {
	case ActionAdminClose:
		b.answer(ctx, query, "")
		b.deleteMessage(ctx, query)
	case ActionAdminReload:
		b.answer(ctx, query, "")
		text, err := b.adminPanel(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to build admin panel")
			return
		}
		b.edit(ctx, query, text, adminKeyboard(), false)
	case ActionAdminStats:
		b.answer(ctx, query, "")
		users, err := b.Ledger.Stats(ctx, time.Now())
		if err != nil {
			log.WithError(err).Error("Failed to count users")
			return
		}
		coupons, err := b.Coupons.Stats(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to count coupons")
			return
		}
		stock, err := b.Coupons.Stock(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to count stock")
			return
		}
		b.edit(ctx, query, adminStatsText(users, coupons, stock, time.Now()), adminBackKeyboard(), false)
	case ActionAddCoupons:
		b.answer(ctx, query, "")
		if err := b.Sessions.BeginAwaitingCodes(ctx, adminID, payload.Denomination); err != nil {
			log.WithError(err).WithField("admin_id", adminID).Error("Failed to start admin session")
			b.reply(ctx, adminID, textTryAgain, nil, false)
			return
		}
		b.reply(ctx, adminID, awaitingCodesText(payload.Denomination), nil, false)
	}
}

func (b *Bot) handleCancel(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil || !b.Config.IsAdmin(message.From.ID) {
		return nil
	}
	if err := b.Sessions.Reset(ctx.Context(), message.From.ID); err != nil {
		log.WithError(err).Warn("Failed to reset admin session")
	}
	b.reply(ctx.Context(), message.Chat.ID, textCancelled, nil, false)
	return nil
}

func (b *Bot) handleText(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil || !b.Config.IsAdmin(message.From.ID) || strings.HasPrefix(message.Text, "/") {
		return nil
	}
	adminID := message.From.ID

	state, err := b.Sessions.State(ctx.Context(), adminID)
	if err != nil {
		log.WithError(err).WithField("admin_id", adminID).Warn("Failed to read admin session")
		return nil
	}
	if !state.AwaitingCodes {
		return nil
	}
	if err := b.Sessions.Reset(ctx.Context(), adminID); err != nil {
		log.WithError(err).Warn("Failed to reset admin session")
	}

	result, err := b.Loader.Load(ctx.Context(), splitCodes(message.Text), state.Denomination, adminID)
	if err != nil {
		log.WithError(err).WithField("admin_id", adminID).Error("Coupon load stopped early")
	}
	stock, errStock := b.Coupons.Stock(ctx.Context())
	if errStock != nil {
		log.WithError(errStock).Warn("Failed to count stock")
	}
	b.reply(ctx.Context(), message.Chat.ID, loadedText(state.Denomination, result, stock), nil, false)
	return nil
}

func (b *Bot) handleBan(banned bool) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message.From == nil || !b.Config.IsAdmin(message.From.ID) {
			return nil
		}
		userID, err := strconv.ParseInt(commandArg(message.Text), 10, 64)
		if err != nil {
			b.reply(ctx.Context(), message.Chat.ID, "Usage: /ban <user_id> or /unban <user_id>", nil, false)
			return nil
		}

		err = b.Ledger.SetBanned(ctx.Context(), userID, banned)
		switch {
		case errors.Is(err, ledger.ErrUserNotFound):
			b.reply(ctx.Context(), message.Chat.ID, fmt.Sprintf("User %d not found.", userID), nil, false)
		case err != nil:
			log.WithError(err).WithField("user_id", userID).Error("Failed to update ban flag")
			b.reply(ctx.Context(), message.Chat.ID, textTryAgain, nil, false)
		default:
			log.WithFields(log.Fields{"admin_id": message.From.ID, "user_id": userID, "banned": banned}).Info("Ban flag updated")
			state := "unbanned"
			if banned {
				state = "banned"
			}
			b.reply(ctx.Context(), message.Chat.ID, fmt.Sprintf("User %d %s.", userID, state), nil, false)
		}
		return nil
	}
}
