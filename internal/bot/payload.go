package bot

import (
	"fmt"
	"strings"

	"referral-coupon-bot/internal/models"
)

type Action int

const (
	ActionUnknown Action = iota
	ActionCheckJoin
	ActionRedeem
	ActionCloseWithdraw
	ActionAddCoupons
	ActionAdminStats
	ActionAdminReload
	ActionAdminClose
)

const (
	dataCheckJoin     = "check_join"
	dataCloseWithdraw = "close_withdraw"
	dataAdminStats    = "admin_stats"
	dataAdminReload   = "admin_reload"
	dataAdminClose    = "admin_close"
	prefixRedeem      = "redeem_"
	prefixAddCoupons  = "add_c_"
)

// Payload is a decoded inline button payload.
type Payload struct {
	Action       Action
	Denomination models.Denomination
}

// ParsePayload decodes callback data produced by this bot's keyboards.
func ParsePayload(data string) (Payload, error) {
	switch data {
	case dataCheckJoin:
		return Payload{Action: ActionCheckJoin}, nil
	case dataCloseWithdraw:
		return Payload{Action: ActionCloseWithdraw}, nil
	case dataAdminStats:
		return Payload{Action: ActionAdminStats}, nil
	case dataAdminReload:
		return Payload{Action: ActionAdminReload}, nil
	case dataAdminClose:
		return Payload{Action: ActionAdminClose}, nil
	}

	for prefix, action := range map[string]Action{prefixRedeem: ActionRedeem, prefixAddCoupons: ActionAddCoupons} {
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		d, err := models.ParseDenomination(strings.TrimPrefix(data, prefix))
		if err != nil {
			return Payload{}, err
		}
		return Payload{Action: action, Denomination: d}, nil
	}
	return Payload{}, fmt.Errorf("unknown callback data %q", data)
}

func redeemData(d models.Denomination) string {
	return prefixRedeem + d.String()
}

func addCouponsData(d models.Denomination) string {
	return prefixAddCoupons + d.String()
}

// commandArg returns the first argument after a command, as in "/start 123".
func commandArg(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// splitCodes splits an admin message into one candidate code per line.
func splitCodes(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
