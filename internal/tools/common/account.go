package common

import (
	"github.com/teemow/drivelog/internal/server"
)

// ArgAccount is the optional argument naming the Google account.
const ArgAccount = "account"

// GetAccountFromArgs returns the explicit "account" argument, or "" to use
// the stored account.
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args[ArgAccount].(string); ok && accountVal != "" {
		return accountVal
	}
	return ""
}

// EffectiveAccount is the account a call runs as: the explicit argument, or
// else the stored account.
func EffectiveAccount(sc *server.ServerContext, args map[string]interface{}) string {
	if account := GetAccountFromArgs(args); account != "" {
		return account
	}
	return sc.Credential().AccountName
}
