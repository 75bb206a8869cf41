package model

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Account is an operator allowed to request API tokens. Accounts come from configuration,
// not the database: the service keeps no user records.
type Account struct {
	Name    string
	Role    string
	KeyHash string
}

// HashKey produces the bcrypt hash stored in AUTH_ACCOUNTS.
func HashKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (a *Account) CheckKey(key string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.KeyHash), []byte(key))
	return err == nil
}

// ParseAccounts reads "name:role:bcryptHash" entries separated by commas.
func ParseAccounts(raw string) ([]Account, error) {
	var accounts []Account
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("account entry %q must be name:role:hash", entry)
		}
		if !IsValidRole(parts[1]) {
			return nil, fmt.Errorf("account %s has unknown role %q", parts[0], parts[1])
		}
		accounts = append(accounts, Account{Name: parts[0], Role: parts[1], KeyHash: parts[2]})
	}
	return accounts, nil
}
