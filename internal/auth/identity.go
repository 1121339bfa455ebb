package auth

import "strings"

// Identity is what the request layer knows about the caller. Every field must
// be present for the caller to be treated as authenticated.
type Identity struct {
	WalletAddress string
	SessionID     string
	Authenticated bool
}

func (i Identity) Complete() bool {
	return i.Authenticated && i.WalletAddress != "" && i.SessionID != ""
}

// AdminList is the configured set of wallets with admin rights on every session.
type AdminList struct {
	wallets map[string]struct{}
}

func NewAdminList(wallets []string) *AdminList {
	l := &AdminList{wallets: make(map[string]struct{}, len(wallets))}
	for _, w := range wallets {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		l.wallets[strings.ToLower(w)] = struct{}{}
	}
	return l
}

// IsAdmin compares wallet addresses case-insensitively.
func (l *AdminList) IsAdmin(walletAddress string) bool {
	if l == nil || walletAddress == "" {
		return false
	}
	_, ok := l.wallets[strings.ToLower(walletAddress)]
	return ok
}

func (l *AdminList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.wallets)
}
