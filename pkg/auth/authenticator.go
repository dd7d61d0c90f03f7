package auth

import "log/slog"

type authenticator struct {
	authorizedUserIDs map[int64]struct{}
}

// NewAuthenticator restricts access to the given users. An empty list lets everyone in.
func NewAuthenticator(authorizedUserIDs []int64) *authenticator {
	if len(authorizedUserIDs) == 0 {
		slog.Info("Telegram access is open to all users")
	} else {
		slog.Info("Telegram authorized user IDs", "userIDs", authorizedUserIDs)
	}

	ids := make(map[int64]struct{}, len(authorizedUserIDs))
	for _, id := range authorizedUserIDs {
		ids[id] = struct{}{}
	}
	return &authenticator{authorizedUserIDs: ids}
}

func (a *authenticator) IsAuthorized(userID int64) bool {
	if len(a.authorizedUserIDs) == 0 {
		return true
	}
	_, ok := a.authorizedUserIDs[userID]
	return ok
}
