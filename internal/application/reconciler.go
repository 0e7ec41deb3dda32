package application

import "marketplace-session-layer/internal/domain"

// Reconcile joins the directory with remote cart data. For every directory
// entry the first remote record whose store id matches (or, when the entry
// has no store id, whose base URL matches) supplies store id, cart id, logo
// hints and store name; base URL and platform always come from the directory.
// Output keeps directory order and drops remote records nothing matched.
func Reconcile(directory []domain.StoreConfig, remote []domain.RemoteCartInfo) []domain.ReconciledEntry {
	view := make([]domain.ReconciledEntry, 0, len(directory))
	for _, store := range directory {
		match, ok := findRemote(store, remote)
		view = append(view, merge(store, match, ok))
	}
	return view
}

func findRemote(store domain.StoreConfig, remote []domain.RemoteCartInfo) (domain.RemoteCartInfo, bool) {
	for _, r := range remote {
		if store.StoreID != "" {
			if r.StoreID == store.StoreID {
				return r, true
			}
			continue
		}
		if r.BaseURL != "" && r.BaseURL == store.BaseURL {
			return r, true
		}
	}
	return domain.RemoteCartInfo{}, false
}

func merge(store domain.StoreConfig, remote domain.RemoteCartInfo, matched bool) domain.ReconciledEntry {
	entry := domain.ReconciledEntry{
		StoreID:     store.StoreID,
		BaseURL:     store.BaseURL,
		Platform:    store.Platform,
		DisplayName: store.Name(),
		LogoIcon:    store.LogoIcon,
		LogoColor:   store.LogoColor,
	}
	if !matched {
		return entry
	}

	entry.StoreID = preferRemote(remote.StoreID, entry.StoreID)
	entry.CartID = remote.CartID
	entry.LogoIcon = preferRemote(remote.LogoIcon, entry.LogoIcon)
	entry.LogoColor = preferRemote(remote.LogoColor, entry.LogoColor)
	entry.DisplayName = preferRemote(remote.StoreName, entry.DisplayName)
	entry.HasCart = entry.CartID != ""
	return entry
}

func preferRemote(remote, local string) string {
	if remote != "" {
		return remote
	}
	return local
}
