package domain

// SubscriberSearch builds the preference query matching a newly created
// session. A non-empty session passphrase is scope-exclusive: only
// preferences carrying exactly that passphrase qualify, regardless of their
// server scoping. Sessions without a passphrase match unscoped preferences
// and preferences homed on the session's origin.
func SubscriberSearch(session Session) PreferenceQuery {
	active := true
	pass := session.GroupPass

	query := PreferenceQuery{
		Active:           &active,
		PassphraseFilter: &pass,
	}

	if session.GroupPass == "" {
		origin := session.OriginID
		query.OriginOrUnscoped = &origin
	}

	return query
}

// PreferenceMatches re-checks a single preference against a session. Kept
// next to SubscriberSearch so the store predicate and the per-row check can't
// drift apart.
func PreferenceMatches(preference NotificationPreference, session Session) bool {
	if !preference.Active {
		return false
	}

	if preference.PassphraseFilter != session.GroupPass {
		return false
	}

	// Passphrase subscriptions ignore server scoping.
	if preference.PassphraseFilter != "" {
		return true
	}

	return !preference.ServerScoped || preference.HomeOriginID == session.OriginID
}
