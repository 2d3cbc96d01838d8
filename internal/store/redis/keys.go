package redis

const (
	// KeyPrefix namespaces every key written by madvpn
	KeyPrefix = "madvpn:"
	// KeyCurrentNotification holds the notification currently on screen
	KeyCurrentNotification = KeyPrefix + "notification:current"
	// KeyPrefixLastAction is the prefix for the last notification per action
	KeyPrefixLastAction = KeyPrefix + "action:last:"
	// DefaultChannel is the pub/sub channel renderers subscribe to
	DefaultChannel = KeyPrefix + "notifications"
)

// CurrentNotificationKey returns the key of the on-screen notification
func CurrentNotificationKey() string {
	return KeyCurrentNotification
}

// LastActionKey returns the key holding the last notification of an action
func LastActionKey(action string) string {
	return KeyPrefixLastAction + action
}
