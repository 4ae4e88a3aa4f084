package redis

import (
	"fmt"
)

func prefixedKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", prefix, key)
}

func pendingListKey(prefix, queueName string) string {
	return prefixedKey(
		prefix,
		fmt.Sprintf("%s:pending", queueName),
	)
}

func envelopesHashKey(prefix, queueName string) string {
	return prefixedKey(
		prefix,
		fmt.Sprintf("%s:envelopes", queueName),
	)
}

func scheduledSetKey(prefix, queueName string) string {
	return prefixedKey(
		prefix,
		fmt.Sprintf("%s:scheduled", queueName),
	)
}

func activeListKey(prefix, queueName, consumerID string) string {
	return prefixedKey(
		prefix,
		fmt.Sprintf("%s:%s:active", queueName, consumerID),
	)
}
