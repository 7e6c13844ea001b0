package storage

import (
	"context"
	"fmt"
	"time"
)

var ctx = context.Background()

// presence key: relay:presence:<user>
// Value: session id, TTL controls the online validity period.
// The key mirrors the in-memory registry for operators and dashboards;
// routing decisions never read it.
func presenceKey(user string) string { return "relay:presence:" + user }

// PresenceOnline sets the user as online and renews the TTL
func PresenceOnline(user, sessionID string, ttl time.Duration) error {
	if redisMgr == nil {
		return fmt.Errorf("redis not initialized")
	}
	return redisMgr.client.Set(ctx, presenceKey(user), sessionID, ttl).Err()
}

// PresenceOffline actively sets the user offline (deletes the key)
func PresenceOffline(user string) error {
	if redisMgr == nil {
		return fmt.Errorf("redis not initialized")
	}
	return redisMgr.client.Del(ctx, presenceKey(user)).Err()
}
