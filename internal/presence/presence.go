package presence

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

const roomKeyPrefix = "presence:room:"

// Tracker keeps the current occupant set of every room in Redis, one hash
// per room mapping full occupant address to nickname. The hash is shared
// with the other server nodes, which is why it lives in Redis and not in
// process memory.
type Tracker struct {
	rdb *redis.Client
}

var _ archive.RoomDirectory = (*Tracker)(nil)

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// Occupants returns the current occupant snapshot of a room.
func (t *Tracker) Occupants(ctx context.Context, room string) ([]archive.Occupant, error) {
	members, err := t.rdb.HGetAll(ctx, roomKeyPrefix+room).Result()
	if err != nil {
		return nil, err
	}
	out := make([]archive.Occupant, 0, len(members))
	for addr, nickname := range members {
		out = append(out, archive.Occupant{
			User:     archive.ParseAddress(addr),
			Nickname: nickname,
		})
	}
	return out, nil
}

// Joined records that a user is now present in a room under a nickname.
func (t *Tracker) Joined(ctx context.Context, room string, user archive.Address, nickname string) error {
	return t.rdb.HSet(ctx, roomKeyPrefix+room, user.String(), nickname).Err()
}

// Left removes a user from a room's occupant set.
func (t *Tracker) Left(ctx context.Context, room string, user archive.Address) error {
	return t.rdb.HDel(ctx, roomKeyPrefix+room, user.String()).Err()
}
