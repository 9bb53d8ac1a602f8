package signaling

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo coordinates call sessions across independent API instances.
// Sessions are stored as hashes with a TTL so that a crashed endpoint cannot
// leak a ringing call forever; per-user index sets carry the same TTL.
type RedisRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRepo(rdb *redis.Client, sessionTTL time.Duration) *RedisRepo {
	if sessionTTL <= 0 {
		sessionTTL = 4 * time.Hour
	}
	return &RedisRepo{rdb: rdb, ttl: sessionTTL}
}

func callKey(callID string) string { return "call:" + callID }
func userKey(email string) string  { return "calls:user:" + email }

// transitionScript performs the monotone status transition atomically.
//
// KEYS[1] = call hash key
// ARGV[1] = target status
// ARGV[2] = now (unix seconds)
// ARGV[3] = ttl_ms
//
// Returns:
//
//	1  transition applied
//	0  no-op (terminal session or repeated/illegal step)
//	-1 call not found
var transitionScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
  return -1
end

local allowed = {
  ringing  = { answered = true, declined = true, ended = true },
  answered = { ended = true },
}
local target = ARGV[1]
local fromAllowed = allowed[status]
if not fromAllowed or not fromAllowed[target] then
  return 0
end

redis.call('HSET', KEYS[1], 'status', target)
if target == 'declined' or target == 'ended' then
  local started = tonumber(redis.call('HGET', KEYS[1], 'started_at')) or 0
  local now = tonumber(ARGV[2])
  local duration = now - started
  if duration < 0 then duration = 0 end
  redis.call('HSET', KEYS[1], 'ended_at', now, 'duration', duration)
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (r *RedisRepo) Create(ctx context.Context, s CallSession) error {
	if r.rdb == nil {
		return fmt.Errorf("signaling: redis client is nil")
	}

	fields := map[string]any{
		"call_id":        s.CallID,
		"caller_email":   s.CallerEmail,
		"caller_name":    s.CallerName,
		"receiver_email": s.ReceiverEmail,
		"receiver_name":  s.ReceiverName,
		"status":         string(s.Status),
		"started_at":     s.StartedAt.Unix(),
		"ended_at":       0,
		"duration":       0,
	}

	pipe := r.rdb.TxPipeline()
	key := callKey(s.CallID)
	pipe.HSet(ctx, key, fields)
	pipe.PExpire(ctx, key, r.ttl)
	for _, email := range []string{s.CallerEmail, s.ReceiverEmail} {
		uk := userKey(email)
		pipe.SAdd(ctx, uk, s.CallID)
		pipe.PExpire(ctx, uk, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRepo) Get(ctx context.Context, callID string) (CallSession, error) {
	if r.rdb == nil {
		return CallSession{}, fmt.Errorf("signaling: redis client is nil")
	}
	fields, err := r.rdb.HGetAll(ctx, callKey(callID)).Result()
	if err != nil {
		return CallSession{}, err
	}
	if len(fields) == 0 {
		return CallSession{}, ErrNotFound
	}
	return sessionFromHash(fields), nil
}

func (r *RedisRepo) Transition(ctx context.Context, callID string, to CallStatus, at time.Time) (CallSession, bool, error) {
	if r.rdb == nil {
		return CallSession{}, false, fmt.Errorf("signaling: redis client is nil")
	}

	res, err := transitionScript.Run(ctx, r.rdb,
		[]string{callKey(callID)},
		string(to), at.Unix(), r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return CallSession{}, false, err
	}
	if res == -1 {
		return CallSession{}, false, ErrNotFound
	}

	session, err := r.Get(ctx, callID)
	if err != nil {
		return CallSession{}, false, err
	}
	return session, res == 1, nil
}

func (r *RedisRepo) ListForUser(ctx context.Context, email string) ([]CallSession, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("signaling: redis client is nil")
	}

	ids, err := r.rdb.SMembers(ctx, userKey(email)).Result()
	if err != nil {
		return nil, err
	}

	var out []CallSession
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err == ErrNotFound {
			// Session expired; drop the stale index entry opportunistically.
			r.rdb.SRem(ctx, userKey(email), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func sessionFromHash(fields map[string]string) CallSession {
	s := CallSession{
		CallID:        fields["call_id"],
		CallerEmail:   fields["caller_email"],
		CallerName:    fields["caller_name"],
		ReceiverEmail: fields["receiver_email"],
		ReceiverName:  fields["receiver_name"],
		Status:        CallStatus(fields["status"]),
	}
	if v, err := strconv.ParseInt(fields["started_at"], 10, 64); err == nil {
		s.StartedAt = time.Unix(v, 0).UTC()
	}
	if v, err := strconv.ParseInt(fields["ended_at"], 10, 64); err == nil && v > 0 {
		t := time.Unix(v, 0).UTC()
		s.EndedAt = &t
	}
	if v, err := strconv.Atoi(fields["duration"]); err == nil {
		s.DurationSeconds = v
	}
	return s
}
