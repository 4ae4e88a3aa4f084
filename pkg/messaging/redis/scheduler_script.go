package redis

import "github.com/go-redis/redis"

// nolint: lll
var schedulerScript = redis.NewScript(`
-- KEYS[1]: the scheduled set
-- KEYS[2]: the pending list

-- ARGV[1]: the current timestamp
-- ARGV[2]: the max number of envelope IDs to transfer to the pending list

-- Returns: the number of envelope IDs transferred

-- Get the due envelope IDs out of the scheduled set
local envelopeIDs = redis.call("zrangebyscore", KEYS[1], 0, ARGV[1], "LIMIT", 0, ARGV[2])
local envelopeCount = table.getn(envelopeIDs)

if envelopeCount > 0 then
  -- Push them on to the pending list
  redis.call("lpush", KEYS[2], unpack(envelopeIDs))

  -- Remove them from the scheduled set
  return redis.call("zremrangebyrank", KEYS[1], 0, envelopeCount - 1)
end

return 0
`)
