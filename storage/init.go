package storage

import (
	"AttendBot/config"
	"AttendBot/storage/database"
	"AttendBot/storage/mq"
	"AttendBot/storage/redis"
)

// Init 按需初始化存储层，server 不需要 MQ，worker 不需要数据库
func Init(withDB, withRedis, withMQ bool) error {
	if withDB {
		if err := database.Init(); err != nil {
			return err
		}
		register("database", database.Close)
	}

	if withRedis {
		if err := redis.Init(); err != nil {
			return err
		}
		register("redis", redis.Close)
		if config.Cfg.OTLPEndpoint != "" {
			redis.Instrument()
		}
	}

	if withMQ {
		if err := mq.Init(); err != nil {
			return err
		}
		register("mq", mq.Close)
	}

	return nil
}
