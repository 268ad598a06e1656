package redis

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

var ErrTxConflict = errors.New("too many concurrent writes to the same record")

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}
