// Package redis stores loans and payments as JSON documents in Redis hashes.
//
// Layout, relative to the configured key prefix:
//
//	loans                  hash  loan id -> loan JSON
//	loan_ids               list  loan ids in issue order
//	payments               hash  payment id -> payment JSON
//	payment_ids            list  payment ids in insertion order
//	loan_payments:<loanID> list  payment ids for one loan
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/sacco-loans/internal/repository"

	goredis "github.com/redis/go-redis/v9"
)

type ConnectionInfo struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

// Connect builds a client and verifies it answers PING.
func Connect(ctx context.Context, info ConnectionInfo) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         info.Addr,
		Password:     info.Password,
		DB:           info.DB,
		MaxRetries:   info.MaxRetries,
		DialTimeout:  info.DialTimeout,
		ReadTimeout:  info.Timeout,
		WriteTimeout: info.Timeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", repository.ErrStorageUnavailable, err)
	}

	return rdb, nil
}

type keys struct {
	prefix string
}

func (k keys) loans() string      { return k.prefix + "loans" }
func (k keys) loanIDs() string    { return k.prefix + "loan_ids" }
func (k keys) payments() string   { return k.prefix + "payments" }
func (k keys) paymentIDs() string { return k.prefix + "payment_ids" }

func (k keys) loanPayments(loanID string) string {
	return k.prefix + "loan_payments:" + loanID
}

func translate(err error, what, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("%w: %s %s", repository.ErrNotFound, what, id)
	}
	return fmt.Errorf("%w: %v", repository.ErrStorageUnavailable, err)
}

// insert stores data under id in hashKey and appends id to every list in one
// MULTI/EXEC under WATCH. Redis does not roll back the rest of a transaction
// when one queued command fails, so a failed EXEC is undone by hand.
func insert(ctx context.Context, client *goredis.Client, what, hashKey, id string, data []byte, lists ...string) error {
	executed := false

	write := func(tx *goredis.Tx) error {
		exists, err := tx.HExists(ctx, hashKey, id).Result()
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrDuplicate
		}

		executed = true
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, hashKey, id, data)
			for _, list := range lists {
				pipe.RPush(ctx, list, id)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		executed = false
		err := client.Watch(ctx, write, hashKey)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, goredis.TxFailedErr):
			continue
		case errors.Is(err, repository.ErrDuplicate):
			return fmt.Errorf("%w: %s %s", repository.ErrDuplicate, what, id)
		}

		if executed {
			revert(ctx, client, hashKey, id, lists)
		}
		return translate(err, what, id)
	}

	return fmt.Errorf("%w: %s %s changed concurrently", repository.ErrStorageUnavailable, what, id)
}

func revert(ctx context.Context, client *goredis.Client, hashKey, id string, lists []string) {
	pipe := client.Pipeline()
	pipe.HDel(ctx, hashKey, id)
	for _, list := range lists {
		pipe.LRem(ctx, list, -1, id)
	}
	_, _ = pipe.Exec(ctx)
}

// decodeAll unmarshals HMGET results, skipping ids whose document is gone.
func decodeAll[T any](values []interface{}) ([]*T, error) {
	result := make([]*T, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		result = append(result, &item)
	}
	return result, nil
}
