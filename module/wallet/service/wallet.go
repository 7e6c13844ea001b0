package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"RelayProject/module/wallet/model"
	"RelayProject/tools/security"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrStoreNotReady   = errors.New("store not ready")
)

// Store 账户/提现的持久层。db 通过函数注入：
// Mongo 是异步启动的，没就绪之前请求直接报错而不是阻塞。
type Store struct {
	dbFn func() (*mongo.Database, bool)
	opts security.Options
}

func NewStore(dbFn func() (*mongo.Database, bool), opts security.Options) *Store {
	return &Store{dbFn: dbFn, opts: opts}
}

// AppendWithdrawal 按 token 定位账户并追加一条提现流水
func (s *Store) AppendWithdrawal(ctx context.Context, token string, rec model.WithdrawalRecord) error {
	db, ok := s.dbFn()
	if !ok {
		return ErrStoreNotReady
	}
	coll := db.Collection(model.CollectionAccounts)

	res, err := coll.UpdateOne(ctx,
		bson.M{"token": token},
		bson.M{
			"$push": bson.M{"withdrawal": rec},
			"$set":  bson.M{"update_time": time.Now()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "append withdrawal")
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateAccount 签发账户令牌并落库（已存在则换新令牌）。
// 返回明文令牌；库里只存 hash 之外还存明文 token 用于提现路径的等值查找，
// 与既有数据模型保持一致。
func (s *Store) CreateAccount(ctx context.Context, userID string) (string, error) {
	db, ok := s.dbFn()
	if !ok {
		return "", ErrStoreNotReady
	}
	token, hash, _, err := security.Generate(s.opts, userID, nil)
	if err != nil {
		return "", errors.Wrap(err, "generate token")
	}

	now := time.Now()
	coll := db.Collection(model.CollectionAccounts)
	_, err = coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"token":       token,
				"token_hash":  hash,
				"update_time": now,
			},
			"$setOnInsert": bson.M{
				"user_id":     userID,
				"withdrawal":  []model.WithdrawalRecord{},
				"create_time": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", errors.Wrap(err, "upsert account")
	}
	return token, nil
}
