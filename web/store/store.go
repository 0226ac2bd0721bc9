package store

import (
	"context"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/web/config"
	"github.com/Trinoooo/eggie_web/web/logs"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// hashCost 测试中会调低
var hashCost = bcrypt.DefaultCost

func Open(ctx context.Context, cfg *config.StoreConfig) (IPool, error) {
	switch cfg.Driver {
	case consts.StoreDriverPebble:
		return OpenPebble(cfg.Dir, cfg.PoolSize, nil)
	case consts.StoreDriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.PoolSize)
	default:
		e := errs.NewUnsupportedDriverErr()
		logs.Error(e.Error(), zap.String(consts.LogFieldParams, "driver"), zap.String(consts.LogFieldValue, cfg.Driver))
		return nil, e
	}
}

// VerifyUser isLogin 为 true 时校验密码，否则注册新用户
func VerifyUser(ctx context.Context, pool IPool, user, pwd string, isLogin bool) error {
	if user == "" || pwd == "" {
		return errs.NewInvalidParamErr()
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(conn)

	if isLogin {
		hash, err := conn.GetPassword(ctx, user)
		if err != nil {
			return err
		}
		if err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd)); err != nil {
			return errs.NewPasswordMismatchErr().WithErr(err)
		}
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), hashCost)
	if err != nil {
		return errs.NewHashPasswordErr().WithErr(err)
	}
	return conn.CreateUser(ctx, user, string(hash))
}
