package service

import (
	"errors"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"
)

// storeFailure 将存储层错误转换为业务错误。
// 已打标签的错误原样返回；ErrNotFound 转为 notFound 指定的类型；
// 其余（不可达、超时、未知驱动错误）统一视为 StoreUnavailable，保证调用方能区分"不存在"与"无法确认"。
func storeFailure(op string, err error, notFound domain.ErrorKind) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NewError(notFound, op, err)
	}
	return domain.NewError(domain.KindStoreUnavailable, op, err)
}

// requireSession 校验调用方持有会话
func requireSession(session *domain.Session) error {
	if session == nil || session.IdentityID == "" {
		return domain.NewError(domain.KindAuthenticationFailed, "session required", nil)
	}
	return nil
}
