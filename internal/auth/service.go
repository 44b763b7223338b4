package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"secrethobby/backend/internal/auth/jwt"
	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/monitoring"
	"secrethobby/backend/internal/service"
	"secrethobby/backend/internal/storage"
)

// AliasDirectory 绑定器依赖的别名目录操作
type AliasDirectory interface {
	RegisterWithCredential(ctx context.Context, alias string, bind service.CredentialBinder) (*domain.Identity, error)
	Lookup(ctx context.Context, alias string) (*domain.Identity, error)
	Get(ctx context.Context, id string) (*domain.Identity, error)
}

// CredentialStore 凭据存储
type CredentialStore interface {
	GetCredential(ctx context.Context, identityID string) (*domain.Credential, error)
}

// SessionStore 会话与令牌吊销存储
type SessionStore interface {
	storage.SessionRepository
	storage.JWTRepository
}

// Options 绑定器可选参数
type Options struct {
	BcryptCost int // 0 表示 bcrypt.DefaultCost
}

// Binder 把别名绑定为可认证的身份，负责会话的创建与销毁。
// 会话由调用方显式持有，每个需要身份的操作都显式传入。
type Binder struct {
	directory   AliasDirectory
	credentials CredentialStore
	sessions    SessionStore
	tokens      *jwt.Manager
	deriver     CredentialDeriver
	opts        Options
	metrics     *monitoring.Metrics
	log         *zap.Logger
	now         func() time.Time
}

// NewBinder 创建身份绑定器
func NewBinder(
	directory AliasDirectory,
	credentials CredentialStore,
	sessions SessionStore,
	tokens *jwt.Manager,
	deriver CredentialDeriver,
	opts Options,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *Binder {
	return &Binder{
		directory:   directory,
		credentials: credentials,
		sessions:    sessions,
		tokens:      tokens,
		deriver:     deriver,
		opts:        opts,
		metrics:     metrics,
		log:         logger.OrNop(log),
		now:         time.Now,
	}
}

// SignUp 注册别名并创建会话，要么别名与会话都生效，要么都不生效。
// 别名已存在时返回 AliasTaken，不会自动转为登录。
//
// 会话在身份写入之前保存：会话存储失败时别名不会被占用；
// 身份写入失败时撤销已保存的会话。
func (b *Binder) SignUp(ctx context.Context, alias string) (*domain.Session, error) {
	session, err := b.signUp(ctx, alias)
	b.recordAttempt("signup", err)
	return session, err
}

func (b *Binder) signUp(ctx context.Context, alias string) (*domain.Session, error) {
	var session *domain.Session
	bind := func(identity *domain.Identity) (*domain.Credential, error) {
		cred, err := b.bindCredential(identity)
		if err != nil {
			return nil, err
		}
		if session, err = b.openSession(ctx, identity); err != nil {
			return nil, err
		}
		return cred, nil
	}

	if _, err := b.directory.RegisterWithCredential(ctx, alias, bind); err != nil {
		if session != nil {
			b.discardSession(ctx, session)
		}
		return nil, err
	}

	b.log.Info("identity signed up",
		zap.String("session_id", session.ID),
		zap.String("identity_id", session.IdentityID),
		zap.String("alias", session.Alias),
	)
	return session, nil
}

// SignIn 以别名登录。
//
// 返回值:
//   - AliasNotFound: 别名未注册
//   - AuthenticationFailed: 凭据存储与别名目录不一致（凭据缺失或不匹配）
//   - StoreUnavailable: 存储不可用
func (b *Binder) SignIn(ctx context.Context, alias string) (*domain.Session, error) {
	session, err := b.signIn(ctx, alias)
	b.recordAttempt("signin", err)
	return session, err
}

func (b *Binder) signIn(ctx context.Context, alias string) (*domain.Session, error) {
	identity, err := b.directory.Lookup(ctx, alias)
	if err != nil {
		return nil, err
	}

	cred, err := b.credentials.GetCredential(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.log.Warn("identity has no credential", zap.String("identity_id", identity.ID))
			return nil, domain.NewError(domain.KindAuthenticationFailed, "credential missing", err)
		}
		return nil, domain.NewError(domain.KindStoreUnavailable, "get credential", err)
	}

	derived := b.deriver.Derive(identity.Alias)
	if cred.Login != derived.Login || !CheckSecret(derived.Secret, cred.SecretHash) {
		b.log.Warn("credential mismatch", zap.String("identity_id", identity.ID))
		return nil, domain.NewError(domain.KindAuthenticationFailed, "credential mismatch", nil)
	}

	return b.openSession(ctx, identity)
}

// SignOut 销毁会话并吊销其令牌。对已销毁或空会话重复调用不报错。
func (b *Binder) SignOut(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return nil
	}

	if err := b.sessions.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return domain.NewError(domain.KindStoreUnavailable, "delete session", err)
	}

	// 令牌在过期前仍可验签，吊销到过期为止
	if ttl := session.ExpiresAt.Sub(b.now()); ttl > 0 {
		if err := b.sessions.AddToBlacklist(ctx, session.ID, ttl); err != nil {
			return domain.NewError(domain.KindStoreUnavailable, "revoke session token", err)
		}
	}

	b.metrics.RecordSessionEnded()
	b.log.Info("session ended",
		zap.String("session_id", session.ID),
		zap.String("identity_id", session.IdentityID),
	)
	return nil
}

// Authenticate 校验会话令牌：签名有效、未被吊销且会话记录仍存在
func (b *Binder) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := b.tokens.Validate(token)
	if err != nil {
		return nil, domain.NewError(domain.KindAuthenticationFailed, "invalid session token", err)
	}

	revoked, err := b.sessions.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreUnavailable, "check token revocation", err)
	}
	if revoked {
		return nil, domain.NewError(domain.KindAuthenticationFailed, "session revoked", nil)
	}

	session, err := b.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NewError(domain.KindAuthenticationFailed, "session not found", err)
		}
		return nil, domain.NewError(domain.KindStoreUnavailable, "get session", err)
	}
	if session.IdentityID != claims.IdentityID || session.Expired(b.now()) {
		return nil, domain.NewError(domain.KindAuthenticationFailed, "session mismatch", nil)
	}

	session.Token = token
	return session, nil
}

// Me 返回会话绑定的身份
func (b *Binder) Me(ctx context.Context, session *domain.Session) (*domain.Identity, error) {
	if session == nil || session.IdentityID == "" {
		return nil, domain.NewError(domain.KindAuthenticationFailed, "session required", nil)
	}
	return b.directory.Get(ctx, session.IdentityID)
}

// bindCredential 在身份写入前派生并哈希凭据
func (b *Binder) bindCredential(identity *domain.Identity) (*domain.Credential, error) {
	derived := b.deriver.Derive(identity.Alias)
	hash, err := HashSecret(derived.Secret, b.opts.BcryptCost)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, "hash credential secret", err)
	}
	return &domain.Credential{
		IdentityID: identity.ID,
		Login:      derived.Login,
		SecretHash: hash,
		CreatedAt:  identity.CreatedAt,
	}, nil
}

// discardSession 撤销注册失败时已保存的会话。
// 删除失败时吊销令牌，保证令牌无法通过 Authenticate。
func (b *Binder) discardSession(ctx context.Context, session *domain.Session) {
	ctx = context.WithoutCancel(ctx)
	err := b.sessions.DeleteSession(ctx, session.ID)
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		return
	}
	b.log.Warn("failed to discard session after sign-up failure",
		zap.String("session_id", session.ID),
		zap.Error(err),
	)
	if ttl := session.ExpiresAt.Sub(b.now()); ttl > 0 {
		if err := b.sessions.AddToBlacklist(ctx, session.ID, ttl); err != nil {
			b.log.Error("failed to revoke orphaned session",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
	}
}

func (b *Binder) openSession(ctx context.Context, identity *domain.Identity) (*domain.Session, error) {
	sessionID := uuid.NewString()
	token, err := b.tokens.Issue(sessionID, identity.ID, identity.Alias)
	if err != nil {
		b.log.Error("failed to issue session token", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, domain.NewError(domain.KindInternal, "issue session token", err)
	}

	session := &domain.Session{
		ID:         sessionID,
		IdentityID: identity.ID,
		Alias:      identity.Alias,
		Token:      token.Value,
		IssuedAt:   token.IssuedAt,
		ExpiresAt:  token.ExpiresAt,
	}

	stored := *session
	stored.Token = ""
	if err := b.sessions.SaveSession(ctx, &stored, b.tokens.Expiry()); err != nil {
		b.log.Error("failed to save session", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, domain.NewError(domain.KindStoreUnavailable, "save session", err)
	}

	b.log.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("identity_id", identity.ID),
		zap.String("alias", identity.Alias),
	)
	return session, nil
}

func (b *Binder) recordAttempt(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	b.metrics.RecordAuthAttempt(op, result)
}
