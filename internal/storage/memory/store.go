package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"
)

// Store 使用内存保存身份、发布与协作请求，主要用于开发验证和测试。
// 唯一约束与条件更新的语义与 SQL 存储保持一致。
type Store struct {
	mu          sync.RWMutex
	identities  map[string]*domain.Identity   // identityID -> identity
	byAlias     map[string]string             // alias -> identityID
	credentials map[string]*domain.Credential // identityID -> credential
	byLogin     map[string]string             // login -> identityID
	listings    map[string]*domain.Listing
	listingSeq  []string // 插入顺序
	requests    map[string]*domain.CollaborationRequest
	requestSeq  []string

	sessions  map[string]*sessionEntry
	blacklist map[string]time.Time // jti -> 过期时间

	failure error
	now     func() time.Time
}

type sessionEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		identities:  make(map[string]*domain.Identity),
		byAlias:     make(map[string]string),
		credentials: make(map[string]*domain.Credential),
		byLogin:     make(map[string]string),
		listings:    make(map[string]*domain.Listing),
		requests:    make(map[string]*domain.CollaborationRequest),
		sessions:    make(map[string]*sessionEntry),
		blacklist:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// SetFailure 让后续所有操作返回 err（包装为 storage.ErrUnavailable），传 nil 恢复。测试用。
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.failure = nil
		return
	}
	s.failure = fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.Classify(err)
	}
	return s.failure
}

// ========== Identity Repository ==========

// CreateIdentity 创建身份，可选地同时写入凭据
func (s *Store) CreateIdentity(ctx context.Context, identity *domain.Identity, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, exists := s.byAlias[identity.Alias]; exists {
		return fmt.Errorf("alias %q: %w", identity.Alias, storage.ErrDuplicate)
	}
	if _, exists := s.identities[identity.ID]; exists {
		return fmt.Errorf("identity %s: %w", identity.ID, storage.ErrDuplicate)
	}
	if cred != nil {
		if _, exists := s.byLogin[cred.Login]; exists {
			return fmt.Errorf("login %q: %w", cred.Login, storage.ErrDuplicate)
		}
	}

	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = s.now()
	}
	copied := *identity
	s.identities[identity.ID] = &copied
	s.byAlias[identity.Alias] = identity.ID

	if cred != nil {
		if cred.CreatedAt.IsZero() {
			cred.CreatedAt = identity.CreatedAt
		}
		c := *cred
		s.credentials[cred.IdentityID] = &c
		s.byLogin[cred.Login] = cred.IdentityID
	}
	return nil
}

// GetIdentity 根据 ID 获取身份
func (s *Store) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	identity, ok := s.identities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}

// GetIdentityByAlias 根据规范化别名获取身份
func (s *Store) GetIdentityByAlias(ctx context.Context, alias string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	id, ok := s.byAlias[alias]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s.identities[id]
	return &copied, nil
}

// GetCredential 获取身份绑定的凭据
func (s *Store) GetCredential(ctx context.Context, identityID string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	cred, ok := s.credentials[identityID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

// DeleteCredential 删除凭据，用于模拟凭据存储与身份目录不一致。测试用。
func (s *Store) DeleteCredential(identityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.credentials[identityID]; ok {
		delete(s.byLogin, cred.Login)
		delete(s.credentials, identityID)
	}
}

// ========== Listing Repository ==========

// CreateListing 保存发布
func (s *Store) CreateListing(ctx context.Context, listing *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, ok := s.identities[listing.OwnerID]; !ok {
		return fmt.Errorf("owner %s: %w", listing.OwnerID, storage.ErrNotFound)
	}
	if _, exists := s.listings[listing.ID]; exists {
		return fmt.Errorf("listing %s: %w", listing.ID, storage.ErrDuplicate)
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = s.now()
	}

	copied := *listing
	copied.Tags = append(domain.Tags{}, listing.Tags...)
	copied.Owner = nil
	s.listings[listing.ID] = &copied
	s.listingSeq = append(s.listingSeq, listing.ID)
	return nil
}

// GetListing 根据 ID 获取发布，附带所有者
func (s *Store) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	listing, ok := s.listings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := s.expandListingLocked(listing)
	return &out, nil
}

// ListListings 返回全部发布，按创建时间倒序
func (s *Store) ListListings(ctx context.Context) ([]domain.Listing, error) {
	return s.filterListings(ctx, func(*domain.Listing) bool { return true })
}

// ListListingsByOwner 返回某个身份的全部发布
func (s *Store) ListListingsByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	return s.filterListings(ctx, func(l *domain.Listing) bool { return l.OwnerID == ownerID })
}

func (s *Store) filterListings(ctx context.Context, keep func(*domain.Listing) bool) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	result := make([]domain.Listing, 0)
	for i := len(s.listingSeq) - 1; i >= 0; i-- {
		listing := s.listings[s.listingSeq[i]]
		if keep(listing) {
			result = append(result, s.expandListingLocked(listing))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// SetMysteryMode 更新发布的神秘模式
func (s *Store) SetMysteryMode(ctx context.Context, id string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	listing, ok := s.listings[id]
	if !ok {
		return storage.ErrNotFound
	}
	listing.MysteryMode = on
	return nil
}

func (s *Store) expandListingLocked(listing *domain.Listing) domain.Listing {
	out := *listing
	out.Tags = append(domain.Tags{}, listing.Tags...)
	if owner, ok := s.identities[listing.OwnerID]; ok {
		o := *owner
		out.Owner = &o
	}
	return out
}

// ========== Request Repository ==========

// CreateRequest 保存协作请求
func (s *Store) CreateRequest(ctx context.Context, req *domain.CollaborationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, ok := s.listings[req.ListingID]; !ok {
		return fmt.Errorf("listing %s: %w", req.ListingID, storage.ErrNotFound)
	}
	if _, ok := s.identities[req.RequesterID]; !ok {
		return fmt.Errorf("requester %s: %w", req.RequesterID, storage.ErrNotFound)
	}
	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("request %s: %w", req.ID, storage.ErrDuplicate)
	}

	now := s.now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	if req.Status == "" {
		req.Status = domain.RequestPending
	}

	copied := *req
	copied.Listing = nil
	copied.Requester = nil
	s.requests[req.ID] = &copied
	s.requestSeq = append(s.requestSeq, req.ID)
	return nil
}

// GetRequest 根据 ID 获取协作请求，附带发布与请求者
func (s *Store) GetRequest(ctx context.Context, id string) (*domain.CollaborationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	req, ok := s.requests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := s.expandRequestLocked(req)
	return &out, nil
}

// ListRequestsByRequester 返回某个身份发出的请求
func (s *Store) ListRequestsByRequester(ctx context.Context, requesterID string) ([]domain.CollaborationRequest, error) {
	return s.filterRequests(ctx, func(r *domain.CollaborationRequest) bool {
		return r.RequesterID == requesterID
	})
}

// ListRequestsByListingOwner 返回指向某个身份所有发布的请求
func (s *Store) ListRequestsByListingOwner(ctx context.Context, ownerID string) ([]domain.CollaborationRequest, error) {
	return s.filterRequests(ctx, func(r *domain.CollaborationRequest) bool {
		listing, ok := s.listings[r.ListingID]
		return ok && listing.OwnerID == ownerID
	})
}

func (s *Store) filterRequests(ctx context.Context, keep func(*domain.CollaborationRequest) bool) ([]domain.CollaborationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	result := make([]domain.CollaborationRequest, 0)
	for i := len(s.requestSeq) - 1; i >= 0; i-- {
		req := s.requests[s.requestSeq[i]]
		if keep(req) {
			result = append(result, s.expandRequestLocked(req))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateRequestStatus 条件更新请求状态，当前状态不是 from 时返回 ErrConflict
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, from, to domain.RequestStatus, at time.Time) (*domain.CollaborationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	req, ok := s.requests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if req.Status != from {
		return nil, fmt.Errorf("request %s is %s: %w", id, req.Status, storage.ErrConflict)
	}
	req.Status = to
	req.UpdatedAt = at

	out := s.expandRequestLocked(req)
	return &out, nil
}

func (s *Store) expandRequestLocked(req *domain.CollaborationRequest) domain.CollaborationRequest {
	out := *req
	if listing, ok := s.listings[req.ListingID]; ok {
		l := s.expandListingLocked(listing)
		out.Listing = &l
	}
	if requester, ok := s.identities[req.RequesterID]; ok {
		r := *requester
		out.Requester = &r
	}
	return out
}

// ========== Session Repository ==========

// SaveSession 保存会话
func (s *Store) SaveSession(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	entry := &sessionEntry{session: *session}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.sessions[session.ID] = entry
	return nil
}

// GetSession 获取未过期的会话
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	entry, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		return nil, storage.ErrNotFound
	}
	session := entry.session
	return &session, nil
}

// DeleteSession 删除会话，不存在时不报错
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

// ========== JWT Repository ==========

// AddToBlacklist 将令牌加入黑名单
func (s *Store) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.blacklist[jti] = s.now().Add(ttl)
	return nil
}

// IsBlacklisted 检查令牌是否在黑名单中
func (s *Store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	expiresAt, ok := s.blacklist[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.blacklist, jti)
		return false, nil
	}
	return true, nil
}

// Close 内存存储无需释放资源
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终健康，除非注入了故障
func (s *Store) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}
