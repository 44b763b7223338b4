package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/monitoring"
	"secrethobby/backend/internal/storage"
)

// RequestStore 请求生命周期依赖的存储操作
type RequestStore interface {
	storage.ListingRepository
	storage.RequestRepository
}

// RequestService 管理协作请求：提交、收件箱聚合与状态流转。
type RequestService struct {
	store   RequestStore
	metrics *monitoring.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewRequestService 创建协作请求业务服务。
func NewRequestService(store RequestStore, metrics *monitoring.Metrics, log *zap.Logger) *RequestService {
	return &RequestService{
		store:   store,
		metrics: metrics,
		log:     logger.OrNop(log),
		now:     time.Now,
	}
}

// Submit 以会话身份对某条发布提交协作请求。
//
// 返回值:
//   - ValidationError: offer 为空，或请求自己的发布
//   - NotFound: 发布不存在
//   - StoreUnavailable: 存储不可用
func (s *RequestService) Submit(ctx context.Context, session *domain.Session, listingID, offer, message string) (*domain.CollaborationRequest, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	offer, message, err := domain.ValidateOffer(offer, message)
	if err != nil {
		return nil, err
	}

	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, storeFailure("get listing", err, domain.KindNotFound)
	}
	if listing.IsOwnedBy(session.IdentityID) {
		return nil, domain.Validationf("cannot request collaboration on your own listing")
	}

	now := s.now().UTC()
	requester := session.Identity()
	req := &domain.CollaborationRequest{
		ID:               uuid.NewString(),
		ListingID:        listing.ID,
		RequesterID:      session.IdentityID,
		OfferDescription: offer,
		Message:          message,
		Status:           domain.RequestPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		s.log.Error("failed to submit request",
			zap.String("listing_id", listing.ID),
			zap.String("identity_id", session.IdentityID),
			zap.Error(err),
		)
		return nil, storeFailure("create request", err, domain.KindNotFound)
	}
	req.Listing = listing
	req.Requester = &requester

	s.metrics.RecordRequestSubmitted()
	s.log.Info("collaboration request submitted",
		zap.String("request_id", req.ID),
		zap.String("listing_id", listing.ID),
		zap.String("identity_id", session.IdentityID),
	)
	return req, nil
}

// ListInbox 聚合会话身份的收件箱。
// 两条查询路径（作为请求者、作为发布所有者）并发执行，按请求 ID 合并去重，
// 再按请求者划分为 sent 与 received，各自按创建时间倒序。任一路径为空不是错误。
func (s *RequestService) ListInbox(ctx context.Context, session *domain.Session) (*domain.Inbox, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.RecordInboxFetch(time.Since(start)) }()

	var asRequester, asOwner []domain.CollaborationRequest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asRequester, err = s.store.ListRequestsByRequester(gctx, session.IdentityID)
		return err
	})
	g.Go(func() error {
		var err error
		asOwner, err = s.store.ListRequestsByListingOwner(gctx, session.IdentityID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("inbox fetch failed", zap.String("identity_id", session.IdentityID), zap.Error(err))
		return nil, storeFailure("list inbox", err, domain.KindStoreUnavailable)
	}

	merged := mergeRequests(asRequester, asOwner)

	inbox := &domain.Inbox{
		Sent:     make([]domain.CollaborationRequest, 0),
		Received: make([]domain.CollaborationRequest, 0),
	}
	for _, req := range merged {
		if req.RequesterID == session.IdentityID {
			inbox.Sent = append(inbox.Sent, req)
		} else {
			inbox.Received = append(inbox.Received, req)
		}
	}
	sortNewestFirst(inbox.Sent)
	sortNewestFirst(inbox.Received)
	return inbox, nil
}

// mergeRequests 按请求 ID 求并集，保留首次出现的顺序。
// 同一请求在两条路径上的关联字段可能不同，缺失的关联从另一份补齐。
func mergeRequests(paths ...[]domain.CollaborationRequest) []domain.CollaborationRequest {
	index := make(map[string]int)
	merged := make([]domain.CollaborationRequest, 0)
	for _, path := range paths {
		for _, req := range path {
			pos, seen := index[req.ID]
			if !seen {
				index[req.ID] = len(merged)
				merged = append(merged, req)
				continue
			}
			existing := &merged[pos]
			if existing.Listing == nil {
				existing.Listing = req.Listing
			}
			if existing.Requester == nil {
				existing.Requester = req.Requester
			}
		}
	}
	return merged
}

func sortNewestFirst(reqs []domain.CollaborationRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

// UpdateStatus 由发布所有者变更请求状态，只允许 pending -> accepted | declined。
// 状态更新是存储层的条件更新，并发重复处理时只有一次成功，其余返回 InvalidTransition。
func (s *RequestService) UpdateStatus(ctx context.Context, session *domain.Session, requestID string, status domain.RequestStatus) (*domain.CollaborationRequest, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.Validationf("unknown status %q", status)
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeFailure("get request", err, domain.KindNotFound)
	}

	listing := req.Listing
	if listing == nil {
		if listing, err = s.store.GetListing(ctx, req.ListingID); err != nil {
			return nil, storeFailure("get listing", err, domain.KindNotFound)
		}
	}
	if !listing.IsOwnedBy(session.IdentityID) {
		return nil, domain.NewError(domain.KindUnauthorized, "only the listing owner can change request status", nil)
	}
	if !req.Status.CanTransitionTo(status) {
		return nil, domain.NewError(domain.KindInvalidTransition,
			"cannot move request from "+string(req.Status)+" to "+string(status), nil)
	}

	updated, err := s.store.UpdateRequestStatus(ctx, requestID, req.Status, status, s.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, domain.NewError(domain.KindInvalidTransition, "request is no longer pending", err)
		}
		s.log.Error("failed to update request status",
			zap.String("request_id", requestID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, storeFailure("update request status", err, domain.KindNotFound)
	}
	if updated.Listing == nil {
		updated.Listing = listing
	}
	if updated.Requester == nil {
		updated.Requester = req.Requester
	}

	s.metrics.RecordRequestTransition(string(status))
	s.log.Info("request status changed",
		zap.String("request_id", requestID),
		zap.String("identity_id", session.IdentityID),
		zap.String("status", string(status)),
	)
	return updated, nil
}

// Accept 接受请求
func (s *RequestService) Accept(ctx context.Context, session *domain.Session, requestID string) (*domain.CollaborationRequest, error) {
	return s.UpdateStatus(ctx, session, requestID, domain.RequestAccepted)
}

// Decline 拒绝请求
func (s *RequestService) Decline(ctx context.Context, session *domain.Session, requestID string) (*domain.CollaborationRequest, error) {
	return s.UpdateStatus(ctx, session, requestID, domain.RequestDeclined)
}
