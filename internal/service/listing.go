package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/monitoring"
	"secrethobby/backend/internal/storage"
)

// ListingService 封装发布的创建、查询与可见性计算。
type ListingService struct {
	repo    storage.ListingRepository
	metrics *monitoring.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewListingService 创建发布业务服务。
func NewListingService(repo storage.ListingRepository, metrics *monitoring.Metrics, log *zap.Logger) *ListingService {
	return &ListingService{
		repo:    repo,
		metrics: metrics,
		log:     logger.OrNop(log),
		now:     time.Now,
	}
}

// Create 以会话身份创建发布
func (s *ListingService) Create(ctx context.Context, session *domain.Session, input domain.ListingInput) (*domain.Listing, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	normalized, err := input.Normalize()
	if err != nil {
		return nil, err
	}

	owner := session.Identity()
	listing := &domain.Listing{
		ID:          uuid.NewString(),
		OwnerID:     session.IdentityID,
		Title:       normalized.Title,
		Description: normalized.Description,
		Tags:        domain.Tags(normalized.Tags),
		MysteryMode: normalized.MysteryMode,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		// 外键失败说明会话指向的身份已不存在
		s.log.Error("failed to create listing", zap.String("identity_id", session.IdentityID), zap.Error(err))
		return nil, storeFailure("create listing", err, domain.KindAuthenticationFailed)
	}
	listing.Owner = &owner

	s.metrics.RecordListingCreated()
	s.log.Info("listing created",
		zap.String("listing_id", listing.ID),
		zap.String("identity_id", listing.OwnerID),
		zap.Bool("mystery_mode", listing.MysteryMode),
	)
	return listing, nil
}

// Get 获取原始发布（不做可见性处理，仅供内部与所有者使用）
func (s *ListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, storeFailure("get listing", err, domain.KindNotFound)
	}
	return listing, nil
}

// List 返回全部发布，按创建时间倒序
func (s *ListingService) List(ctx context.Context) ([]domain.Listing, error) {
	listings, err := s.repo.ListListings(ctx)
	if err != nil {
		return nil, storeFailure("list listings", err, domain.KindNotFound)
	}
	return listings, nil
}

// ListByOwner 返回某个身份的全部发布
func (s *ListingService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	listings, err := s.repo.ListListingsByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeFailure("list owner listings", err, domain.KindNotFound)
	}
	return listings, nil
}

// SetMysteryMode 切换神秘模式，仅所有者可操作
func (s *ListingService) SetMysteryMode(ctx context.Context, session *domain.Session, listingID string, on bool) (*domain.Listing, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	listing, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsOwnedBy(session.IdentityID) {
		return nil, domain.NewError(domain.KindUnauthorized, "only the owner can change mystery mode", nil)
	}
	if listing.MysteryMode == on {
		return listing, nil
	}

	if err := s.repo.SetMysteryMode(ctx, listingID, on); err != nil {
		return nil, storeFailure("set mystery mode", err, domain.KindNotFound)
	}
	listing.MysteryMode = on

	s.log.Info("mystery mode changed",
		zap.String("listing_id", listingID),
		zap.Bool("mystery_mode", on),
	)
	return listing, nil
}

// View 返回 viewer 看到的单条发布，viewer 为 nil 表示匿名
func (s *ListingService) View(ctx context.Context, listingID string, viewer *domain.Identity, revealed bool) (*domain.ListingView, error) {
	listing, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	view := ComputeView(listing, viewer, revealed)
	return &view, nil
}

// BrowseFilter 浏览条件，只作用于查看者实际看到的内容
type BrowseFilter struct {
	Query string // 标题或描述包含该文本，大小写不敏感
	Tag   string // 含有该标签，按标签规则规范化后比较
}

// BrowseResult 浏览结果
type BrowseResult struct {
	Listings []domain.ListingView
	Tags     []string // 查看者可见的全部标签，去重并排序；不受过滤条件影响
}

// Browse 返回全部发布的视图，revealed 为查看者已揭开的发布集合。
// 搜索与标签过滤针对计算后的视图进行，被遮蔽的发布不会因隐藏内容被命中。
func (s *ListingService) Browse(ctx context.Context, viewer *domain.Identity, revealed RevealSet, filter BrowseFilter) (*BrowseResult, error) {
	listings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	tag := domain.NormalizeTag(filter.Tag)

	result := &BrowseResult{
		Listings: make([]domain.ListingView, 0, len(listings)),
		Tags:     []string{},
	}
	catalog := make(map[string]struct{})
	for i := range listings {
		view := ComputeView(&listings[i], viewer, revealed.Revealed(listings[i].ID))
		if !view.Obscured {
			for _, t := range view.Tags {
				catalog[t] = struct{}{}
			}
		}
		if matchesQuery(view, query) && matchesTag(view, tag) {
			result.Listings = append(result.Listings, view)
		}
	}

	for t := range catalog {
		result.Tags = append(result.Tags, t)
	}
	sort.Strings(result.Tags)
	return result, nil
}

func matchesQuery(view domain.ListingView, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(view.Title), query) ||
		strings.Contains(strings.ToLower(view.Description), query)
}

// 遮蔽视图只有占位标签，不参与标签过滤
func matchesTag(view domain.ListingView, tag string) bool {
	if tag == "" {
		return true
	}
	if view.Obscured {
		return false
	}
	for _, t := range view.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
