package httptransport

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/middleware"
	"secrethobby/backend/internal/service"
)

// ListingHandler 处理发布相关请求
type ListingHandler struct {
	listings *service.ListingService
	log      *zap.Logger
}

// NewListingHandler 创建发布处理器
func NewListingHandler(listings *service.ListingService, log *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		log:      logger.OrNop(log),
	}
}

type createListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	TagsRaw     string   `json:"tagsRaw"` // 逗号分隔，与 tags 二选一
	MysteryMode bool     `json:"mysteryMode"`
}

type mysteryModeRequest struct {
	MysteryMode *bool `json:"mysteryMode" binding:"required"`
}

// Create 创建发布
func (h *ListingHandler) Create(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	tags := req.Tags
	if len(tags) == 0 {
		tags = domain.SplitTags(req.TagsRaw)
	}

	listing, err := h.listings.Create(c.Request.Context(), session, domain.ListingInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        tags,
		MysteryMode: req.MysteryMode,
	})
	if err != nil {
		respondError(c, h.log, "create listing", err)
		return
	}

	viewer := session.Identity()
	Created(c, service.ComputeView(listing, &viewer, false))
}

// List 浏览全部发布。
// ?revealed=id1,id2 为查看者已揭开的发布，?q= 按标题或描述搜索，?tag= 按单个标签过滤
func (h *ListingHandler) List(c *gin.Context) {
	result, err := h.listings.Browse(c.Request.Context(), viewerOf(c), revealSetOf(c), service.BrowseFilter{
		Query: c.Query("q"),
		Tag:   c.Query("tag"),
	})
	if err != nil {
		respondError(c, h.log, "list listings", err)
		return
	}
	Success(c, gin.H{
		"listings": result.Listings,
		"total":    len(result.Listings),
		"tags":     result.Tags,
	})
}

// Mine 返回当前身份自己的发布（所有者始终看到完整内容）
func (h *ListingHandler) Mine(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	listings, err := h.listings.ListByOwner(c.Request.Context(), session.IdentityID)
	if err != nil {
		respondError(c, h.log, "list own listings", err)
		return
	}

	viewer := session.Identity()
	views := make([]domain.ListingView, 0, len(listings))
	for i := range listings {
		views = append(views, service.ComputeView(&listings[i], &viewer, false))
	}
	Success(c, gin.H{"listings": views, "total": len(views)})
}

// Get 查看单条发布。?reveal=true 表示查看者已手动揭开
func (h *ListingHandler) Get(c *gin.Context) {
	revealed, _ := strconv.ParseBool(c.Query("reveal"))
	view, err := h.listings.View(c.Request.Context(), c.Param("id"), viewerOf(c), revealed)
	if err != nil {
		respondError(c, h.log, "get listing", err)
		return
	}
	Success(c, view)
}

// SetMysteryMode 切换神秘模式
func (h *ListingHandler) SetMysteryMode(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req mysteryModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	listing, err := h.listings.SetMysteryMode(c.Request.Context(), session, c.Param("id"), *req.MysteryMode)
	if err != nil {
		respondError(c, h.log, "set mystery mode", err)
		return
	}

	viewer := session.Identity()
	Success(c, service.ComputeView(listing, &viewer, false))
}

// viewerOf 返回当前查看者，匿名访问返回 nil
func viewerOf(c *gin.Context) *domain.Identity {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		return nil
	}
	identity := session.Identity()
	return &identity
}

func revealSetOf(c *gin.Context) service.RevealSet {
	raw := c.Query("revealed")
	if raw == "" {
		return nil
	}
	return service.NewRevealSet(strings.Split(raw, ",")...)
}
