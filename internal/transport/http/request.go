package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/middleware"
	"secrethobby/backend/internal/service"
)

// RequestHandler 处理协作请求
type RequestHandler struct {
	requests *service.RequestService
	log      *zap.Logger
}

// NewRequestHandler 创建协作请求处理器
func NewRequestHandler(requests *service.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		log:      logger.OrNop(log),
	}
}

type submitRequest struct {
	Offer   string `json:"offer"`
	Message string `json:"message"`
}

// requestResponse 协作请求响应，发布内容按查看者可见性处理
type requestResponse struct {
	ID               string               `json:"id"`
	ListingID        string               `json:"listingId"`
	RequesterID      string               `json:"requesterId"`
	RequesterAlias   string               `json:"requesterAlias"`
	OfferDescription string               `json:"offerDescription"`
	Message          string               `json:"message,omitempty"`
	Status           domain.RequestStatus `json:"status"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
	Listing          *domain.ListingView  `json:"listing,omitempty"`
}

type inboxResponse struct {
	Sent     []requestResponse `json:"sent"`
	Received []requestResponse `json:"received"`
}

func newRequestResponse(req *domain.CollaborationRequest, viewer *domain.Identity, revealed service.RevealSet) requestResponse {
	resp := requestResponse{
		ID:               req.ID,
		ListingID:        req.ListingID,
		RequesterID:      req.RequesterID,
		RequesterAlias:   req.RequesterAlias(),
		OfferDescription: req.OfferDescription,
		Message:          req.Message,
		Status:           req.Status,
		CreatedAt:        req.CreatedAt,
		UpdatedAt:        req.UpdatedAt,
	}
	if req.Listing != nil {
		view := service.ComputeView(req.Listing, viewer, revealed.Revealed(req.ListingID))
		resp.Listing = &view
	}
	return resp
}

func newRequestResponses(reqs []domain.CollaborationRequest, viewer *domain.Identity, revealed service.RevealSet) []requestResponse {
	out := make([]requestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, newRequestResponse(&reqs[i], viewer, revealed))
	}
	return out
}

// Submit 对发布提交协作请求
func (h *RequestHandler) Submit(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	created, err := h.requests.Submit(c.Request.Context(), session, c.Param("id"), req.Offer, req.Message)
	if err != nil {
		respondError(c, h.log, "submit request", err)
		return
	}

	viewer := session.Identity()
	Created(c, newRequestResponse(created, &viewer, revealSetOf(c)))
}

// Inbox 返回当前身份的收件箱
func (h *RequestHandler) Inbox(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	inbox, err := h.requests.ListInbox(c.Request.Context(), session)
	if err != nil {
		respondError(c, h.log, "list inbox", err)
		return
	}

	viewer := session.Identity()
	revealed := revealSetOf(c)
	Success(c, inboxResponse{
		Sent:     newRequestResponses(inbox.Sent, &viewer, revealed),
		Received: newRequestResponses(inbox.Received, &viewer, revealed),
	})
}

// Accept 接受请求
func (h *RequestHandler) Accept(c *gin.Context) {
	h.transition(c, domain.RequestAccepted)
}

// Decline 拒绝请求
func (h *RequestHandler) Decline(c *gin.Context) {
	h.transition(c, domain.RequestDeclined)
}

func (h *RequestHandler) transition(c *gin.Context, status domain.RequestStatus) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	updated, err := h.requests.UpdateStatus(c.Request.Context(), session, c.Param("id"), status)
	if err != nil {
		respondError(c, h.log, "update request status", err)
		return
	}

	viewer := session.Identity()
	Success(c, newRequestResponse(updated, &viewer, nil))
}
