package service

import (
	"strings"

	"secrethobby/backend/internal/domain"
)

const previewEllipsis = "..."

// RevealSet 查看者在本次会话中手动揭开的发布 ID。
// 只存在于调用方（客户端）一侧，不持久化，也不会修改发布本身。
type RevealSet map[string]bool

// NewRevealSet 由发布 ID 列表构造
func NewRevealSet(ids ...string) RevealSet {
	set := make(RevealSet, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = true
		}
	}
	return set
}

// Revealed 判断某条发布是否已揭开，nil 集合视为全部未揭开
func (r RevealSet) Revealed(listingID string) bool {
	return r[listingID]
}

// ComputeView 计算某个查看者看到的发布内容，纯函数。
// viewer 为 nil 表示匿名访问；所有者始终看到完整内容。
func ComputeView(listing *domain.Listing, viewer *domain.Identity, revealed bool) domain.ListingView {
	isOwner := viewer != nil && listing.IsOwnedBy(viewer.ID)
	obscure := listing.MysteryMode && !isOwner && !revealed

	view := domain.ListingView{
		ListingID:   listing.ID,
		OwnerID:     listing.OwnerID,
		MysteryMode: listing.MysteryMode,
		Obscured:    obscure,
		IsOwner:     isOwner,
		CreatedAt:   listing.CreatedAt,
	}
	if listing.Owner != nil {
		view.OwnerAlias = listing.Owner.Alias
	}

	if !obscure {
		view.Title = listing.Title
		view.Description = listing.Description
		view.Tags = append([]string{}, listing.Tags...)
		return view
	}

	view.Title = domain.MysteryTitle
	view.Description = Preview(listing.Description)
	view.Tags = MaskTags(len(listing.Tags))
	return view
}

// Preview 截取第一个 '.' 之前的文本，只要出现过 '.' 就追加省略号。
// 没有 '.' 时返回全文，空文本返回空串。
func Preview(text string) string {
	head, _, found := strings.Cut(text, ".")
	if !found {
		return text
	}
	return head + previewEllipsis
}

// MaskTags 返回 n 个占位标签，只暴露数量
func MaskTags(n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = domain.MysteryTag
	}
	return tags
}
