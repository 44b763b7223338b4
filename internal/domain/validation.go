package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// 验证常量
const (
	MaxAliasLength       = 64
	MaxTitleLength       = 120
	MaxDescriptionLength = 4000
	MaxTagLength         = 32
	MaxTags              = 16
	MaxOfferLength       = 2000
	MaxMessageLength     = 2000
)

// NormalizeAlias 去除首尾空白并做大小写折叠，"Fox" 与 " fox " 视为同一别名
func NormalizeAlias(alias string) string {
	return cases.Fold().String(strings.TrimSpace(alias))
}

// ValidateAlias 校验并返回规范化后的别名
func ValidateAlias(alias string) (string, error) {
	normalized := NormalizeAlias(alias)
	if normalized == "" {
		return "", Validationf("alias is required")
	}
	if utf8.RuneCountInString(normalized) > MaxAliasLength {
		return "", Validationf("alias too long (max %d chars)", MaxAliasLength)
	}
	for _, r := range normalized {
		if unicode.IsControl(r) {
			return "", Validationf("alias contains control characters")
		}
	}
	return normalized, nil
}

// ListingInput 创建发布的输入
type ListingInput struct {
	Title       string
	Description string
	Tags        []string
	MysteryMode bool
}

// Normalize 校验并规范化发布输入：标题必填，标签去空白、去空、去重（保留顺序）
func (in ListingInput) Normalize() (ListingInput, error) {
	out := ListingInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		MysteryMode: in.MysteryMode,
	}
	if out.Title == "" {
		return ListingInput{}, Validationf("title is required")
	}
	if utf8.RuneCountInString(out.Title) > MaxTitleLength {
		return ListingInput{}, Validationf("title too long (max %d chars)", MaxTitleLength)
	}
	if out.Description == "" {
		return ListingInput{}, Validationf("description is required")
	}
	if utf8.RuneCountInString(out.Description) > MaxDescriptionLength {
		return ListingInput{}, Validationf("description too long (max %d chars)", MaxDescriptionLength)
	}

	tags, err := NormalizeTags(in.Tags)
	if err != nil {
		return ListingInput{}, err
	}
	out.Tags = tags
	return out, nil
}

// NormalizeTag 规范化单个标签：去除空白、转为小写并去掉开头的 '#'
func NormalizeTag(tag string) string {
	tag = cases.Lower(language.Und).String(strings.TrimSpace(tag))
	return strings.TrimSpace(strings.TrimPrefix(tag, "#"))
}

// NormalizeTags 逐个规范化标签，丢弃空标签，按首次出现顺序去重。
// "#Knitting"、"knitting" 与 "KNITTING" 视为同一标签。
func NormalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = NormalizeTag(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, Validationf("tag %q too long (max %d chars)", tag, MaxTagLength)
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, Validationf("too many tags (max %d)", MaxTags)
	}
	return out, nil
}

// SplitTags 解析逗号分隔的标签字符串
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ValidateOffer 校验协作请求的报价与附言，返回去除首尾空白后的值
func ValidateOffer(offer, message string) (string, string, error) {
	offer = strings.TrimSpace(offer)
	message = strings.TrimSpace(message)
	if offer == "" {
		return "", "", Validationf("offer is required")
	}
	if utf8.RuneCountInString(offer) > MaxOfferLength {
		return "", "", Validationf("offer too long (max %d chars)", MaxOfferLength)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", "", Validationf("message too long (max %d chars)", MaxMessageLength)
	}
	return offer, message, nil
}
