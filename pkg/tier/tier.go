// Package tier 账户等级与能力判定。
// 纯函数实现，不依赖请求上下文，便于在中间件和服务层重复校验。
package tier

import (
	"fmt"

	"tiered_social/pkg/apperr"
)

// Tier 账户等级，严格有序：anonymous < user < plus < pro
type Tier string

const (
	Anonymous Tier = "anon"
	User      Tier = "user"
	Plus      Tier = "plus"
	Pro       Tier = "pro"
)

// Capability 可被等级控制的操作
type Capability string

const (
	CanPost    Capability = "post"
	CanReact   Capability = "react"
	CanComment Capability = "comment"
	CanChat    Capability = "chat"
	CanFollow  Capability = "follow"
	CanView    Capability = "view"
)

var ordinals = map[Tier]int{
	Anonymous: 0,
	User:      1,
	Plus:      2,
	Pro:       3,
}

// 每项能力所需的最低等级
var minimum = map[Capability]Tier{
	CanPost:    User,
	CanReact:   Plus,
	CanComment: Pro,
	CanChat:    User,
	CanFollow:  User,
	CanView:    User,
}

// All 按顺序返回所有等级
func All() []Tier {
	return []Tier{Anonymous, User, Plus, Pro}
}

// Valid 是否为已知等级
func (t Tier) Valid() bool {
	_, ok := ordinals[t]
	return ok
}

// Ordinal 等级序号，未知等级按 anonymous 处理
func (t Tier) Ordinal() int {
	return ordinals[t]
}

// AtLeast t >= other
func (t Tier) AtLeast(other Tier) bool {
	return t.Ordinal() >= other.Ordinal()
}

// Label 展示名称
func (t Tier) Label() string {
	switch t {
	case Anonymous:
		return "Anonymous"
	case User:
		return "User"
	case Plus:
		return "Plus"
	case Pro:
		return "Pro"
	}
	return string(t)
}

// Parse 解析等级字符串，接受 "anonymous" 作为 "anon" 的别名
func Parse(s string) (Tier, error) {
	if s == "anonymous" {
		return Anonymous, nil
	}
	t := Tier(s)
	if !t.Valid() {
		return "", apperr.InvalidInput(fmt.Sprintf("unknown tier %q", s))
	}
	return t, nil
}

// Can 判断等级是否具备某项能力
func Can(t Tier, c Capability) bool {
	need, ok := minimum[c]
	if !ok || !t.Valid() {
		return false
	}
	return t.AtLeast(need)
}

// Check 与 Can 相同，但失败时返回 Forbidden 错误
func Check(t Tier, c Capability) error {
	if Can(t, c) {
		return nil
	}
	return apperr.Forbidden(fmt.Sprintf("tier %s cannot %s", t.Label(), c))
}

// Capabilities 返回等级拥有的全部能力
func Capabilities(t Tier) []Capability {
	caps := make([]Capability, 0, len(minimum))
	for _, c := range []Capability{CanPost, CanReact, CanComment, CanChat, CanFollow, CanView} {
		if Can(t, c) {
			caps = append(caps, c)
		}
	}
	return caps
}
