// Package policy は商品・レビューの変更可否を決める。
// ストレージに触れない純粋関数だけを置く。
package policy

import "marketplace/internal/domain/model"

type Action string

const (
	ActionCreateProduct Action = "create_product"
	ActionUpdateProduct Action = "update_product"
	ActionDeleteProduct Action = "delete_product"
	ActionCreateReview  Action = "create_review"
	ActionDeleteReview  Action = "delete_review"
)

// 拒否理由。境界で401/403の選択に使う
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonRoleNotPermitted Reason = "role not permitted"
	ReasonNotOwner         Reason = "not owner"
	ReasonUnknownAction    Reason = "unknown action"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// ロールだけで判定する。所有者が分かる前（DBを読む前）に使う
func Precheck(p *model.Principal, a Action) Decision {
	if p == nil || !p.Active || !p.Role.Valid() {
		return deny(ReasonUnauthenticated)
	}

	switch a {
	case ActionCreateProduct, ActionUpdateProduct, ActionDeleteProduct:
		if p.Role != model.RoleSeller {
			return deny(ReasonRoleNotPermitted)
		}
		return allow()
	case ActionCreateReview, ActionDeleteReview:
		return allow()
	default:
		return deny(ReasonUnknownAction)
	}
}

// 所有者IDまで含めて判定する。
// ownerIDは商品ならseller_id、レビューなら投稿者のuser_id
func Decide(p *model.Principal, a Action, ownerID int64) Decision {
	d := Precheck(p, a)
	if !d.Allowed {
		return d
	}

	switch a {
	case ActionUpdateProduct, ActionDeleteProduct:
		if p.UserID != ownerID {
			return deny(ReasonNotOwner)
		}
	case ActionDeleteReview:
		if p.Role != model.RoleAdmin && p.UserID != ownerID {
			return deny(ReasonNotOwner)
		}
	}
	return allow()
}
