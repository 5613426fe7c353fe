package usecase

import (
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// Action is a capability checked against an order.
type Action string

const (
	ActionView    Action = "view"
	ActionAdvance Action = "advance"
	ActionCancel  Action = "cancel"
	ActionRefund  Action = "refund"
)

// Authorize is the single authorization predicate consulted by every order
// entry point. Admins may do anything; sellers act on orders containing their
// products; buyers act on their own orders.
func Authorize(p model.Principal, action Action, order *model.Order) error {
	if p.Role == model.RoleAdmin {
		return nil
	}

	switch action {
	case ActionView:
		if order.BuyerID == p.UserID || order.HasSeller(p.UserID) {
			return nil
		}
	case ActionAdvance, ActionRefund:
		if p.Role == model.RoleSeller && order.HasSeller(p.UserID) {
			return nil
		}
	case ActionCancel:
		if order.BuyerID == p.UserID {
			return nil
		}
	}

	return domainErrors.ErrForbidden
}
