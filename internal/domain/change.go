package domain

// CartUpdatedEvent is the name components listen on.
const CartUpdatedEvent = "cartUpdated"

type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
	ActionClear  Action = "clear"
)

// CartChange is the advisory payload of a cartUpdated broadcast. Receivers
// must re-fetch the cart instead of applying it.
type CartChange struct {
	ProductID string   `json:"productId,omitempty"`
	Category  Category `json:"category,omitempty"`
	Action    Action   `json:"action"`
	// Source names the component that published the change.
	Source string `json:"source,omitempty"`
}
