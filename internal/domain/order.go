package domain

// Side indicates whether an order or fill is a buy or a sell.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	// OrderStatusPending marks an order that has been created but not yet
	// quoted to the market (grid paired sells start here and are promoted on
	// the next quote generation pass).
	OrderStatusPending OrderStatus = "pending"

	OrderStatusActive    OrderStatus = "active"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a resting limit order tracked by a strategy or by the simulated
// exchange. Orders are identified by a stable ID; price is an attribute, not
// an identity, so duplicate-price situations stay representable.
type Order struct {
	ID     string      `json:"id"`
	Side   Side        `json:"side"`
	Price  float64     `json:"price"`
	Size   float64     `json:"size"`
	Status OrderStatus `json:"status"`
}

// Live reports whether the order still occupies a price level (pending or
// active, i.e. not yet executed or cancelled).
func (o Order) Live() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusActive
}
