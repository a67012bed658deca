package domain

// OrderRegistry tracks resting orders keyed by their stable ID while
// preserving insertion order, which is the scan order the matching engine
// relies on. It is not safe for concurrent use; a backtest run is
// single-threaded by design.
type OrderRegistry struct {
	orders map[string]*Order
	seq    []string
}

// NewOrderRegistry returns an empty registry.
func NewOrderRegistry() *OrderRegistry {
	return &OrderRegistry{orders: make(map[string]*Order)}
}

// Add inserts an order. It returns ErrAlreadyExists when the ID is taken.
func (r *OrderRegistry) Add(o Order) error {
	if _, ok := r.orders[o.ID]; ok {
		return ErrAlreadyExists
	}
	cp := o
	r.orders[o.ID] = &cp
	r.seq = append(r.seq, o.ID)
	return nil
}

// Get returns the order with the given ID, or ErrNotFound.
func (r *OrderRegistry) Get(id string) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

// SetStatus updates the status of the order with the given ID.
func (r *OrderRegistry) SetStatus(id string, status OrderStatus) error {
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

// Remove deletes the order with the given ID from the registry entirely.
func (r *OrderRegistry) Remove(id string) error {
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	for i, sid := range r.seq {
		if sid == id {
			r.seq = append(r.seq[:i], r.seq[i+1:]...)
			break
		}
	}
	return nil
}

// Live returns all pending or active orders on the given side, in insertion
// order. A zero Side returns live orders on both sides.
func (r *OrderRegistry) Live(side Side) []Order {
	var out []Order
	for _, id := range r.seq {
		o := r.orders[id]
		if !o.Live() {
			continue
		}
		if side != "" && o.Side != side {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// LiveCount returns the number of pending or active orders on the given side.
func (r *OrderRegistry) LiveCount(side Side) int {
	n := 0
	for _, o := range r.orders {
		if o.Live() && (side == "" || o.Side == side) {
			n++
		}
	}
	return n
}

// FindLiveByPrice returns the first live order on the given side whose price
// equals price, in insertion order. The boolean reports whether one was found.
func (r *OrderRegistry) FindLiveByPrice(side Side, price float64) (Order, bool) {
	for _, id := range r.seq {
		o := r.orders[id]
		if o.Live() && o.Side == side && o.Price == price {
			return *o, true
		}
	}
	return Order{}, false
}

// PriceOccupied reports whether any live order on either side rests at the
// given price. Used to reject colliding paired-sell placements.
func (r *OrderRegistry) PriceOccupied(price float64) bool {
	for _, o := range r.orders {
		if o.Live() && o.Price == price {
			return true
		}
	}
	return false
}

// Promote flips every pending order on the given side to active and returns
// the number promoted.
func (r *OrderRegistry) Promote(side Side) int {
	n := 0
	for _, id := range r.seq {
		o := r.orders[id]
		if o.Status == OrderStatusPending && o.Side == side {
			o.Status = OrderStatusActive
			n++
		}
	}
	return n
}
