package domain

type CartItem struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"qty"`
}

// CartLine is a cart entry populated with its product for responses.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"qty"`
}

// MergeCarts folds a guest cart into the server cart: the server order is kept,
// quantities of products present in both are added, and new products are
// appended in guest order. Neither input is modified. Entries with a
// non-positive quantity or no product are ignored.
func MergeCarts(server, guest []CartItem) []CartItem {
	merged := make([]CartItem, 0, len(server)+len(guest))
	index := make(map[string]int, len(server)+len(guest))
	for _, items := range [][]CartItem{server, guest} {
		for _, item := range items {
			if item.ProductID == "" || item.Quantity < 1 {
				continue
			}
			if i, ok := index[item.ProductID]; ok {
				merged[i].Quantity += item.Quantity
				continue
			}
			index[item.ProductID] = len(merged)
			merged = append(merged, item)
		}
	}
	return merged
}

// AddToCart increments the quantity of an existing entry or appends a new one.
func AddToCart(cart []CartItem, productID string, qty int) ([]CartItem, error) {
	if productID == "" {
		return nil, Validation("Product is required")
	}
	if qty < 1 {
		return nil, Validation("Quantity must be at least 1")
	}
	out := make([]CartItem, len(cart), len(cart)+1)
	copy(out, cart)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity += qty
			return out, nil
		}
	}
	return append(out, CartItem{ProductID: productID, Quantity: qty}), nil
}

// SetCartQuantity sets an entry's quantity; zero or below removes the entry.
func SetCartQuantity(cart []CartItem, productID string, qty int) ([]CartItem, error) {
	if qty <= 0 {
		out, removed := removeCartItem(cart, productID)
		if !removed {
			return nil, NotFound("Item not found in cart")
		}
		return out, nil
	}
	out := make([]CartItem, len(cart))
	copy(out, cart)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = qty
			return out, nil
		}
	}
	return nil, NotFound("Item not found in cart")
}

func RemoveFromCart(cart []CartItem, productID string) ([]CartItem, error) {
	out, removed := removeCartItem(cart, productID)
	if !removed {
		return nil, NotFound("Item not found in cart")
	}
	return out, nil
}

func removeCartItem(cart []CartItem, productID string) ([]CartItem, bool) {
	out := make([]CartItem, 0, len(cart))
	removed := false
	for _, item := range cart {
		if item.ProductID == productID {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out, removed
}

// AddToWishlist appends productID unless it is already present.
func AddToWishlist(wishlist []string, productID string) ([]string, bool) {
	for _, id := range wishlist {
		if id == productID {
			return wishlist, false
		}
	}
	out := make([]string, len(wishlist), len(wishlist)+1)
	copy(out, wishlist)
	return append(out, productID), true
}

func RemoveFromWishlist(wishlist []string, productID string) ([]string, bool) {
	out := make([]string, 0, len(wishlist))
	removed := false
	for _, id := range wishlist {
		if id == productID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	return out, removed
}
