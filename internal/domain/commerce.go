package domain

// CartItem is one line of the signed-in user's cart.
type CartItem struct {
	ID       string   `json:"_id"`
	Product  *Product `json:"product,omitempty"`
	Quantity int      `json:"quantity"`
}

// CartCount is the payload of GET /cart/count.
type CartCount struct {
	Count int `json:"count"`
}

// AddToCartInput is the payload for POST /cart.
type AddToCartInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateQuantityInput is the payload for POST /cart/update-quantity.
type UpdateQuantityInput struct {
	CartItemID string `json:"cartItemId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// AdminCart is one row of the admin cart listing.
type AdminCart struct {
	ID    string     `json:"_id"`
	User  *User      `json:"user,omitempty"`
	Items []CartItem `json:"items"`
}

// WishlistItem is one product saved to the signed-in user's wishlist.
type WishlistItem struct {
	ID      string   `json:"_id"`
	Product *Product `json:"product,omitempty"`
}

// AddToWishlistInput is the payload for POST /wishlist.
type AddToWishlistInput struct {
	ProductID string `json:"productId" validate:"required"`
}

// Address is a saved shipping address.
type Address struct {
	ID         string `json:"_id"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

// AddressInput is the payload for creating or updating an address.
type AddressInput struct {
	FullName   string `json:"fullName" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required,max=16"`
	Country    string `json:"country" validate:"required"`
	IsDefault  bool   `json:"isDefault"`
}
