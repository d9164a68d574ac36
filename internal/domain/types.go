package domain

import "time"

// Product is a purchasable catalog entry sourced from the commerce backend.
type Product struct {
	ID          string
	Title       string
	Handle      string
	Description string
	Price       int64
	Currency    string
	ImageURL    string
	InStock     bool
	Inventory   int
	Variants    []Variant
	Metadata    map[string]any
}

// Variant is a concrete purchasable variation of a product.
type Variant struct {
	ID                string
	Title             string
	SKU               string
	Price             int64
	InventoryQuantity int
}

// LineItem stores a single product entry within the cart.
type LineItem struct {
	ID        string
	ProductID string
	VariantID string
	SKU       string
	Title     string
	Quantity  int
	UnitPrice int64
	Currency  string
	ImageURL  string
	AddedAt   time.Time
	UpdatedAt *time.Time
}

// Cart aggregates the mutable shopping cart state for a session.
type Cart struct {
	ID        string
	SessionID string
	Currency  string
	Items     []LineItem
	Estimate  *PricingBreakdown
	UpdatedAt time.Time
	CreatedAt time.Time
}

// OrderStatus is the raw lifecycle state reported by the commerce backend.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment or confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates payment succeeded and fulfilment is underway.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusPaid indicates payment has been captured.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCompleted indicates the order has been fulfilled.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusOnHold indicates the order is paused pending manual action.
	OrderStatusOnHold OrderStatus = "on hold"
	// OrderStatusRefunded indicates the payment has been returned.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusCancelled indicates the order was cancelled before fulfilment.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order captures an order header returned by the commerce backend. The
// storefront only reads orders; the single write path is checkout submission.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerEmail   string
	Status          OrderStatus
	Currency        string
	Total           int64
	Items           []OrderItem
	ShippingAddress *Address
	CreatedAt       time.Time
}

// OrderItem mirrors a cart line at the time the order was placed.
type OrderItem struct {
	ID        string
	ProductID string
	Title     string
	Quantity  int
	UnitPrice int64
}

// Address is a postal address collected at checkout.
type Address struct {
	FirstName   string
	LastName    string
	Line1       string
	Line2       string
	City        string
	PostalCode  string
	CountryCode string
	Phone       string
}

// ContactMessage is a sanitised message submitted through the contact page.
type ContactMessage struct {
	ID         string
	Name       string
	Email      string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// KPISnapshot rolls up merchant dashboard figures from catalog and orders.
type KPISnapshot struct {
	TotalInventory int
	TotalOrders    int
	TotalSales     int64
	Currency       string
	RecentOrders   []Order
	StatusCounts   map[StatusClass]int
	GeneratedAt    time.Time
}
