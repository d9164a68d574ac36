package delivery

import (
	"context"
	"errors"
	"strings"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/services"
)

// defaultParcelWeightKg is assumed when the catalog carries no weight data.
const defaultParcelWeightKg = 1.0

// Booker adapts the courier Client to the checkout flow, attaching the
// configured warehouse origin to every job.
type Booker struct {
	client *Client
	origin Location
}

// NewBooker constructs a Booker for the given origin location.
func NewBooker(client *Client, origin Location) (*Booker, error) {
	if client == nil {
		return nil, errors.New("delivery: client is required")
	}
	return &Booker{client: client, origin: origin}, nil
}

// Enabled reports whether courier booking is available.
func (b *Booker) Enabled() bool {
	return b.client.Enabled()
}

// CreateJob books a courier job for a submitted order.
func (b *Booker) CreateJob(ctx context.Context, req services.DeliveryJobRequest) (string, error) {
	items := make([]ParcelItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ParcelItem{
			Description: item.Title,
			Quantity:    item.Quantity,
			Weight:      defaultParcelWeightKg,
		})
	}

	return b.client.CreateJob(ctx, JobRequest{
		Reference:   req.Reference,
		Origin:      b.origin,
		Destination: locationFromAddress(req.Destination),
		Items:       items,
	})
}

func locationFromAddress(addr domain.Address) Location {
	lines := addr.Line1
	if strings.TrimSpace(addr.Line2) != "" {
		lines += ", " + addr.Line2
	}

	location := Location{
		Address:    lines,
		PostalCode: addr.PostalCode,
		City:       addr.City,
		Country:    addr.CountryCode,
	}
	if addr.FirstName != "" || addr.Phone != "" {
		location.Contact = &Contact{
			FirstName: addr.FirstName,
			LastName:  addr.LastName,
			Phone:     addr.Phone,
		}
	}
	return location
}
