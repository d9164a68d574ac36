package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gohaste/storefront/internal/platform/httpx"
	"github.com/gohaste/storefront/internal/services"
)

// DashboardHandlers exposes the merchant KPI endpoint.
type DashboardHandlers struct {
	dashboard services.DashboardService
}

// NewDashboardHandlers constructs handlers backed by the dashboard service.
func NewDashboardHandlers(dashboard services.DashboardService) *DashboardHandlers {
	return &DashboardHandlers{dashboard: dashboard}
}

// Routes wires the /dashboard endpoints onto the provided router.
func (h *DashboardHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/kpis", h.getKPIs)
}

type kpiResponse struct {
	TotalInventory int            `json:"total_inventory"`
	TotalOrders    int            `json:"total_orders"`
	TotalSales     int64          `json:"total_sales"`
	Currency       string         `json:"currency"`
	StatusCounts   map[string]int `json:"status_counts"`
	RecentOrders   []orderPayload `json:"recent_orders"`
	GeneratedAt    string         `json:"generated_at"`
}

func (h *DashboardHandlers) getKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.dashboard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("dashboard_unavailable", "dashboard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	snapshot, err := h.dashboard.Snapshot(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("dashboard_error", "failed to build dashboard snapshot", http.StatusInternalServerError))
		return
	}

	payload := kpiResponse{
		TotalInventory: snapshot.TotalInventory,
		TotalOrders:    snapshot.TotalOrders,
		TotalSales:     snapshot.TotalSales,
		Currency:       snapshot.Currency,
		StatusCounts:   make(map[string]int, len(snapshot.StatusCounts)),
		RecentOrders:   make([]orderPayload, 0, len(snapshot.RecentOrders)),
		GeneratedAt:    formatTime(snapshot.GeneratedAt),
	}
	for class, count := range snapshot.StatusCounts {
		payload.StatusCounts[string(class)] = count
	}
	for _, order := range snapshot.RecentOrders {
		payload.RecentOrders = append(payload.RecentOrders, buildOrderPayload(order, nil))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}
