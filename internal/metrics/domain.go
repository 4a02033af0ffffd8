package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders placed at checkout",
	})
	InvoicesRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_invoices_rendered_total",
		Help: "Invoice documents generated",
	})
	CheckoutIntegrityGaps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_checkout_cart_clear_failures_total",
		Help: "Orders saved whose cart could not be cleared afterwards",
	})
)

func init() {
	prometheus.MustRegister(OrdersCreated, InvoicesRendered, CheckoutIntegrityGaps)
}
