package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts applied cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartRestoreFailures counts persisted carts that could not be decoded.
	CartRestoreFailures prometheus.Counter
	// CartPersistFailures counts cart writes rejected by storage.
	CartPersistFailures prometheus.Counter
	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// DeliveryQuotesTotal counts delivery fee quotes by outcome.
	DeliveryQuotesTotal *prometheus.CounterVec
	// PaymentCaptureTotal counts payment captures by provider and outcome.
	PaymentCaptureTotal *prometheus.CounterVec
	// TrackingWebhookTotal counts courier callbacks by courier and outcome.
	TrackingWebhookTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the storefront collectors.
// Until it is called the Observe helpers are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"})
		CartRestoreFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_restore_failures_total",
			Help:      "Persisted carts discarded because they could not be restored.",
		})
		CartPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_failures_total",
			Help:      "Cart writes that failed at the storage layer.",
		})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"})
		DeliveryQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_quotes_total",
			Help:      "Delivery fee quotes by result.",
		}, []string{"result"})
		PaymentCaptureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_capture_total",
			Help:      "Payment captures by provider and result.",
		}, []string{"provider", "result"})
		TrackingWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_webhook_total",
			Help:      "Courier tracking callbacks by courier and outcome.",
		}, []string{"courier", "outcome"})

		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartRestoreFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartRestoreFailures = v
			}
		})
		mustRegisterCollector(reg, CartPersistFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartPersistFailures = v
			}
		})
		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, DeliveryQuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DeliveryQuotesTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentCaptureTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentCaptureTotal = v
			}
		})
		mustRegisterCollector(reg, TrackingWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TrackingWebhookTotal = v
			}
		})
	})
}

// ObserveCartMutation increments the mutation counter for op.
func ObserveCartMutation(op string) {
	if CartMutationsTotal != nil {
		CartMutationsTotal.WithLabelValues(op).Inc()
	}
}

// ObserveCartRestoreFailure records a discarded persisted cart.
func ObserveCartRestoreFailure() {
	if CartRestoreFailures != nil {
		CartRestoreFailures.Inc()
	}
}

// ObserveCartPersistFailure records a failed cart write.
func ObserveCartPersistFailure() {
	if CartPersistFailures != nil {
		CartPersistFailures.Inc()
	}
}

// ObserveCheckout records a checkout outcome.
func ObserveCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}

// ObserveDeliveryQuote records a delivery quote outcome.
func ObserveDeliveryQuote(result string) {
	if DeliveryQuotesTotal != nil {
		DeliveryQuotesTotal.WithLabelValues(result).Inc()
	}
}

// ObservePaymentCapture records a payment capture outcome.
func ObservePaymentCapture(provider, result string) {
	if PaymentCaptureTotal != nil {
		PaymentCaptureTotal.WithLabelValues(provider, result).Inc()
	}
}

// ObserveTrackingWebhook records the outcome of a courier callback.
func ObserveTrackingWebhook(courier, outcome string) {
	if TrackingWebhookTotal != nil {
		TrackingWebhookTotal.WithLabelValues(courier, outcome).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
