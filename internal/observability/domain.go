package observability

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts quotation and invoice workflow events. A nil
// *DomainMetrics is valid and records nothing.
type DomainMetrics struct {
	quotationTransitions *prometheus.CounterVec
	invoicePayments      *prometheus.CounterVec
	invoiceStatusChanges *prometheus.CounterVec
	conversions          *prometheus.CounterVec
}

// NewDomainMetrics mendaftarkan counter domain pada registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		quotationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackinvoice_quotation_transitions_total",
			Help: "Quotation state changes by action and resulting status.",
		}, []string{"action", "to"}),
		invoicePayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackinvoice_invoice_payments_total",
			Help: "Term payment attempts by outcome.",
		}, []string{"result"}),
		invoiceStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackinvoice_invoice_status_changes_total",
			Help: "Persisted invoice status changes.",
		}, []string{"from", "to"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackinvoice_quotation_conversions_total",
			Help: "Quotation to invoice conversions by outcome.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.quotationTransitions, m.invoicePayments, m.invoiceStatusChanges, m.conversions)
	}
	return m
}

// QuotationTransition records a quotation state change.
func (m *DomainMetrics) QuotationTransition(action, to string) {
	if m == nil {
		return
	}
	m.quotationTransitions.WithLabelValues(action, to).Inc()
}

// InvoicePayment records the outcome of a pay-term request.
func (m *DomainMetrics) InvoicePayment(result string) {
	if m == nil {
		return
	}
	m.invoicePayments.WithLabelValues(result).Inc()
}

// InvoiceStatusChange records a persisted invoice status change.
func (m *DomainMetrics) InvoiceStatusChange(from, to string) {
	if m == nil {
		return
	}
	m.invoiceStatusChanges.WithLabelValues(from, to).Inc()
}

// Conversion records the outcome of a quotation conversion.
func (m *DomainMetrics) Conversion(result string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(result).Inc()
}
