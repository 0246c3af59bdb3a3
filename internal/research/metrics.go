package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_published_total",
		Help: "Documents published by visibility.",
	}, []string{"visibility"})

	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_fetches_total",
		Help: "Document content fetches by outcome.",
	}, []string{"result"})
)
