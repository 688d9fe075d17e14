package tokencache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "tokencache",
	Name:      "hits_total",
	Help:      "Number of token lookups served from the cache",
})

var missesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "tokencache",
	Name:      "fetches_total",
	Help:      "Number of token fetches started",
})

var coalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "tokencache",
	Name:      "coalesced_total",
	Help:      "Number of token lookups that joined a fetch already in flight",
})
