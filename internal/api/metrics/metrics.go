// Package metrics defines and registers all custom Prometheus metrics
// for the file auth service. It is the single source of truth for
// metric names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fileauth"

// LoginAttemptsTotal counts login attempts by outcome.
// Label:
//   - result: "success", "failure", or "blocked" (throttled before
//     credential verification)
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts by outcome.",
	},
	[]string{"result"},
)

// StoreReloadsTotal counts reloads of the users file.
// Label:
//   - trigger: "watcher" (fsnotify event) or "manual"
var StoreReloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_reloads_total",
		Help:      "Total number of users-file reloads.",
	},
	[]string{"trigger"},
)

// UsersLoaded tracks the number of user records currently in memory.
var UsersLoaded = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "users_loaded",
		Help:      "Number of user records currently loaded from the users file.",
	},
)

// AuthzDenialsTotal counts denied authorization checks at the HTTP
// boundary.
// Label:
//   - reason: "unauthenticated" or "insufficient_role"
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of denied authorization checks.",
	},
	[]string{"reason"},
)
