// metrics.go — доменные Prometheus метрики File Portal.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// filesUploadedTotal — количество принятых загрузок.
	filesUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fp_files_uploaded_total",
			Help: "Количество загруженных файлов",
		},
	)

	// fileTransitionsTotal — переходы жизненного цикла по типу.
	fileTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fp_file_transitions_total",
			Help: "Количество переходов жизненного цикла файлов",
		},
		[]string{"transition"},
	)

	// invitesRedeemedTotal — успешные регистрации по приглашению.
	invitesRedeemedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fp_invites_redeemed_total",
			Help: "Количество погашенных кодов приглашения",
		},
	)

	// loginFailuresTotal — неудачные попытки входа.
	loginFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fp_login_failures_total",
			Help: "Количество неудачных попыток входа",
		},
	)

	// loginLockoutsTotal — отказы из-за блокировки входа.
	loginLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fp_login_lockouts_total",
			Help: "Количество отказов во входе из-за блокировки",
		},
	)
)
