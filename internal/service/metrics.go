package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 业务指标
var (
	applicationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_applications_created_total",
			Help: "新建投递数（按来源 apply / shortlist）",
		},
		[]string{"source"},
	)

	applicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_application_transitions_total",
			Help: "投递状态迁移次数（按目标状态）",
		},
		[]string{"to"},
	)

	eligibilityDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_eligibility_denials_total",
			Help: "投递资格校验拒绝次数（按原因）",
		},
		[]string{"reason"},
	)

	duplicateApplications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placement_duplicate_applications_total",
		Help: "被唯一索引拒绝的重复投递次数",
	})

	statsDriftCorrected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_stats_drift_corrected_total",
			Help: "对账纠正的计数行数（按表）",
		},
		[]string{"table"},
	)
)
