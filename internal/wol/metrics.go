/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wol

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Wake request outcomes used as the "result" label of WakeRequestsTotal
const (
	ResultSent          = "sent"
	ResultMissingDevice = "missing_device"
	ResultNotConfigured = "not_configured"
	ResultUnauthorized  = "unauthorized"
	ResultSendFailed    = "send_failed"
)

var (
	// PacketsSentTotal counts the number of magic packets that left the local stack
	PacketsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgwol_packets_sent_total",
			Help: "Number of Wake-on-LAN magic packets sent",
		},
	)

	// ErrorsTotal counts socket-level failures while sending
	ErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgwol_send_errors_total",
			Help: "Number of errors while sending Wake-on-LAN packets",
		},
	)

	// WakeRequestsTotal counts wake commands by outcome
	WakeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgwol_wake_requests_total",
			Help: "Number of wake commands handled, by result",
		},
		[]string{"result"},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		PacketsSentTotal,
		ErrorsTotal,
		WakeRequestsTotal,
	)
}
