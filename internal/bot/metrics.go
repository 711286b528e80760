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

package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// UpdatesTotal counts the number of Telegram updates received
	UpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgwol_updates_total",
			Help: "Number of Telegram updates received",
		},
	)

	// ReplyErrorsTotal counts replies that could not be delivered
	ReplyErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgwol_reply_errors_total",
			Help: "Number of replies that failed to send",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(UpdatesTotal, ReplyErrorsTotal)
}
