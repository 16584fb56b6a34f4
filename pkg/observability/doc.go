/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client, _ := wit.New(token, actions,
		wit.WithLifecycleHooks(metrics.Hooks().Merge(observability.LogHooks(logger))),
	)
	http.Handle("/metrics", metrics.Handler())
*/
package observability
