// Package metrics records build and stage metrics for the packaging pipeline.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	svc := build.NewService(prov, invoker, locator, reporter).WithRecorder(recorder)
//
// A one-shot CLI has nobody scraping it, so the Prometheus registry is
// flushed to a node_exporter textfile (WriteTextfile) once the run ends.
package metrics
