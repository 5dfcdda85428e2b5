// Package spectradex provides an embedded Go client for the spectradex particle
// collection engine: a SQLite registry of mass spectrometry particles with
// optional Valkey or Redis caching of histogram datasets.
//
// A collection is an ordered set of particles. Collections are divided into
// child collections either by a predicate over particle attributes or by
// iterative clustering around seed spectra:
//
//	client, _ := spectradex.New(ctx, spectradex.WithDatabase("data/spectradex.db"))
//	defer client.Close()
//
//	root, _ := client.Collections().Import(ctx, "run-42", particles)
//	big, _ := client.Divisions().Predicate(ctx, root.ID, "large", "p.size > 1.5")
//	res, _ := client.Divisions().Cluster(ctx, big.ID, "family",
//	    spectradex.WithK(4),
//	    spectradex.WithMetric(spectradex.MetricCityBlock),
//	)
//
// Per-bin intensity histograms summarize a collection and support brushing:
//
//	sum, _ := client.Summaries().Summarize(ctx, res.IDs[0], "#d62728")
//	sel, _ := client.Summaries().Select(ctx, res.IDs[0],
//	    spectradex.Brush{BinLow: 23, BinHigh: 23, ValueLow: 100, ValueHigh: 5000})
package spectradex
