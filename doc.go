// Package bodyperf classifies body performance grades (A best, D worst)
// from physical measurements.
//
// The module loads the public Body_Performance.csv dataset, explores it,
// trains a random forest on it and predicts the grade of new records,
// from the command line or through a small web application.
//
// # Packages
//
//   - dataset: CSV loading, cleaning to the twelve canonical columns, summary statistics and correlations
//   - preprocessing: LabelEncoder and StandardScaler
//   - model_selection: seeded train/test split
//   - sklearn/tree, sklearn/ensemble: CART decision tree and random forest classifier
//   - metrics: accuracy, confusion matrix and classification report
//   - pipeline: the fixed training chain, single-record inference and the cached Session
//   - plotting: annotated correlation heatmap
//   - internal/config, internal/web, cmd/bodyperf: configuration, HTTP server and CLI
//
// # Quick Start
//
//	tbl, err := dataset.Load(dataset.DefaultPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	frame, err := dataset.Clean(tbl)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	art, err := pipeline.Train(frame, pipeline.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	label, err := art.Predict(pipeline.DefaultInput())
//
// Or from the shell:
//
//	bodyperf eda --heatmap corr.png
//	bodyperf train --out model.gob
//	bodyperf predict --model model.gob --age 32 --gender Female
//	bodyperf serve --addr :8501
//
// # Reproducibility
//
// The split and the forest are seeded (random_state 42 by default), and
// every tree draws from its own seed, so results do not depend on the
// number of workers.
package bodyperf
