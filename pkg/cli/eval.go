package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/conversationai/goldeval/pkg/data"
	"github.com/conversationai/goldeval/pkg/eval"
	"github.com/conversationai/goldeval/pkg/gold"
	"github.com/conversationai/goldeval/pkg/model"
)

const outputPathDefault = "gold_scored.csv"

var (
	goldPathFlag = &urfave.StringFlag{
		Name:     "gold-path",
		Usage:    "Path to the gold test data CSV",
		Required: true,
	}

	outputPathFlag = &urfave.StringFlag{
		Name:  "output-path",
		Usage: "Path of the scored CSV file to write",
		Value: outputPathDefault,
	}

	jobDirFlag = &urfave.StringFlag{
		Name:     "job-dir",
		Usage:    "Model job directory (gold_eval.json is written here)",
		Required: true,
	}

	// The list of labels must be in the same order as the labels used
	// to train the model: the output heads are unnamed on the wire,
	// they only have an ordering.
	labelsFlag = &urfave.StringFlag{
		Name:  "labels",
		Usage: "Comma-separated model head labels, in head order (defaults to config)",
	}

	embeddingsPathFlag = &urfave.StringFlag{
		Name:    "embeddings-path",
		Aliases: []string{"embeddings_path"},
		Usage:   "Path to the word embeddings, passed to the inference service",
	}

	modelURLFlag = &urfave.StringFlag{
		Name:  "model-url",
		Usage: "Base URL of the model inference service (defaults to config)",
	}

	evalCmd = &urfave.Command{
		Name:            "eval",
		Aliases:         []string{"e"},
		HideHelpCommand: true,
		Usage:           "Score a gold data set and report per-label AUC and average error",
		Action:          cmdRunEval,
		Flags: []urfave.Flag{
			goldPathFlag,
			outputPathFlag,
			jobDirFlag,
			labelsFlag,
			embeddingsPathFlag,
			modelURLFlag,
		},
	}
)

func cmdRunEval(c *urfave.Context) error {
	cfg := getConfig(c)

	goldPath := c.String(goldPathFlag.Name)
	outputPath := c.String(outputPathFlag.Name)
	jobDir := c.String(jobDirFlag.Name)

	labels := cfg.Conf.Labels
	if v := c.String(labelsFlag.Name); v != "" {
		labels = strings.Split(v, ",")
	}

	modelURL := cfg.Conf.ModelURL
	if v := c.String(modelURLFlag.Name); v != "" {
		modelURL = v
	}

	embeddingsPath := cfg.Conf.EmbeddingsPath
	if v := c.String(embeddingsPathFlag.Name); v != "" {
		embeddingsPath = v
	}

	d, err := gold.Read(goldPath, labels)
	if err != nil {
		return fmt.Errorf("loading gold data: %w", err)
	}

	opts := []model.HTTPScorerOption{
		model.WithJobDir(jobDir),
		model.WithEmbeddingsPath(embeddingsPath),
	}
	if token, err := getModelToken(); err == nil && token != "" {
		opts = append(opts, model.WithToken(token))
	}

	scorer, err := model.NewHTTPScorer(modelURL, labels, opts...)
	if err != nil {
		return fmt.Errorf("creating scorer: %w", err)
	}

	slog.Info("scoring gold data", "examples", len(d.Examples), "model", modelURL)
	start := time.Now()
	if err := eval.Score(c.Context, d, scorer); err != nil {
		return fmt.Errorf("scoring gold data: %w", err)
	}
	slog.Debug("scoring done", "duration", time.Since(start).String())

	results, err := eval.Evaluate(d)
	if err != nil {
		return fmt.Errorf("evaluating scored data: %w", err)
	}

	if err := encode(results); err != nil {
		return fmt.Errorf("error encoding results: %w", err)
	}

	evalPath, err := eval.WriteReport(jobDir, goldPath, results)
	if err != nil {
		return fmt.Errorf("writing eval results: %w", err)
	}
	slog.Info("eval results written", "path", evalPath)

	if err := gold.WriteScored(outputPath, d); err != nil {
		return fmt.Errorf("writing scored data: %w", err)
	}
	slog.Info("scored data written", "path", outputPath)

	id, err := data.SaveRun(cfg.DB, &data.EvalRun{
		GoldPath: goldPath,
		Model:    modelURL,
		Labels:   labels,
		Examples: len(d.Examples),
		Metrics:  results,
	})
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	slog.Debug("run recorded", "id", id)

	return nil
}
