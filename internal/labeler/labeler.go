// Package labeler names the common issue of each cluster with an LLM.
package labeler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/go-promptfmt"
	"golang.org/x/sync/errgroup"

	"github.com/yildizm/feedcluster/internal/ai"
	"github.com/yildizm/feedcluster/internal/export"
	"github.com/yildizm/feedcluster/internal/logger"
)

// Theme is the label generated for one cluster
type Theme struct {
	ClusterID int    `json:"cluster_id"`
	Theme     string `json:"theme"`
	Summary   string `json:"summary"`
}

// Options configures prompt building and provider calls
type Options struct {
	// Model overrides the provider default when set
	Model string
	// Samples caps the feedback items quoted per cluster
	Samples int
	// TextFields are joined with ": " to quote one record
	TextFields  []string
	MaxTokens   int
	Temperature float64
	// Concurrency is the number of clusters labeled at once
	Concurrency int
}

// DefaultOptions returns options matching the Title/Description records
func DefaultOptions() Options {
	return Options{
		Samples:     20,
		TextFields:  []string{"Title", "Description"},
		MaxTokens:   300,
		Temperature: 0.2,
		Concurrency: 1,
	}
}

// Labeler asks a provider for the theme of each cluster
type Labeler struct {
	provider ai.Provider
	opts     Options
	log      *logger.Logger
}

// New creates a labeler. Zero option values fall back to DefaultOptions.
func New(provider ai.Provider, opts Options, log *logger.Logger) *Labeler {
	def := DefaultOptions()
	if opts.Samples <= 0 {
		opts.Samples = def.Samples
	}
	if len(opts.TextFields) == 0 {
		opts.TextFields = def.TextFields
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	return &Labeler{provider: provider, opts: opts, log: log}
}

// themeResponse is the JSON shape requested from the model
type themeResponse struct {
	Theme   string `json:"theme"`
	Summary string `json:"summary"`
}

// Label requests one theme per group. A group the provider fails on is
// logged and left out of the result; the returned error is non-nil only
// when the context ends or no group could be labeled.
func (l *Labeler) Label(ctx context.Context, groups []export.Group) ([]Theme, error) {
	results := make([]*Theme, len(groups))
	failures := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			theme, err := l.labelOne(gctx, &groups[i])
			if err != nil {
				l.log.WarnWithFields("Labeling failed", []logger.Field{
					logger.F("cluster", groups[i].ClusterID),
					logger.Error(err),
				})
				failures[i] = fmt.Errorf("cluster %d: %w", groups[i].ClusterID, err)
				return nil
			}
			results[i] = theme
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	themes := make([]Theme, 0, len(groups))
	for _, t := range results {
		if t != nil {
			themes = append(themes, *t)
		}
	}

	failed := errors.Join(failures...)
	if len(themes) == 0 && failed != nil {
		return nil, failed
	}
	l.log.Info("Labeled %d of %d clusters", len(themes), len(groups))
	return themes, nil
}

// labelOne fails for groups without any quotable text
func (l *Labeler) labelOne(ctx context.Context, group *export.Group) (*Theme, error) {
	items := l.sampleItems(group)
	if len(items) == 0 {
		return nil, fmt.Errorf("no %s text to quote", strings.Join(l.opts.TextFields, "/"))
	}

	prompt := l.buildPrompt(group, items)
	start := time.Now()
	resp, err := l.provider.Complete(ctx, &ai.CompletionRequest{
		Prompt:       prompt.String(),
		SystemPrompt: prompt.SystemPrompt,
		Model:        l.opts.Model,
		MaxTokens:    l.opts.MaxTokens,
		Temperature:  l.opts.Temperature,
		RequestID:    fmt.Sprintf("cluster-%d", group.ClusterID),
	})
	if err != nil {
		return nil, err
	}
	l.log.DebugWithFields("Theme response received", []logger.Field{
		logger.F("cluster", group.ClusterID),
		logger.Duration(time.Since(start)),
	})

	var parsed themeResponse
	if result := promptfmt.NewResponse(resp.Content).TryParseJSON(&parsed); !result.Success {
		return nil, fmt.Errorf("response is not the requested JSON: %q", truncate(resp.Content, 120))
	}

	theme := strings.TrimSpace(parsed.Theme)
	if theme == "" {
		return nil, fmt.Errorf("response has no theme")
	}
	return &Theme{
		ClusterID: group.ClusterID,
		Theme:     theme,
		Summary:   strings.TrimSpace(parsed.Summary),
	}, nil
}

// sampleItems quotes up to Samples records as "- field1: field2"
func (l *Labeler) sampleItems(group *export.Group) []string {
	items := make([]string, 0, min(len(group.Records), l.opts.Samples))
	for _, rec := range group.Records {
		if len(items) == l.opts.Samples {
			break
		}
		var parts []string
		for _, field := range l.opts.TextFields {
			if s, ok := rec.String(field); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		if len(parts) > 0 {
			items = append(items, "- "+strings.Join(parts, ": "))
		}
	}
	return items
}

func (l *Labeler) buildPrompt(group *export.Group, items []string) *promptfmt.Prompt {
	return promptfmt.New().
		System("You are a product feedback analyst. Feedback items from different customers were grouped because they describe a similar issue. Name the common issue in a few words and summarize it in one or two sentences. Respond in JSON.").
		User("Here are %d of %d feedback items from %d different customers:\n\n%s",
			len(items), group.SimilarFeedbacks, group.DistinctCustomers, strings.Join(items, "\n")).
		AddContext("cluster", fmt.Sprintf("%d", group.ClusterID)).
		ExpectJSON(&themeResponse{}).
		Build()
}

// Apply copies themes onto the groups with the same cluster id
func Apply(groups []export.Group, themes []Theme) {
	byID := make(map[int]Theme, len(themes))
	for _, t := range themes {
		byID[t.ClusterID] = t
	}
	for i := range groups {
		if t, ok := byID[groups[i].ClusterID]; ok {
			groups[i].Theme = t.Theme
			groups[i].Summary = t.Summary
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
