// File: internal/usecase/results_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
)

// Compile-time check
var _ ResultsUseCase = (*resultsUC)(nil)

type ResultsUseCase interface {
	Results(ctx context.Context, pollID int64) (*model.PollResults, error)
}

type resultsUC struct {
	catalog repository.CatalogRepository
	votes   repository.VoteRepository
	log     *zerolog.Logger
}

func NewResultsUseCase(catalog repository.CatalogRepository, votes repository.VoteRepository, logger *zerolog.Logger) *resultsUC {
	l := logger.With().Str("component", "results").Logger()
	return &resultsUC{catalog: catalog, votes: votes, log: &l}
}

// Results groups the poll tally by category. Percentages are relative to the category
// total and rounded to one decimal place.
func (u *resultsUC) Results(ctx context.Context, pollID int64) (*model.PollResults, error) {
	poll, err := u.catalog.Poll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	tally, err := u.votes.Tally(ctx, repository.NoTX, pollID)
	if err != nil {
		return nil, fmt.Errorf("tally poll %d: %w", pollID, err)
	}

	out := &model.PollResults{
		PollID:     poll.ID,
		PollTitle:  poll.Title,
		Categories: make(map[string]model.CategoryResults),
	}
	for _, row := range tally {
		cat, seen := out.Categories[row.Category]
		if !seen {
			out.CategoryList = append(out.CategoryList, row.Category)
		}
		cat.Contestants = append(cat.Contestants, row)
		cat.TotalVotes += row.Votes
		out.Categories[row.Category] = cat
		out.TotalVotes += row.Votes
	}
	for name, cat := range out.Categories {
		for i := range cat.Contestants {
			cat.Contestants[i].Percentage = percentage(cat.Contestants[i].Votes, cat.TotalVotes)
		}
		out.Categories[name] = cat
	}
	if out.CategoryList == nil {
		out.CategoryList = []string{}
	}
	return out, nil
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).Round(1).InexactFloat64()
}
