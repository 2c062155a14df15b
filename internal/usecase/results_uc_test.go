//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/usecase"
)

func TestResultsUseCase_Results(t *testing.T) {
	ctx := context.Background()

	t.Run("should group by category with per-category percentages", func(t *testing.T) {
		catalog, votes := NewMockCatalogRepo(), NewMockVoteRepo()
		catalog.AddPoll(votersPayPoll(1, "1"))
		votes.TallyFunc = func(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
			return []model.ContestantTally{
				{ContestantID: 1, Name: "Ama", Category: "Female", Votes: 2},
				{ContestantID: 2, Name: "Efua", Category: "Female", Votes: 1},
				{ContestantID: 3, Name: "Kojo", Category: "Male", Votes: 0},
			}, nil
		}
		uc := usecase.NewResultsUseCase(catalog, votes, newTestLogger())

		res, err := uc.Results(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(3), res.TotalVotes)
		assert.Equal(t, []string{"Female", "Male"}, res.CategoryList)
		female := res.Categories["Female"]
		assert.Equal(t, int64(3), female.TotalVotes)
		assert.Equal(t, 66.7, female.Contestants[0].Percentage)
		assert.Equal(t, 33.3, female.Contestants[1].Percentage)
		assert.Equal(t, 0.0, res.Categories["Male"].Contestants[0].Percentage)
	})

	t.Run("should report an unknown poll", func(t *testing.T) {
		uc := usecase.NewResultsUseCase(NewMockCatalogRepo(), NewMockVoteRepo(), newTestLogger())

		_, err := uc.Results(ctx, 42)

		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})
}
